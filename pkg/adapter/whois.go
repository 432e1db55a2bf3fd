// Copyright 2025 The Tracehound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package adapter

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"

	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/identifier"
)

const ianaWhois = "whois.iana.org:43"

// WhoisSection is the report section for the registration lookup. Raw
// carries the full registry answer for fields the parser does not pick
// out.
type WhoisSection struct {
	Registrar      string   `json:"registrar,omitempty"`
	CreationDate   string   `json:"creation_date,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"`
	NameServers    []string `json:"name_servers,omitempty"`
	Server         string   `json:"server"`
	Raw            string   `json:"raw"`
}

// Whois performs an RFC 3912 query against the IANA root and follows a
// single referral to the authoritative registry.
type Whois struct {
	dialer *net.Dialer
}

// NewWhois builds the whois adapter.
func NewWhois() *Whois {
	return &Whois{dialer: &net.Dialer{}}
}

func (w *Whois) Name() string          { return "whois" }
func (w *Whois) Kind() identifier.Kind { return identifier.KindDomain }

// Lookup queries the registration data for the domain.
func (w *Whois) Lookup(ctx context.Context, id identifier.Identifier) (any, error) {
	root, err := w.query(ctx, ianaWhois, id.Value())
	if err != nil {
		return nil, err
	}
	server := ianaWhois
	if ref := referralServer(root); ref != "" {
		server = ref + ":43"
		if answer, err := w.query(ctx, server, id.Value()); err == nil {
			root = answer
		}
	}

	section := parseWhois(root)
	section.Server = strings.TrimSuffix(server, ":43")
	section.Raw = root
	return section, nil
}

func (w *Whois) query(ctx context.Context, server, domain string) (string, error) {
	conn, err := w.dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return "", errors.Wrapf(err, "dial %s", server)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := io.WriteString(conn, domain+"\r\n"); err != nil {
		return "", errors.Wrap(err, "send whois query")
	}
	raw, err := io.ReadAll(io.LimitReader(conn, 64<<10))
	if err != nil {
		return "", errors.Wrap(err, "read whois answer")
	}
	return string(raw), nil
}

func referralServer(answer string) string {
	sc := bufio.NewScanner(strings.NewReader(answer))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := whoisField(line, "refer", "whois server", "registrar whois server"); ok {
			return v
		}
	}
	return ""
}

func parseWhois(answer string) WhoisSection {
	var s WhoisSection
	sc := bufio.NewScanner(strings.NewReader(answer))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := whoisField(line, "registrar"); ok && s.Registrar == "" {
			s.Registrar = v
		}
		if v, ok := whoisField(line, "creation date", "created"); ok && s.CreationDate == "" {
			s.CreationDate = v
		}
		if v, ok := whoisField(line, "registry expiry date", "expiry date", "expiration date"); ok && s.ExpirationDate == "" {
			s.ExpirationDate = v
		}
		if v, ok := whoisField(line, "name server", "nserver"); ok {
			s.NameServers = append(s.NameServers, strings.ToLower(v))
		}
	}
	return s
}

func whoisField(line string, keys ...string) (string, bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", false
	}
	name := strings.ToLower(strings.TrimSpace(line[:i]))
	for _, k := range keys {
		if name == k {
			return strings.TrimSpace(line[i+1:]), true
		}
	}
	return "", false
}
