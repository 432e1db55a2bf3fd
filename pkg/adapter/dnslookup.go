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
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/identifier"
)

const defaultResolver = "1.1.1.1:53"

// MXRecord is one mail exchanger with its preference.
type MXRecord struct {
	Priority uint16 `json:"priority"`
	Host     string `json:"host"`
}

// DNSSection is the report section for the record sweep.
type DNSSection struct {
	A    []string   `json:"a,omitempty"`
	AAAA []string   `json:"aaaa,omitempty"`
	MX   []MXRecord `json:"mx,omitempty"`
	NS   []string   `json:"ns,omitempty"`
	TXT  []string   `json:"txt,omitempty"`
}

// DNS sweeps the standard record types for a domain against one
// recursive resolver.
type DNS struct {
	client   *dns.Client
	resolver string
}

// NewDNS builds the DNS adapter. An empty resolver selects a public
// recursive resolver.
func NewDNS(resolver string) *DNS {
	if resolver == "" {
		resolver = defaultResolver
	}
	return &DNS{client: &dns.Client{}, resolver: resolver}
}

func (d *DNS) Name() string          { return "dns" }
func (d *DNS) Kind() identifier.Kind { return identifier.KindDomain }

// Lookup queries A, AAAA, MX, NS and TXT records. Individual empty
// answers are fine; it fails when the resolver cannot be reached, when
// a query returns an rcode other than success or NXDOMAIN, and when the
// domain has no A, AAAA or NS record at all.
func (d *DNS) Lookup(ctx context.Context, id identifier.Identifier) (any, error) {
	fqdn := dns.Fqdn(id.Value())
	section := DNSSection{}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeMX, dns.TypeNS, dns.TypeTXT} {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		resp, _, err := d.client.ExchangeContext(ctx, msg, d.resolver)
		if err != nil {
			return nil, errors.Wrapf(err, "query %s", dns.TypeToString[qtype])
		}
		if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
			return nil, errors.Errorf("query %s: rcode %s", dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
		}
		for _, rr := range resp.Answer {
			switch r := rr.(type) {
			case *dns.A:
				section.A = append(section.A, r.A.String())
			case *dns.AAAA:
				section.AAAA = append(section.AAAA, r.AAAA.String())
			case *dns.MX:
				section.MX = append(section.MX, MXRecord{Priority: r.Preference, Host: strings.TrimSuffix(r.Mx, ".")})
			case *dns.NS:
				section.NS = append(section.NS, strings.TrimSuffix(r.Ns, "."))
			case *dns.TXT:
				section.TXT = append(section.TXT, strings.Join(r.Txt, ""))
			}
		}
	}

	if len(section.A) == 0 && len(section.AAAA) == 0 && len(section.NS) == 0 {
		return nil, fmt.Errorf("domain %q does not resolve", id.Value())
	}
	return section, nil
}
