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
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/identifier"
)

// TLSCertSection is the report section describing the domain's leaf
// certificate.
type TLSCertSection struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	DNSNames  []string  `json:"dns_names,omitempty"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	Expired   bool      `json:"expired"`
}

// TLSCert inspects the certificate a domain serves on 443.
type TLSCert struct {
	dialer *tls.Dialer
}

// NewTLSCert builds the certificate adapter. Verification is skipped:
// the point is to report what the server presents, broken chains
// included.
func NewTLSCert() *TLSCert {
	return &TLSCert{
		dialer: &tls.Dialer{
			NetDialer: &net.Dialer{},
			Config:    &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}
}

func (t *TLSCert) Name() string          { return "tlscert" }
func (t *TLSCert) Kind() identifier.Kind { return identifier.KindDomain }

// Lookup handshakes with the domain and reports the leaf certificate.
func (t *TLSCert) Lookup(ctx context.Context, id identifier.Identifier) (any, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(id.Value(), "443"))
	if err != nil {
		return nil, errors.Wrap(err, "tls handshake")
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, errors.New("server presented no certificate")
	}
	leaf := state.PeerCertificates[0]
	return TLSCertSection{
		Subject:   leaf.Subject.String(),
		Issuer:    leaf.Issuer.String(),
		DNSNames:  leaf.DNSNames,
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
		Expired:   time.Now().After(leaf.NotAfter),
	}, nil
}
