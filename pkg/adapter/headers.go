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
	"net/http"

	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/identifier"
)

// securityHeaders are the standard hardening headers the inspection
// reports on.
var securityHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
	"Permissions-Policy",
}

// HeadersSection is the report section for the security-header
// inspection.
type HeadersSection struct {
	Present map[string]string `json:"present"`
	Missing []string          `json:"missing"`
	Server  string            `json:"server,omitempty"`
}

// Headers checks which standard security headers a domain's front page
// sends.
type Headers struct {
	client *http.Client
}

// NewHeaders builds the header-inspection adapter.
func NewHeaders() *Headers {
	return &Headers{client: newHTTPClient(0)}
}

func (h *Headers) Name() string          { return "headers" }
func (h *Headers) Kind() identifier.Kind { return identifier.KindDomain }

// Lookup fetches the domain root and reports header presence.
func (h *Headers) Lookup(ctx context.Context, id identifier.Identifier) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+id.Value()+"/", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build header request")
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch domain root")
	}
	defer resp.Body.Close()

	section := HeadersSection{
		Present: map[string]string{},
		Server:  resp.Header.Get("Server"),
	}
	for _, name := range securityHeaders {
		if v := resp.Header.Get(name); v != "" {
			section.Present[name] = v
		} else {
			section.Missing = append(section.Missing, name)
		}
	}
	return section, nil
}
