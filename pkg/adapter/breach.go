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
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/tracehound/tracehound/pkg/identifier"
)

const defaultBreachBaseURL = "https://haveibeenpwned.com/api/v3"

// BreachRecord is one named breach an email appeared in.
type BreachRecord struct {
	Name       string `json:"Name"`
	Domain     string `json:"Domain"`
	BreachDate string `json:"BreachDate"`
	PwnCount   int    `json:"PwnCount"`
}

// BreachSection is the report section produced by the breach lookup.
type BreachSection struct {
	Found    bool           `json:"found"`
	Breaches []BreachRecord `json:"breaches,omitempty"`
}

// Breach queries a haveibeenpwned-compatible API for an email address.
// The commercial API enforces a strict per-key quota; the limiter stays
// well under it.
type Breach struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limit   *rate.Limiter
}

// NewBreach builds the breach adapter. An empty base URL selects the
// public haveibeenpwned endpoint.
func NewBreach(baseURL, apiKey string) *Breach {
	if baseURL == "" {
		baseURL = defaultBreachBaseURL
	}
	return &Breach{
		client:  newHTTPClient(0),
		baseURL: baseURL,
		apiKey:  apiKey,
		limit:   rate.NewLimiter(rate.Every(1500*time.Millisecond), 1),
	}
}

func (b *Breach) Name() string          { return "breaches" }
func (b *Breach) Kind() identifier.Kind { return identifier.KindEmail }

// Lookup returns the breach records for the address, or found=false on
// the API's 404.
func (b *Breach) Lookup(ctx context.Context, id identifier.Identifier) (any, error) {
	if err := b.limit.Wait(ctx); err != nil {
		return nil, err
	}
	u := b.baseURL + "/breachedaccount/" + url.PathEscape(id.Value()) + "?truncateResponse=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build breach request")
	}
	if b.apiKey != "" {
		req.Header.Set("hibp-api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "breach lookup")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return BreachSection{Found: false}, nil
	case http.StatusOK:
	default:
		return nil, errors.Errorf("breach API status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read breach response")
	}
	var records []BreachRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, "decode breach response")
	}
	return BreachSection{Found: len(records) > 0, Breaches: records}, nil
}
