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
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/tracehound/tracehound/pkg/identifier"
)

const defaultCarrierBaseURL = "http://apilayer.net/api"

// CarrierSection is the report section for the phone carrier lookup.
type CarrierSection struct {
	Valid       bool   `json:"valid"`
	Carrier     string `json:"carrier"`
	LineType    string `json:"line_type"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Location    string `json:"location,omitempty"`
}

// Carrier queries a numverify-compatible validation API for an E.164
// number.
type Carrier struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limit   *rate.Limiter
}

// NewCarrier builds the carrier adapter.
func NewCarrier(baseURL, apiKey string) *Carrier {
	if baseURL == "" {
		baseURL = defaultCarrierBaseURL
	}
	return &Carrier{
		client:  newHTTPClient(0),
		baseURL: baseURL,
		apiKey:  apiKey,
		limit:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (c *Carrier) Name() string          { return "carrier" }
func (c *Carrier) Kind() identifier.Kind { return identifier.KindPhone }

// Lookup validates the number and returns carrier, line type and
// country.
func (c *Carrier) Lookup(ctx context.Context, id identifier.Identifier) (any, error) {
	if c.apiKey == "" {
		return nil, errors.New("carrier API key not configured")
	}
	if err := c.limit.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("access_key", c.apiKey)
	q.Set("number", id.Value())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/validate?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build carrier request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "carrier lookup")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("carrier API status %d", resp.StatusCode)
	}

	var section CarrierSection
	if err := json.NewDecoder(resp.Body).Decode(&section); err != nil {
		return nil, errors.Wrap(err, "decode carrier response")
	}
	return section, nil
}
