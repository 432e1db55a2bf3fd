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

const defaultGeoIPBaseURL = "http://ip-api.com/json"

// GeoIPSection is the report section for IP geolocation of a domain's
// apex host.
type GeoIPSection struct {
	Query       string `json:"query"`
	Status      string `json:"status"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Region      string `json:"regionName"`
	City        string `json:"city"`
	ISP         string `json:"isp"`
	Org         string `json:"org"`
	ASN         string `json:"as"`
}

// GeoIP queries an ip-api-compatible endpoint. The free tier rate-limits
// aggressively, so the limiter is conservative.
type GeoIP struct {
	client  *http.Client
	baseURL string
	limit   *rate.Limiter
}

// NewGeoIP builds the geolocation adapter.
func NewGeoIP(baseURL string) *GeoIP {
	if baseURL == "" {
		baseURL = defaultGeoIPBaseURL
	}
	return &GeoIP{
		client:  newHTTPClient(0),
		baseURL: baseURL,
		limit:   rate.NewLimiter(rate.Every(1500*time.Millisecond), 1),
	}
}

func (g *GeoIP) Name() string          { return "geoip" }
func (g *GeoIP) Kind() identifier.Kind { return identifier.KindDomain }

// Lookup geolocates the domain's resolved address. The API accepts a
// hostname and resolves it server-side.
func (g *GeoIP) Lookup(ctx context.Context, id identifier.Identifier) (any, error) {
	if err := g.limit.Wait(ctx); err != nil {
		return nil, err
	}
	u := g.baseURL + "/" + url.PathEscape(id.Value())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build geoip request")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "geoip lookup")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("geoip API status %d", resp.StatusCode)
	}

	var section GeoIPSection
	if err := json.NewDecoder(resp.Body).Decode(&section); err != nil {
		return nil, errors.Wrap(err, "decode geoip response")
	}
	if section.Status != "success" {
		return nil, errors.Errorf("geoip lookup failed for %q", id.Value())
	}
	return section, nil
}
