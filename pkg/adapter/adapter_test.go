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
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/tracehound/tracehound/pkg/identifier"
)

func testEmail(t *testing.T) identifier.Identifier {
	t.Helper()
	id, err := identifier.NewEmail("alice@example.com")
	require.NoError(t, err)
	return id
}

func TestBreachLookupFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/breachedaccount/alice@example.com", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("hibp-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Name":"ExampleBreach","Domain":"example.com","BreachDate":"2021-04-01","PwnCount":1000}]`))
	}))
	defer srv.Close()

	b := NewBreach(srv.URL, "test-key")
	v, err := b.Lookup(context.Background(), testEmail(t))
	require.NoError(t, err)

	section, ok := v.(BreachSection)
	require.True(t, ok)
	require.True(t, section.Found)
	require.Len(t, section.Breaches, 1)
	require.Equal(t, "ExampleBreach", section.Breaches[0].Name)
}

func TestBreachLookupNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b := NewBreach(srv.URL, "")
	v, err := b.Lookup(context.Background(), testEmail(t))
	require.NoError(t, err)
	require.Equal(t, BreachSection{Found: false}, v)
}

func TestBreachLookupServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := NewBreach(srv.URL, "")
	_, err := b.Lookup(context.Background(), testEmail(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestCarrierLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/validate", r.URL.Path)
		require.Equal(t, "k", r.URL.Query().Get("access_key"))
		require.Equal(t, "+6281234567890", r.URL.Query().Get("number"))
		_, _ = w.Write([]byte(`{"valid":true,"carrier":"Telkomsel","line_type":"mobile","country_code":"ID","country_name":"Indonesia"}`))
	}))
	defer srv.Close()

	id, err := identifier.NewPhone("+6281234567890")
	require.NoError(t, err)

	c := NewCarrier(srv.URL, "k")
	v, err := c.Lookup(context.Background(), id)
	require.NoError(t, err)

	section, ok := v.(CarrierSection)
	require.True(t, ok)
	require.True(t, section.Valid)
	require.Equal(t, "Telkomsel", section.Carrier)
	require.Equal(t, "mobile", section.LineType)
}

func TestCarrierLookupNeedsKey(t *testing.T) {
	t.Parallel()

	id, err := identifier.NewPhone("+6281234567890")
	require.NoError(t, err)
	c := NewCarrier("http://unused.example", "")
	_, err = c.Lookup(context.Background(), id)
	require.Error(t, err)
}

func TestGeoIPLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/example.com", r.URL.Path)
		_, _ = w.Write([]byte(`{"query":"93.184.216.34","status":"success","country":"United States","city":"Norwell","isp":"Edgecast"}`))
	}))
	defer srv.Close()

	id, err := identifier.NewDomain("example.com")
	require.NoError(t, err)

	g := NewGeoIP(srv.URL)
	v, err := g.Lookup(context.Background(), id)
	require.NoError(t, err)

	section, ok := v.(GeoIPSection)
	require.True(t, ok)
	require.Equal(t, "United States", section.Country)
}

func TestGeoIPLookupFailStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"invalid query"}`))
	}))
	defer srv.Close()

	id, err := identifier.NewDomain("example.com")
	require.NoError(t, err)
	g := NewGeoIP(srv.URL)
	_, err = g.Lookup(context.Background(), id)
	require.Error(t, err)
}

type stubAdapter struct {
	name string
	kind identifier.Kind
	v    any
	err  error
}

func (s stubAdapter) Name() string          { return s.name }
func (s stubAdapter) Kind() identifier.Kind { return s.kind }
func (s stubAdapter) Lookup(context.Context, identifier.Identifier) (any, error) {
	return s.v, s.err
}

func TestSetRunIsolatesFailures(t *testing.T) {
	t.Parallel()

	set := NewSet(nil,
		stubAdapter{name: "breaches", kind: identifier.KindEmail, err: errors.New("quota exceeded")},
		stubAdapter{name: "extra", kind: identifier.KindEmail, v: map[string]any{"ok": true}},
		stubAdapter{name: "dns", kind: identifier.KindDomain, v: "unused"},
	)
	sections := set.Run(context.Background(), testEmail(t))

	require.Len(t, sections, 2, "domain adapter must not run for an email")
	require.Equal(t, SectionError{Error: "quota exceeded"}, sections["breaches"])
	require.Equal(t, map[string]any{"ok": true}, sections["extra"])
}

func TestSetRunNoMatch(t *testing.T) {
	t.Parallel()

	set := NewSet(nil, stubAdapter{name: "dns", kind: identifier.KindDomain})
	require.Nil(t, set.Run(context.Background(), testEmail(t)))
}
