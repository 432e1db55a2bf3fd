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

package license

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/tracehound/tracehound/pkg/identifier"
	"github.com/tracehound/tracehound/pkg/probe"
)

type mockClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestPermitValid(t *testing.T) {
	t.Parallel()

	var got validateRequest
	c := NewClient(nil, &mockClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			require.True(t, strings.HasSuffix(req.URL.Path, "/license/validate"))
			raw, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &got))
			return jsonResponse(200, `{"valid":true,"remaining_requests":41}`), nil
		},
	}, "https://backend.example", "AAAA-BBBB-CCCC-DDDD")

	err := c.Permit(context.Background(), identifier.KindUsername, probe.ModeDeep)
	require.NoError(t, err)
	require.Equal(t, "AAAA-BBBB-CCCC-DDDD", got.Key)
	require.NotEmpty(t, got.Fingerprint, "permit must be bound to the device fingerprint")
	require.Equal(t, "username", got.Kind)
	require.Equal(t, "deep", got.Mode)
}

func TestPermitDenied(t *testing.T) {
	t.Parallel()

	c := NewClient(nil, &mockClient{
		DoFunc: func(_ *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"valid":false,"reason":"deep scans need a pro licence"}`), nil
		},
	}, "https://backend.example", "k")

	err := c.Permit(context.Background(), identifier.KindEmail, probe.ModeDeep)
	var derr *DeniedError
	require.ErrorAs(t, err, &derr)
	require.Contains(t, derr.Reason, "pro licence")
}

// An unreachable backend degrades open: scans keep working offline.
func TestPermitDegradesOpenWhenBackendDown(t *testing.T) {
	t.Parallel()

	c := NewClient(nil, &mockClient{
		DoFunc: func(_ *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}, "https://backend.example", "k")

	require.NoError(t, c.Permit(context.Background(), identifier.KindUsername, probe.ModeQuick))
}

func TestRecordSendsUsage(t *testing.T) {
	t.Parallel()

	var got useRequest
	c := NewClient(nil, &mockClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			require.True(t, strings.HasSuffix(req.URL.Path, "/license/use"))
			raw, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &got))
			return jsonResponse(200, `{}`), nil
		},
	}, "https://backend.example", "k")

	c.Record(context.Background(), identifier.KindDomain, true)
	require.Equal(t, "domain", got.Kind)
	require.True(t, got.Success)
}

func TestAllowAll(t *testing.T) {
	t.Parallel()

	var g Gateway = AllowAll{}
	require.NoError(t, g.Permit(context.Background(), identifier.KindUsername, probe.ModeDeep))
	g.Record(context.Background(), identifier.KindUsername, false)
}
