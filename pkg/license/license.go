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

// Package license gates scans on the backend's quota service. The
// engine only sees the two-call contract: a pre-scan permit and a
// post-scan usage record. The backend and its store live elsewhere.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/internal/fingerprint"
	"github.com/tracehound/tracehound/pkg/identifier"
	"github.com/tracehound/tracehound/pkg/probe"
)

// Gateway is consulted before and after each scan.
type Gateway interface {
	// Permit reports whether a scan of this kind and mode may run. A
	// denial carries a DeniedError.
	Permit(ctx context.Context, kind identifier.Kind, mode probe.Mode) error
	// Record notes a finished scan against the usage counter. Failures
	// are logged, never surfaced: a scan that ran is not un-run.
	Record(ctx context.Context, kind identifier.Kind, success bool)
}

// DeniedError is a refusal from the gateway.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("licence denied: %s", e.Reason)
}

// AllowAll is the gateway used when no licence backend is configured.
type AllowAll struct{}

func (AllowAll) Permit(context.Context, identifier.Kind, probe.Mode) error { return nil }
func (AllowAll) Record(context.Context, identifier.Kind, bool)             {}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the licence backend, binding every call to the
// device fingerprint the key was activated on.
type Client struct {
	logger  log.Logger
	client  httpClient
	baseURL string
	key     string
	device  string
}

// NewClient builds a gateway client.
func NewClient(logger log.Logger, client httpClient, baseURL, key string) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		logger:  logger,
		client:  client,
		baseURL: baseURL,
		key:     key,
		device:  fingerprint.Generate(),
	}
}

type validateRequest struct {
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
	Kind        string `json:"kind"`
	Mode        string `json:"mode"`
}

type validateResponse struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason"`
	Remaining int    `json:"remaining_requests"`
}

// Permit asks the backend to validate the key for this scan. An
// unreachable backend degrades open with a warning; a reachable backend
// saying no is final.
func (c *Client) Permit(ctx context.Context, kind identifier.Kind, mode probe.Mode) error {
	body := validateRequest{
		Key:         c.key,
		Fingerprint: c.device,
		Kind:        string(kind),
		Mode:        string(mode),
	}
	var out validateResponse
	if err := c.post(ctx, "/license/validate", body, &out); err != nil {
		level.Warn(c.logger).Log("msg", "licence backend unreachable, permitting scan", "err", err)
		return nil
	}
	if !out.Valid {
		return &DeniedError{Reason: out.Reason}
	}
	if out.Remaining >= 0 {
		level.Debug(c.logger).Log("msg", "licence validated", "remaining", out.Remaining)
	}
	return nil
}

type useRequest struct {
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
	Kind        string `json:"kind"`
	Success     bool   `json:"success"`
}

// Record decrements the usage counter after a scan.
func (c *Client) Record(ctx context.Context, kind identifier.Kind, success bool) {
	body := useRequest{
		Key:         c.key,
		Fingerprint: c.device,
		Kind:        string(kind),
		Success:     success,
	}
	if err := c.post(ctx, "/license/use", body, nil); err != nil {
		level.Warn(c.logger).Log("msg", "recording licence usage failed", "err", err)
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
