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

package scan

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/probe"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultMaxRedirects   = 5
	// maxBodyBytes bounds how much of a response the classifier sees.
	// Presence markers sit in the first kilobytes of real pages.
	maxBodyBytes = 1 << 20
)

// Sentinel errors for the two ways a request can be aborted. Everything
// else surfaces as a wrapped transport error.
var (
	ErrRequestTimeout   = errors.New("request deadline exceeded")
	ErrRequestCancelled = errors.New("request cancelled")
)

// Request is one probe's rendered HTTP exchange.
type Request struct {
	Method  probe.Method
	URL     string
	Body    string
	Headers map[string]string
}

// Response carries what the classifier and the aggregator need: final
// status, the URL after redirects, headers, and the (bounded) body.
type Response struct {
	StatusCode int
	FinalURL   string
	Header     http.Header
	Body       []byte
}

// Transport performs probe requests over a pooled connection set owned
// by one scan. It follows a bounded number of redirects, applies the
// per-request deadline, rotates user agents, and propagates
// cancellation by closing in-flight sockets.
type Transport struct {
	client  *http.Client
	agents  *agentPicker
	timeout time.Duration
}

// TransportOptions configure one scan's transport.
type TransportOptions struct {
	// Timeout is the per-request deadline. Defaults to 15s.
	Timeout time.Duration
	// MaxRedirects caps redirect following. Defaults to 5.
	MaxRedirects int
	// PoolSize is the connection pool capacity; it should match the
	// executor's global concurrency cap.
	PoolSize int
	// Seed drives the user-agent rotation sequence.
	Seed int64
}

// NewTransport builds a transport for one scan. There is no process-wide
// HTTP state: the pool lives and dies with the scan.
func NewTransport(opts TransportOptions) *Transport {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultConcurrency
	}

	rt := cleanhttp.DefaultPooledTransport()
	rt.MaxIdleConns = opts.PoolSize
	rt.MaxIdleConnsPerHost = 2

	return &Transport{
		client: &http.Client{
			Transport: rt,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= opts.MaxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		agents:  newAgentPicker(opts.Seed),
		timeout: opts.Timeout,
	}
}

// Fetch performs one request. On deadline expiry it returns
// ErrRequestTimeout; when ctx is cancelled mid-flight the socket is
// closed and ErrRequestCancelled returned.
func (t *Transport) Fetch(ctx context.Context, req *Request) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(reqCtx, string(req.Method), req.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	hreq.Header.Set("User-Agent", t.agents.pick())
	hreq.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	hreq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, t.abortReason(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, t.abortReason(ctx, reqCtx, err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Header:     resp.Header,
		Body:       b,
	}, nil
}

// abortReason maps a failed exchange onto the scan's error taxonomy,
// distinguishing our own deadline from the caller's cancellation.
func (t *Transport) abortReason(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return ErrRequestCancelled
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return ErrRequestTimeout
	}
	return errors.Wrap(err, "transport")
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsTransientError reports whether a transport failure is worth
// retrying: timeouts, DNS failures other than not-found, and any
// connection-level network error (resets, refused dials). TLS
// verification failures and malformed requests are permanent.
func IsTransientError(err error) bool {
	if err == nil || errors.Is(err, ErrRequestCancelled) {
		return false
	}
	if errors.Is(err, ErrRequestTimeout) {
		return true
	}
	if isPermanentTLS(err) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.IsTimeout || !dnsErr.IsNotFound
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return false
}

func isPermanentTLS(err error) bool {
	var (
		certErr *tls.CertificateVerificationError
		invalid x509.CertificateInvalidError
		unknown x509.UnknownAuthorityError
		host    x509.HostnameError
	)
	return errors.As(err, &certErr) ||
		errors.As(err, &invalid) ||
		errors.As(err, &unknown) ||
		errors.As(err, &host)
}

// TransientStatus reports whether an HTTP status signals a server-side
// condition worth retrying.
func TransientStatus(code int) bool {
	return code >= 500 && code <= 599
}
