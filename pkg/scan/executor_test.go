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
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tracehound/tracehound/pkg/identifier"
	"github.com/tracehound/tracehound/pkg/probe"
)

// fakeFetcher scripts transport behaviour per URL and records attempt
// counts and the maximum number of concurrent in-flight calls.
type fakeFetcher struct {
	handler func(req *Request, attempt int) (*Response, error)

	mtx         sync.Mutex
	calls       map[string]int
	inflight    int
	maxInflight int
}

func newFakeFetcher(handler func(req *Request, attempt int) (*Response, error)) *fakeFetcher {
	return &fakeFetcher{handler: handler, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, req *Request) (*Response, error) {
	f.mtx.Lock()
	f.calls[req.URL]++
	attempt := f.calls[req.URL]
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mtx.Unlock()

	defer func() {
		f.mtx.Lock()
		f.inflight--
		f.mtx.Unlock()
	}()
	return f.handler(req, attempt)
}

func (f *fakeFetcher) attempts(url string) int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) peakInflight() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.maxInflight
}

func ok(req *Request, body string) (*Response, error) {
	return &Response{StatusCode: http.StatusOK, FinalURL: req.URL, Body: []byte(body)}, nil
}

func testUser(t *testing.T) identifier.Identifier {
	t.Helper()
	id, err := identifier.NewUsername("alice")
	require.NoError(t, err)
	return id
}

func statusProbe(id, host string) probe.Probe {
	return probe.Probe{
		ID:          id,
		DisplayName: id,
		Kind:        identifier.KindUsername,
		Category:    probe.CategorySocial,
		URLTemplate: "https://" + host + "/user/{}",
		Tier:        probe.TierQuick,
		Rule:        probe.StatusExists{},
	}
}

func drain(outcomes <-chan Outcome) []Outcome {
	var out []Outcome
	for o := range outcomes {
		out = append(out, o)
	}
	return out
}

func TestExecutorEmitsOneOutcomePerProbe(t *testing.T) {
	t.Parallel()

	probes := make([]probe.Probe, 0, 20)
	for i := range 20 {
		probes = append(probes, statusProbe(fmt.Sprintf("p%02d", i), fmt.Sprintf("h%02d.example", i)))
	}
	fetcher := newFakeFetcher(func(req *Request, _ int) (*Response, error) {
		return ok(req, "hi")
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{Concurrency: 8})

	outcomes := drain(e.Run(context.Background(), probes, testUser(t)))
	require.Len(t, outcomes, len(probes))

	seen := map[string]int{}
	for _, o := range outcomes {
		seen[o.ProbeID]++
		require.Equal(t, probe.StatePresent, o.State)
	}
	for _, p := range probes {
		require.Equal(t, 1, seen[p.ID], "probe %s must yield exactly one outcome", p.ID)
	}
}

func TestExecutorHonoursConcurrencyCap(t *testing.T) {
	t.Parallel()

	const limit = 5
	probes := make([]probe.Probe, 0, 40)
	for i := range 40 {
		probes = append(probes, statusProbe(fmt.Sprintf("p%02d", i), fmt.Sprintf("h%02d.example", i)))
	}
	fetcher := newFakeFetcher(func(req *Request, _ int) (*Response, error) {
		time.Sleep(20 * time.Millisecond)
		return ok(req, "hi")
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{Concurrency: limit})

	outcomes := drain(e.Run(context.Background(), probes, testUser(t)))
	require.Len(t, outcomes, 40)
	require.LessOrEqual(t, fetcher.peakInflight(), limit)
}

// A transient server error is retried with backoff and the eventual
// success classifies normally: (500, 500, 200) is one present outcome
// from exactly three attempts.
func TestExecutorRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	p := probe.Probe{
		ID:          "flaky",
		DisplayName: "Flaky",
		Kind:        identifier.KindUsername,
		Category:    probe.CategorySocial,
		URLTemplate: "https://flaky.example/{}",
		Tier:        probe.TierQuick,
		Rule:        probe.ContentPresent{Markers: []string{"exists"}},
	}
	fetcher := newFakeFetcher(func(req *Request, attempt int) (*Response, error) {
		if attempt <= 2 {
			return &Response{StatusCode: 500, FinalURL: req.URL}, nil
		}
		return ok(req, "user exists")
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{Retries: 2})

	outcomes := drain(e.Run(context.Background(), []probe.Probe{p}, testUser(t)))
	require.Len(t, outcomes, 1)
	require.Equal(t, probe.StatePresent, outcomes[0].State)
	require.Equal(t, 3, outcomes[0].Attempts)
	require.Equal(t, 3, fetcher.attempts("https://flaky.example/alice"))
}

func TestExecutorExhaustedRetriesYieldError(t *testing.T) {
	t.Parallel()

	p := statusProbe("down", "down.example")
	fetcher := newFakeFetcher(func(_ *Request, _ int) (*Response, error) {
		return nil, ErrRequestTimeout
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{Retries: 2})

	outcomes := drain(e.Run(context.Background(), []probe.Probe{p}, testUser(t)))
	require.Len(t, outcomes, 1)
	require.Equal(t, probe.StateError, outcomes[0].State)
	require.Equal(t, 3, outcomes[0].Attempts)
	require.Contains(t, outcomes[0].Diagnostic, "deadline")
}

func TestExecutorPermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	p := statusProbe("tls", "tls.example")
	fetcher := newFakeFetcher(func(_ *Request, _ int) (*Response, error) {
		return nil, fmt.Errorf("x509: certificate signed by unknown authority")
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{Retries: 2})

	outcomes := drain(e.Run(context.Background(), []probe.Probe{p}, testUser(t)))
	require.Len(t, outcomes, 1)
	require.Equal(t, probe.StateError, outcomes[0].State)
	require.Equal(t, 1, outcomes[0].Attempts)
}

// After cancellation every remaining probe still yields an outcome and
// the stream closes promptly.
func TestExecutorCancellationClosesStream(t *testing.T) {
	t.Parallel()

	probes := make([]probe.Probe, 0, 10)
	for i := range 10 {
		probes = append(probes, statusProbe(fmt.Sprintf("p%02d", i), fmt.Sprintf("h%02d.example", i)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := newFakeFetcher(func(req *Request, _ int) (*Response, error) {
		<-ctx.Done()
		return nil, ErrRequestCancelled
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{Concurrency: 4})

	stream := e.Run(ctx, probes, testUser(t))
	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan []Outcome, 1)
	go func() { done <- drain(stream) }()
	select {
	case outcomes := <-done:
		require.Len(t, outcomes, len(probes))
		for _, o := range outcomes {
			require.Equal(t, probe.StateError, o.State)
			require.Equal(t, "cancelled", o.Diagnostic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outcome stream did not close after cancellation")
	}
}

func TestExecutorRecoversPanickingProbe(t *testing.T) {
	t.Parallel()

	p := statusProbe("boom", "boom.example")
	fetcher := newFakeFetcher(func(_ *Request, _ int) (*Response, error) {
		panic("handler exploded")
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{})

	outcomes := drain(e.Run(context.Background(), []probe.Probe{p}, testUser(t)))
	require.Len(t, outcomes, 1)
	require.Equal(t, probe.StateError, outcomes[0].State)
	require.Contains(t, outcomes[0].Diagnostic, "internal")
}

func TestExecutorMalformedRenderedURL(t *testing.T) {
	t.Parallel()

	p := probe.Probe{
		ID:          "bad",
		DisplayName: "Bad",
		Kind:        identifier.KindUsername,
		Category:    probe.CategorySocial,
		URLTemplate: "https://bad.example/\x7f{}",
		Tier:        probe.TierQuick,
		Rule:        probe.StatusExists{},
	}
	fetcher := newFakeFetcher(func(req *Request, _ int) (*Response, error) {
		return ok(req, "hi")
	})
	e := NewExecutor(nil, fetcher, NewHostPacer(time.Millisecond, nil), ExecutorOptions{})

	outcomes := drain(e.Run(context.Background(), []probe.Probe{p}, testUser(t)))
	require.Len(t, outcomes, 1)
	require.Equal(t, probe.StateError, outcomes[0].State)
	require.Contains(t, outcomes[0].Diagnostic, "malformed url")
	require.Equal(t, 0, fetcher.attempts(p.URLTemplate))
}
