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
	"net/url"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/identifier"
	"github.com/tracehound/tracehound/pkg/probe"
)

const (
	defaultConcurrency = 50
	defaultRetries     = 2
	backoffBase        = 100 * time.Millisecond
)

// Outcome is the per-probe classification result. Exactly one outcome is
// emitted for every dispatched probe, cancellation included.
type Outcome struct {
	ProbeID    string      `json:"probe_id"`
	State      probe.State `json:"state"`
	FinalURL   string      `json:"final_url,omitempty"`
	LatencyMs  int64       `json:"latency_ms"`
	Diagnostic string      `json:"diagnostic,omitempty"`
	Attempts   int         `json:"attempts"`
}

// Fetcher performs one probe exchange. *Transport is the production
// implementation; tests substitute recorded responses.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// Executor fans probes out under the global concurrency cap and the
// per-host pacer, streaming outcomes in completion order.
type Executor struct {
	logger    log.Logger
	transport Fetcher
	pacer     *HostPacer

	concurrency int
	retries     int
}

// ExecutorOptions configure the fan-out.
type ExecutorOptions struct {
	// Concurrency caps in-flight requests globally. Defaults to 50.
	Concurrency int
	// Retries is how often a transient failure is retried. Defaults
	// to 2 (three attempts total).
	Retries int
}

// NewExecutor builds an executor around a scan's transport and pacer.
func NewExecutor(logger log.Logger, transport Fetcher, pacer *HostPacer, opts ExecutorOptions) *Executor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	return &Executor{
		logger:      logger,
		transport:   transport,
		pacer:       pacer,
		concurrency: opts.Concurrency,
		retries:     opts.Retries,
	}
}

// Run dispatches the probes in registry order and returns the outcome
// stream. The stream closes once every dispatched probe has yielded an
// outcome; after cancellation that happens within one transport timeout.
func (e *Executor) Run(ctx context.Context, probes []probe.Probe, id identifier.Identifier) <-chan Outcome {
	out := make(chan Outcome, len(probes))
	sem := make(chan struct{}, e.concurrency)

	var wg sync.WaitGroup
	for _, p := range probes {
		wg.Add(1)
		go func(p probe.Probe) {
			defer wg.Done()
			out <- e.runProbe(ctx, sem, p, id)
		}(p)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// runProbe walks one probe through pacing, the semaphore, the transport
// and the classifier. It always returns an outcome; panics become error
// outcomes so a misbehaving probe can never wedge the stream.
func (e *Executor) runProbe(ctx context.Context, sem chan struct{}, p probe.Probe, id identifier.Identifier) (o Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			level.Error(e.logger).Log("msg", "probe worker panicked", "probe", p.ID, "panic", r)
			o = e.finish(Outcome{
				ProbeID:    p.ID,
				State:      probe.StateError,
				Diagnostic: fmt.Sprintf("internal: %v", r),
				LatencyMs:  msSince(start),
				Attempts:   1,
			})
		}
	}()

	target := p.URL(id)
	parsed, err := url.Parse(target)
	if err != nil {
		return e.finish(Outcome{
			ProbeID:    p.ID,
			State:      probe.StateError,
			Diagnostic: "malformed url: " + err.Error(),
			LatencyMs:  msSince(start),
		})
	}

	if err := e.pacer.Acquire(ctx, parsed.Host); err != nil {
		return e.cancelled(ctx, p, start, 0)
	}
	defer e.pacer.Release(parsed.Host)

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return e.cancelled(ctx, p, start, 0)
	}
	defer func() { <-sem }()

	return e.attempt(ctx, p, id, target, start)
}

func (e *Executor) attempt(ctx context.Context, p probe.Probe, id identifier.Identifier, target string, start time.Time) Outcome {
	req := &Request{
		Method:  p.Method,
		URL:     target,
		Body:    p.Body(id),
		Headers: p.Headers,
	}
	if req.Method == "" {
		req.Method = probe.MethodGet
	}

	attempts := 0
	for try := 0; ; try++ {
		attempts++
		probeAttempts.Inc()
		inflightRequests.Inc()
		resp, err := e.transport.Fetch(ctx, req)
		inflightRequests.Dec()

		if err != nil {
			if errors.Is(err, ErrRequestCancelled) || ctx.Err() != nil {
				return e.cancelled(ctx, p, start, attempts)
			}
			if IsTransientError(err) && try < e.retries {
				probeRetries.Inc()
				level.Debug(e.logger).Log("msg", "retrying probe", "probe", p.ID, "attempt", attempts, "err", err)
				if !e.backoff(ctx, try) {
					return e.cancelled(ctx, p, start, attempts)
				}
				continue
			}
			return e.finish(Outcome{
				ProbeID:    p.ID,
				State:      probe.StateError,
				Diagnostic: err.Error(),
				LatencyMs:  msSince(start),
				Attempts:   attempts,
			})
		}

		if TransientStatus(resp.StatusCode) {
			if try < e.retries {
				probeRetries.Inc()
				if !e.backoff(ctx, try) {
					return e.cancelled(ctx, p, start, attempts)
				}
				continue
			}
			return e.finish(Outcome{
				ProbeID:    p.ID,
				State:      probe.StateError,
				FinalURL:   resp.FinalURL,
				Diagnostic: fmt.Sprintf("server status %d after %d attempts", resp.StatusCode, attempts),
				LatencyMs:  msSince(start),
				Attempts:   attempts,
			})
		}

		v := probe.Classify(p.Rule, &probe.Response{
			StatusCode: resp.StatusCode,
			FinalURL:   resp.FinalURL,
			Body:       resp.Body,
		})
		return e.finish(Outcome{
			ProbeID:    p.ID,
			State:      v.State,
			FinalURL:   resp.FinalURL,
			Diagnostic: v.Diagnostic,
			LatencyMs:  msSince(start),
			Attempts:   attempts,
		})
	}
}

// backoff sleeps the exponential retry delay (100ms, then 400ms). It
// reports false when the scan was cancelled during the wait.
func (e *Executor) backoff(ctx context.Context, try int) bool {
	d := backoffBase << (2 * try)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Executor) cancelled(ctx context.Context, p probe.Probe, start time.Time, attempts int) Outcome {
	diag := "cancelled"
	if errors.Is(context.Cause(ctx), ErrScanDeadline) {
		diag = "scan deadline exceeded"
	}
	return e.finish(Outcome{
		ProbeID:    p.ID,
		State:      probe.StateError,
		Diagnostic: diag,
		LatencyMs:  msSince(start),
		Attempts:   attempts,
	})
}

func (e *Executor) finish(o Outcome) Outcome {
	probeOutcomes.WithLabelValues(string(o.State)).Inc()
	probeLatency.Observe(float64(o.LatencyMs) / 1000)
	return o
}

func msSince(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
