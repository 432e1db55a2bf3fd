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

// Package adapter holds the single-endpoint lookups that attach to a
// scan report as named sections. Adapters run alongside the probe
// fan-out but are not part of it: each runs under its own deadline,
// and a failing adapter degrades its section to a structured error
// without touching the probe results. The HTTP API adapters (breach,
// carrier, geoip) each hold their own rate limiter; dns, whois, tlscert
// and headers are not rate-limited.
package adapter

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/tracehound/tracehound/pkg/identifier"
)

// defaultDeadline bounds one adapter lookup independently of the probe
// engine's deadlines.
const defaultDeadline = 10 * time.Second

// Adapter is one external lookup. The returned value becomes the
// report section under Name.
type Adapter interface {
	Name() string
	Kind() identifier.Kind
	Lookup(ctx context.Context, id identifier.Identifier) (any, error)
}

// SectionError is the structured form an adapter failure takes in the
// report.
type SectionError struct {
	Error string `json:"error"`
}

// Set runs the adapters matching an identifier kind concurrently and
// collects their sections.
type Set struct {
	logger   log.Logger
	adapters []Adapter
}

// NewSet builds an adapter set.
func NewSet(logger log.Logger, adapters ...Adapter) *Set {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Set{logger: logger, adapters: adapters}
}

// Run performs every matching lookup concurrently. Errors never abort
// the scan; they become SectionError values. The result is nil when no
// adapter matched.
func (s *Set) Run(ctx context.Context, id identifier.Identifier) map[string]any {
	var (
		mtx      sync.Mutex
		sections map[string]any
		wg       sync.WaitGroup
	)
	put := func(name string, v any) {
		mtx.Lock()
		defer mtx.Unlock()
		if sections == nil {
			sections = map[string]any{}
		}
		sections[name] = v
	}

	for _, a := range s.adapters {
		if a.Kind() != id.Kind() {
			continue
		}
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			actx, cancel := context.WithTimeout(ctx, defaultDeadline)
			defer cancel()
			v, err := a.Lookup(actx, id)
			if err != nil {
				level.Warn(s.logger).Log("msg", "adapter lookup failed", "adapter", a.Name(), "err", err)
				put(a.Name(), SectionError{Error: err.Error()})
				return
			}
			put(a.Name(), v)
		}(a)
	}
	wg.Wait()
	return sections
}

// newHTTPClient builds the small pooled client the HTTP-backed adapters
// share the shape of. Adapters own their clients; nothing is
// process-wide.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultDeadline
	}
	return &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   timeout,
	}
}
