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

// Package scan is the probe engine: the per-scan transport, the host
// pacer, the bounded fan-out executor, the aggregator, and the
// orchestrator that ties them to the registry and the adapters.
package scan

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/adapter"
	"github.com/tracehound/tracehound/pkg/identifier"
	"github.com/tracehound/tracehound/pkg/license"
	"github.com/tracehound/tracehound/pkg/probe"
)

// Sentinel results for scans that ended early. Both are returned
// together with the partial report, never instead of it.
var (
	ErrScanCancelled = errors.New("scan cancelled")
	ErrScanDeadline  = errors.New("scan deadline exceeded")
)

const (
	defaultQuickDeadline = 180 * time.Second
	defaultDeepDeadline  = 600 * time.Second
)

// Config carries the per-scan knobs the CLI exposes.
type Config struct {
	// Mode selects the probe subset. Defaults to quick.
	Mode probe.Mode
	// Concurrency caps global in-flight requests. Defaults to 50.
	Concurrency int
	// Retries for transient transport failures. Defaults to 2.
	Retries int
	// RequestTimeout is the per-request deadline. Defaults to 15s.
	RequestTimeout time.Duration
	// HostInterval is the default minimum spacing between requests to
	// one host. Defaults to 100ms.
	HostInterval time.Duration
	// HostIntervalOverrides extends the registry-declared per-host
	// overrides (overlay file entries land here).
	HostIntervalOverrides map[string]time.Duration
	// ScanTimeout overrides the mode's scan deadline when positive.
	ScanTimeout time.Duration
	// Select filters categories and NSFW probes.
	Select probe.SelectOptions
	// Seed fixes the user-agent rotation sequence; zero seeds from the
	// clock.
	Seed int64
}

func (c Config) mode() probe.Mode {
	if c.Mode == "" {
		return probe.ModeQuick
	}
	return c.Mode
}

func (c Config) scanDeadline() time.Duration {
	if c.ScanTimeout > 0 {
		return c.ScanTimeout
	}
	if c.mode() == probe.ModeDeep {
		return defaultDeepDeadline
	}
	return defaultQuickDeadline
}

// Scanner is the public entry point: one per process, one scan per
// call. Each scan owns its transport, pacer and executor; concurrent
// scans share nothing mutable.
type Scanner struct {
	logger   log.Logger
	registry *probe.Registry
	gateway  license.Gateway
	adapters *adapter.Set
	cfg      Config
}

// NewScanner builds a scanner over a registry. A nil gateway permits
// everything; a nil adapter set skips sections.
func NewScanner(logger log.Logger, registry *probe.Registry, gateway license.Gateway, adapters *adapter.Set, cfg Config) *Scanner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if gateway == nil {
		gateway = license.AllowAll{}
	}
	return &Scanner{
		logger:   logger,
		registry: registry,
		gateway:  gateway,
		adapters: adapters,
		cfg:      cfg,
	}
}

// ScanUsername validates and scans a username.
func (s *Scanner) ScanUsername(ctx context.Context, username string) (*Report, error) {
	id, err := identifier.NewUsername(username)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, id)
}

// ScanEmail validates and scans an email address.
func (s *Scanner) ScanEmail(ctx context.Context, email string) (*Report, error) {
	id, err := identifier.NewEmail(email)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, id)
}

// ScanPhone validates and scans an E.164 phone number.
func (s *Scanner) ScanPhone(ctx context.Context, phone string) (*Report, error) {
	id, err := identifier.NewPhone(phone)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, id)
}

// ScanDomain validates and scans a domain.
func (s *Scanner) ScanDomain(ctx context.Context, domain string) (*Report, error) {
	id, err := identifier.NewDomain(domain)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, id)
}

func (s *Scanner) scan(ctx context.Context, id identifier.Identifier) (*Report, error) {
	mode := s.cfg.mode()
	if err := s.gateway.Permit(ctx, id.Kind(), mode); err != nil {
		return nil, err
	}

	probes := s.registry.Select(id.Kind(), mode, s.cfg.Select)
	level.Info(s.logger).Log("msg", "starting scan", "target", id.String(), "mode", mode, "probes", len(probes))

	scanCtx, cancel := context.WithTimeoutCause(ctx, s.cfg.scanDeadline(), ErrScanDeadline)
	defer cancel()

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	transport := NewTransport(TransportOptions{
		Timeout:  s.cfg.RequestTimeout,
		PoolSize: s.cfg.Concurrency,
		Seed:     seed,
	})
	overrides := s.registry.HostIntervals()
	for host, d := range s.cfg.HostIntervalOverrides {
		overrides[host] = d
	}
	pacer := NewHostPacer(s.cfg.HostInterval, overrides)
	executor := NewExecutor(s.logger, transport, pacer, ExecutorOptions{
		Concurrency: s.cfg.Concurrency,
		Retries:     s.cfg.Retries,
	})

	report := &Report{
		Target:    Target{Kind: string(id.Kind()), Value: id.Value()},
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}

	// Adapters run alongside the fan-out and merge afterwards. Their
	// failures stay inside their sections.
	var (
		sections map[string]any
		wg       sync.WaitGroup
	)
	if s.adapters != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sections = s.adapters.Run(scanCtx, id)
		}()
	}

	agg := NewAggregator(s.registry)
	agg.Drain(executor.Run(scanCtx, probes, id))
	wg.Wait()

	hits, byCategory := agg.Hits()
	report.Stats = agg.Stats()
	report.Hits = hits
	report.ByCategory = byCategory
	report.Sections = sections
	report.Outcomes = agg.Outcomes()
	report.FinishedAt = time.Now().UTC()

	var scanErr error
	switch {
	case errors.Is(context.Cause(scanCtx), ErrScanDeadline):
		scanErr = ErrScanDeadline
	case scanCtx.Err() != nil:
		scanErr = ErrScanCancelled
	}

	// Recording must survive the cancellation that ended the scan.
	recordCtx, recordCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer recordCancel()
	s.gateway.Record(recordCtx, id.Kind(), scanErr == nil)

	level.Info(s.logger).Log("msg", "scan finished",
		"target", id.String(),
		"attempted", report.Stats.Attempted,
		"present", report.Stats.Present,
		"errors", report.Stats.Error,
		"elapsed", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, scanErr
}
