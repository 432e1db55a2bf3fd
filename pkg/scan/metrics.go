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

import "github.com/prometheus/client_golang/prometheus"

var (
	probeAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracehound_probe_attempts_total",
		Help: "Number of probe HTTP attempts, including retries.",
	})
	probeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracehound_probe_outcomes_total",
		Help: "Number of emitted probe outcomes by state.",
	}, []string{"state"})
	probeRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracehound_probe_retries_total",
		Help: "Number of transient-failure retries.",
	})
	inflightRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracehound_inflight_requests",
		Help: "Number of in-flight probe requests.",
	})
	probeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracehound_probe_latency_seconds",
		Help:    "End-to-end probe latency including pacing and retries.",
		Buckets: prometheus.DefBuckets,
	})
)

// RegisterMetrics registers the probe-engine metrics. A nil registerer
// disables registration, matching how the exporter-style constructors
// treat it.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	reg.MustRegister(
		probeAttempts,
		probeOutcomes,
		probeRetries,
		inflightRequests,
		probeLatency,
	)
}
