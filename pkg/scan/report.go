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
	"time"

	"github.com/tracehound/tracehound/pkg/probe"
)

// Target identifies what was scanned.
type Target struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Stats are the per-state outcome counters. Attempted always equals the
// sum of the four states: absence from the report means absent, never
// uncollected.
type Stats struct {
	Attempted     int `json:"attempted"`
	Present       int `json:"present"`
	Error         int `json:"error"`
	Absent        int `json:"absent"`
	Indeterminate int `json:"indeterminate"`
}

// Hit is one present outcome enriched with its probe's display fields.
type Hit struct {
	ProbeID  string `json:"probe_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// Report is the aggregated output of one scan invocation. Hits are in
// registry order regardless of completion order, so a report is
// deterministic given identical classifications.
type Report struct {
	Target     Target           `json:"target"`
	Mode       probe.Mode       `json:"mode"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Stats      Stats            `json:"stats"`
	Hits       []Hit            `json:"hits"`
	ByCategory map[string][]Hit `json:"by_category"`
	Sections   map[string]any   `json:"sections,omitempty"`

	// Outcomes retains every classification for metrics and debugging;
	// it is not part of the stable JSON shape.
	Outcomes []Outcome `json:"-"`
}
