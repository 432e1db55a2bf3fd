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
	"sort"
	"strings"

	"github.com/tracehound/tracehound/pkg/probe"
)

// Aggregator is the single consumer of the outcome stream. It counts
// states, restores registry order over the executor's arrival order, and
// collapses hits whose final URLs point at the same resource.
type Aggregator struct {
	registry *probe.Registry

	outcomes []Outcome
	stats    Stats
}

// NewAggregator builds an aggregator over the registry used for the
// scan. Registry positions define the final hit order.
func NewAggregator(registry *probe.Registry) *Aggregator {
	return &Aggregator{registry: registry}
}

// Add folds one outcome into the tally. Outcomes are never mutated after
// this point.
func (a *Aggregator) Add(o Outcome) {
	a.outcomes = append(a.outcomes, o)
	a.stats.Attempted++
	switch o.State {
	case probe.StatePresent:
		a.stats.Present++
	case probe.StateAbsent:
		a.stats.Absent++
	case probe.StateIndeterminate:
		a.stats.Indeterminate++
	case probe.StateError:
		a.stats.Error++
	}
}

// Drain consumes the whole outcome stream.
func (a *Aggregator) Drain(outcomes <-chan Outcome) {
	for o := range outcomes {
		a.Add(o)
	}
}

// Stats returns the counters accumulated so far.
func (a *Aggregator) Stats() Stats { return a.stats }

// Outcomes returns every collected outcome in arrival order.
func (a *Aggregator) Outcomes() []Outcome { return a.outcomes }

// Hits builds the deduplicated hit list in registry order and the
// per-category grouping. Two hits whose final URLs differ only by case
// or a trailing slash are one resource; the earlier registry position
// wins. Dropped duplicates are removed from the present count so the
// hits length always equals stats.present.
func (a *Aggregator) Hits() ([]Hit, map[string][]Hit) {
	present := make([]Outcome, 0, a.stats.Present)
	for _, o := range a.outcomes {
		if o.State == probe.StatePresent {
			present = append(present, o)
		}
	}
	sort.SliceStable(present, func(i, j int) bool {
		return a.registry.Position(present[i].ProbeID) < a.registry.Position(present[j].ProbeID)
	})

	seen := make(map[string]bool, len(present))
	hits := make([]Hit, 0, len(present))
	byCategory := map[string][]Hit{}
	for _, o := range present {
		key := canonicalURL(o.FinalURL)
		if key != "" && seen[key] {
			a.stats.Present--
			continue
		}
		seen[key] = true

		p, ok := a.registry.Lookup(o.ProbeID)
		if !ok {
			// Outcomes always reference the scan's registry; tolerate a
			// miss rather than drop the hit silently.
			p.DisplayName = o.ProbeID
		}
		h := Hit{
			ProbeID:  o.ProbeID,
			Name:     p.DisplayName,
			Category: string(p.Category),
			URL:      o.FinalURL,
		}
		hits = append(hits, h)
		byCategory[h.Category] = append(byCategory[h.Category], h)
	}
	return hits, byCategory
}

func canonicalURL(u string) string {
	return strings.TrimSuffix(strings.ToLower(u), "/")
}
