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

package probe

import (
	"net/url"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/identifier"
)

// Registry is the canonical, read-only table of probes. It is built once
// at process start; the declared order is stable and defines the
// user-visible hit order in reports.
type Registry struct {
	probes []Probe
	byID   map[string]int
}

// NewRegistry builds a registry from probe sources in declaration order.
// Exactly identical duplicate definitions are merged (first position
// wins); a probe id redefined with different fields or a different rule
// is rejected, as are malformed templates.
func NewRegistry(probes ...Probe) (*Registry, error) {
	r := &Registry{byID: make(map[string]int, len(probes))}
	for _, p := range probes {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if i, ok := r.byID[p.ID]; ok {
			if reflect.DeepEqual(r.probes[i], p) {
				continue
			}
			return nil, errors.Errorf("probe %q redefined with conflicting fields", p.ID)
		}
		r.byID[p.ID] = len(r.probes)
		r.probes = append(r.probes, p)
	}
	return r, nil
}

// SelectOptions filter the probe subset beyond kind and mode.
type SelectOptions struct {
	IncludeCategories []Category
	ExcludeCategories []Category
	IncludeNSFW       bool
}

// Select returns the probe subset for an identifier kind and scan mode in
// registry order. Quick mode selects quick-tier probes; deep mode selects
// the union of both tiers.
func (r *Registry) Select(kind identifier.Kind, mode Mode, opts SelectOptions) []Probe {
	include := map[Category]bool{}
	for _, c := range opts.IncludeCategories {
		include[c] = true
	}
	exclude := map[Category]bool{}
	for _, c := range opts.ExcludeCategories {
		exclude[c] = true
	}

	var out []Probe
	for _, p := range r.probes {
		if p.Kind != kind {
			continue
		}
		if mode == ModeQuick && p.Tier != TierQuick {
			continue
		}
		if p.NSFW && !opts.IncludeNSFW {
			continue
		}
		if len(include) > 0 && !include[p.Category] {
			continue
		}
		if exclude[p.Category] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Lookup returns the full probe for an id.
func (r *Registry) Lookup(id string) (Probe, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Probe{}, false
	}
	return r.probes[i], true
}

// Position returns the probe's registry position, used by the aggregator
// to restore declaration order over the executor's arrival order. Unknown
// ids sort last.
func (r *Registry) Position(id string) int {
	if i, ok := r.byID[id]; ok {
		return i
	}
	return len(r.probes)
}

// Len reports the number of registered probes.
func (r *Registry) Len() int { return len(r.probes) }

// HostIntervals collects the per-host pacing overrides declared on
// probes. Conflicting declarations keep the largest interval.
func (r *Registry) HostIntervals() map[string]time.Duration {
	out := map[string]time.Duration{}
	for _, p := range r.probes {
		if p.MinHostInterval <= 0 {
			continue
		}
		h := templateHost(p.URLTemplate)
		if h == "" {
			continue
		}
		if p.MinHostInterval > out[h] {
			out[h] = p.MinHostInterval
		}
	}
	return out
}

func templateHost(tmpl string) string {
	u, err := url.Parse(tmpl)
	if err != nil {
		return ""
	}
	return u.Host
}
