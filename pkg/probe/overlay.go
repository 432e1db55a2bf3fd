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
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tracehound/tracehound/pkg/identifier"
)

// Overlay is the optional operator-supplied registry extension: extra
// probes, per-host pacing overrides and disabled builtin ids. Overlay
// probes go through the same refusal rules as builtins.
type Overlay struct {
	Hosts    map[string]time.Duration
	Disabled []string
	Probes   []Probe
}

type overlayDoc struct {
	Hosts    map[string]string `yaml:"hosts"`
	Disabled []string          `yaml:"disabled"`
	Probes   []overlayProbe    `yaml:"probes"`
}

type overlayProbe struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	Category string            `yaml:"category"`
	URL      string            `yaml:"url"`
	Method   string            `yaml:"method"`
	Body     string            `yaml:"body"`
	Headers  map[string]string `yaml:"headers"`
	Tier     string            `yaml:"tier"`
	NSFW     bool              `yaml:"nsfw"`
	Rule     overlayRule       `yaml:"rule"`
}

type overlayRule struct {
	Type      string   `yaml:"type"`
	Status    int      `yaml:"status"`
	Markers   []string `yaml:"markers"`
	Pointer   string   `yaml:"pointer"`
	Want      any      `yaml:"want"`
	Sentinels []any    `yaml:"sentinels"`
}

// LoadOverlayFile reads and decodes an overlay YAML file.
func LoadOverlayFile(path string) (*Overlay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open overlay file")
	}
	defer f.Close()
	o, err := LoadOverlay(f)
	return o, errors.Wrapf(err, "overlay file %s", path)
}

// LoadOverlay decodes an overlay document.
func LoadOverlay(r io.Reader) (*Overlay, error) {
	var doc overlayDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode overlay")
	}

	o := &Overlay{Disabled: doc.Disabled}
	if len(doc.Hosts) > 0 {
		o.Hosts = make(map[string]time.Duration, len(doc.Hosts))
		for host, raw := range doc.Hosts {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "host %q interval", host)
			}
			o.Hosts[host] = d
		}
	}
	for _, op := range doc.Probes {
		p, err := op.toProbe()
		if err != nil {
			return nil, err
		}
		o.Probes = append(o.Probes, p)
	}
	return o, nil
}

func (op overlayProbe) toProbe() (Probe, error) {
	rule, err := op.Rule.toRule()
	if err != nil {
		return Probe{}, errors.Wrapf(err, "probe %q", op.ID)
	}
	tier := Tier(op.Tier)
	if op.Tier == "" {
		tier = TierDeep
	}
	method := Method(op.Method)
	if op.Method == "" {
		method = MethodGet
	}
	return Probe{
		ID:           op.ID,
		DisplayName:  op.Name,
		Kind:         identifier.Kind(op.Kind),
		Category:     Category(op.Category),
		URLTemplate:  op.URL,
		Method:       method,
		BodyTemplate: op.Body,
		Headers:      op.Headers,
		Rule:         rule,
		Tier:         tier,
		NSFW:         op.NSFW,
	}, nil
}

func (or overlayRule) toRule() (Rule, error) {
	switch or.Type {
	case "status_exists":
		return StatusExists{ExpectedStatus: or.Status}, nil
	case "content_absent":
		return ContentAbsent{Markers: or.Markers}, nil
	case "content_present":
		return ContentPresent{Markers: or.Markers}, nil
	case "json_field_equals":
		return JSONFieldEquals{Pointer: or.Pointer, Want: or.Want}, nil
	case "json_field_truthy":
		return JSONFieldTruthy{Pointer: or.Pointer}, nil
	case "json_field_absent":
		return JSONFieldAbsent{Pointer: or.Pointer, Sentinels: or.Sentinels}, nil
	case "":
		return nil, errors.New("rule type is missing")
	default:
		return nil, errors.Errorf("unknown rule type %q", or.Type)
	}
}

// NewRegistryWithOverlay builds a registry from the builtin probes with
// an overlay applied: disabled ids are dropped first, then overlay
// probes are appended under the usual refusal rules. A nil overlay is
// equivalent to NewRegistry.
func NewRegistryWithOverlay(o *Overlay, builtins ...Probe) (*Registry, error) {
	if o == nil {
		return NewRegistry(builtins...)
	}
	disabled := make(map[string]bool, len(o.Disabled))
	for _, id := range o.Disabled {
		disabled[id] = true
	}
	merged := make([]Probe, 0, len(builtins)+len(o.Probes))
	for _, p := range builtins {
		if !disabled[p.ID] {
			merged = append(merged, p)
		}
	}
	merged = append(merged, o.Probes...)
	return NewRegistry(merged...)
}
