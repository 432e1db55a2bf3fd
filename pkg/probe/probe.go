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

// Package probe holds the endpoint catalogue and the closed alphabet of
// decision rules used to classify responses. Probes are built once at
// process start and are read-only afterwards; all scan workers share the
// registry without synchronisation.
package probe

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/identifier"
)

// Mode selects the probe subset for a scan.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeDeep  Mode = "deep"
)

// Tier governs which modes a probe participates in. Quick-tier probes run
// in both modes; deep-tier probes only in deep scans.
type Tier string

const (
	TierQuick Tier = "quick"
	TierDeep  Tier = "deep"
)

// Category tags a probe for subset selection and report grouping.
type Category string

const (
	CategorySocial    Category = "Social"
	CategoryTech      Category = "Tech"
	CategoryGaming    Category = "Gaming"
	CategoryMusic     Category = "Music"
	CategoryArt       Category = "Art"
	CategoryStreaming Category = "Streaming"
	CategoryFinance   Category = "Finance"
	CategoryIndonesia Category = "Indonesia"
	CategoryDating    Category = "Dating"
	CategoryNSFW      Category = "NSFW"
	CategoryShopping  Category = "Shopping"
	CategoryNews      Category = "News"
)

// Method is the HTTP method a probe uses.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Placeholder marks where the identifier is substituted into templates.
const Placeholder = "{}"

// Probe describes one reachable endpoint and the rule that decides
// whether the identifier is present there.
type Probe struct {
	// ID is a stable slug, unique within the registry.
	ID string
	// DisplayName is the human label shown in reports.
	DisplayName string
	// Kind is the identifier variant this probe accepts.
	Kind identifier.Kind
	// Category groups the probe in reports and filters.
	Category Category
	// URLTemplate carries exactly one {} placeholder for the
	// URL-safe-encoded identifier.
	URLTemplate string
	// Method defaults to GET when empty.
	Method Method
	// BodyTemplate is the request body for POST probes; it may carry a
	// {} placeholder too.
	BodyTemplate string
	// Headers are static extra headers. Most probes use the default set.
	Headers map[string]string
	// Rule is the decision rule applied to the response.
	Rule Rule
	// Tier is quick or deep.
	Tier Tier
	// NSFW marks probes excludable with the no-nsfw filter.
	NSFW bool
	// MinHostInterval overrides the pacer's default spacing for this
	// probe's host. Zero means the pacer default.
	MinHostInterval time.Duration
}

func (p Probe) method() Method {
	if p.Method == "" {
		return MethodGet
	}
	return p.Method
}

// URL substitutes the encoded identifier into the probe's URL template.
func (p Probe) URL(id identifier.Identifier) string {
	return strings.Replace(p.URLTemplate, Placeholder, id.Encoded(), 1)
}

// Body substitutes the encoded identifier into the body template.
func (p Probe) Body(id identifier.Identifier) string {
	if p.BodyTemplate == "" {
		return ""
	}
	return strings.Replace(p.BodyTemplate, Placeholder, id.Encoded(), 1)
}

func (p Probe) validate() error {
	if p.ID == "" {
		return errors.New("probe id is empty")
	}
	if p.DisplayName == "" {
		return errors.Errorf("probe %q: display name is empty", p.ID)
	}
	switch p.Kind {
	case identifier.KindUsername, identifier.KindEmail, identifier.KindPhone, identifier.KindDomain:
	default:
		return errors.Errorf("probe %q: unknown identifier kind %q", p.ID, p.Kind)
	}
	if n := strings.Count(p.URLTemplate, Placeholder); n != 1 {
		return errors.Errorf("probe %q: url template must carry exactly one %s placeholder, got %d", p.ID, Placeholder, n)
	}
	if !strings.HasPrefix(p.URLTemplate, "http://") && !strings.HasPrefix(p.URLTemplate, "https://") {
		return errors.Errorf("probe %q: url template must be absolute", p.ID)
	}
	switch p.method() {
	case MethodGet:
		if p.BodyTemplate != "" {
			return errors.Errorf("probe %q: GET probes must not carry a body template", p.ID)
		}
	case MethodPost:
	default:
		return errors.Errorf("probe %q: unsupported method %q", p.ID, p.Method)
	}
	switch p.Tier {
	case TierQuick, TierDeep:
	default:
		return errors.Errorf("probe %q: tier must be quick or deep", p.ID)
	}
	if p.Rule == nil {
		return errors.Errorf("probe %q: missing decision rule", p.ID)
	}
	if err := p.Rule.validate(); err != nil {
		return errors.Wrapf(err, "probe %q", p.ID)
	}
	return nil
}
