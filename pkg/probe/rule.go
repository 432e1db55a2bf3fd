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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// State is the classification outcome for one probe.
type State string

const (
	StatePresent       State = "present"
	StateAbsent        State = "absent"
	StateIndeterminate State = "indeterminate"
	StateError         State = "error"
)

// Response is the classifier's view of an HTTP exchange. The classifier
// is pure: identical responses always classify identically.
type Response struct {
	StatusCode int
	FinalURL   string
	Body       []byte
}

// Verdict is a classification result with a short diagnostic for
// indeterminate outcomes.
type Verdict struct {
	State      State
	Diagnostic string
}

// Rule is one member of the closed decision-rule alphabet. The verdict
// method is unexported so the alphabet cannot grow outside this package;
// site behaviour that fits no rule must be admitted as a new variant
// here, never as a bespoke check function.
type Rule interface {
	verdict(r *Response) Verdict
	validate() error
	// Name identifies the rule variant in logs and overlay files.
	Name() string
}

// Classify applies the probe's rule to a response. Transport failures
// never reach this point; they are emitted as error outcomes by the
// executor.
func Classify(rule Rule, r *Response) Verdict {
	return rule.verdict(r)
}

// errorURLMarkers are final-URL fragments that mean the site redirected a
// missing account to a generic error page even though it answered 200.
var errorURLMarkers = []string{"/404", "/error", "/notfound"}

func redirectedToError(finalURL string) bool {
	u := strings.ToLower(finalURL)
	for _, m := range errorURLMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}

// StatusExists reports present when the response status equals the
// expected status (200 when zero) and the final URL did not land on a
// generic error page. Used for sites that answer 404 on missing
// accounts.
type StatusExists struct {
	ExpectedStatus int
}

func (s StatusExists) Name() string { return "status_exists" }

func (s StatusExists) expected() int {
	if s.ExpectedStatus == 0 {
		return http.StatusOK
	}
	return s.ExpectedStatus
}

func (s StatusExists) validate() error {
	if s.ExpectedStatus < 0 || s.ExpectedStatus > 599 {
		return errors.Errorf("status_exists: expected status %d out of range", s.ExpectedStatus)
	}
	return nil
}

func (s StatusExists) verdict(r *Response) Verdict {
	if r.StatusCode != s.expected() {
		return Verdict{State: StateAbsent}
	}
	if redirectedToError(r.FinalURL) {
		return Verdict{State: StateAbsent}
	}
	return Verdict{State: StatePresent}
}

// ContentAbsent reports present when none of the not-found markers occur
// in the body and the final URL did not land on a generic error page.
// Used for sites that answer 200 with an error page for
// missing accounts. A non-2xx status fails the precondition and yields
// indeterminate.
type ContentAbsent struct {
	Markers []string
}

func (c ContentAbsent) Name() string { return "content_absent" }

func (c ContentAbsent) validate() error {
	if len(c.Markers) == 0 {
		return errors.New("content_absent: needs at least one not-found marker")
	}
	return nil
}

func (c ContentAbsent) verdict(r *Response) Verdict {
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return Verdict{State: StateIndeterminate, Diagnostic: fmt.Sprintf("expected 2xx, got %d", r.StatusCode)}
	}
	body := strings.ToLower(string(r.Body))
	for _, m := range c.Markers {
		if strings.Contains(body, strings.ToLower(m)) {
			return Verdict{State: StateAbsent}
		}
	}
	if redirectedToError(r.FinalURL) {
		return Verdict{State: StateAbsent}
	}
	return Verdict{State: StatePresent}
}

// ContentPresent reports present when at least one must-exist marker
// occurs in the body. Used for sites that render a generic page on miss
// and a specific page on hit.
type ContentPresent struct {
	Markers []string
}

func (c ContentPresent) Name() string { return "content_present" }

func (c ContentPresent) validate() error {
	if len(c.Markers) == 0 {
		return errors.New("content_present: needs at least one must-exist marker")
	}
	return nil
}

func (c ContentPresent) verdict(r *Response) Verdict {
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return Verdict{State: StateIndeterminate, Diagnostic: fmt.Sprintf("expected 2xx, got %d", r.StatusCode)}
	}
	body := strings.ToLower(string(r.Body))
	for _, m := range c.Markers {
		if strings.Contains(body, strings.ToLower(m)) {
			return Verdict{State: StatePresent}
		}
	}
	return Verdict{State: StateAbsent}
}

// JSONFieldEquals reports present when the body parses as JSON and the
// field at the RFC 6901 pointer equals the expected value. Used for APIs
// whose exists signal is a field like taken:true or status:20.
type JSONFieldEquals struct {
	Pointer string
	Want    any
}

func (j JSONFieldEquals) Name() string { return "json_field_equals" }

func (j JSONFieldEquals) validate() error { return validatePointer(j.Pointer) }

func (j JSONFieldEquals) verdict(r *Response) Verdict {
	v, found, err := resolvePointer(r.Body, j.Pointer)
	if err != nil {
		return Verdict{State: StateIndeterminate, Diagnostic: err.Error()}
	}
	if !found {
		return Verdict{State: StateAbsent}
	}
	if jsonEqual(v, j.Want) {
		return Verdict{State: StatePresent}
	}
	return Verdict{State: StateAbsent}
}

// JSONFieldTruthy reports present when the field at the pointer exists
// and is truthy (not null, false, 0, "", empty array or object).
type JSONFieldTruthy struct {
	Pointer string
}

func (j JSONFieldTruthy) Name() string { return "json_field_truthy" }

func (j JSONFieldTruthy) validate() error { return validatePointer(j.Pointer) }

func (j JSONFieldTruthy) verdict(r *Response) Verdict {
	v, found, err := resolvePointer(r.Body, j.Pointer)
	if err != nil {
		return Verdict{State: StateIndeterminate, Diagnostic: err.Error()}
	}
	if found && truthy(v) {
		return Verdict{State: StatePresent}
	}
	return Verdict{State: StateAbsent}
}

// JSONFieldAbsent reports present when the body parses as JSON and the
// field is missing or equals one of the sentinel not-found values.
type JSONFieldAbsent struct {
	Pointer   string
	Sentinels []any
}

func (j JSONFieldAbsent) Name() string { return "json_field_absent" }

func (j JSONFieldAbsent) validate() error { return validatePointer(j.Pointer) }

func (j JSONFieldAbsent) verdict(r *Response) Verdict {
	v, found, err := resolvePointer(r.Body, j.Pointer)
	if err != nil {
		return Verdict{State: StateIndeterminate, Diagnostic: err.Error()}
	}
	if !found {
		return Verdict{State: StatePresent}
	}
	for _, s := range j.Sentinels {
		if jsonEqual(v, s) {
			return Verdict{State: StatePresent}
		}
	}
	return Verdict{State: StateAbsent}
}

func validatePointer(p string) error {
	if p == "" {
		return errors.New("json pointer is empty")
	}
	if !strings.HasPrefix(p, "/") {
		return errors.Errorf("json pointer %q must start with /", p)
	}
	return nil
}

// resolvePointer evaluates an RFC 6901 pointer over generically decoded
// JSON. The bool reports whether the pointed-at field exists; a decode
// failure is the only error case.
func resolvePointer(body []byte, pointer string) (any, bool, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, errors.Wrap(err, "body is not JSON")
	}
	cur := doc
	for _, tok := range strings.Split(pointer, "/")[1:] {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tok = strings.ReplaceAll(tok, "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[tok]
			if !ok {
				return nil, false, nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false, nil
			}
			cur = node[i]
		default:
			return nil, false, nil
		}
	}
	return cur, true, nil
}

// jsonEqual compares a decoded JSON value against an expected Go value,
// normalising numbers to float64 the way encoding/json decodes them.
func jsonEqual(got, want any) bool {
	if n, ok := normalizeNumber(want); ok {
		g, ok := got.(float64)
		return ok && g == n
	}
	switch w := want.(type) {
	case nil:
		return got == nil
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	case string:
		g, ok := got.(string)
		return ok && g == w
	default:
		return false
	}
}

func normalizeNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
