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

// Package identifier holds the validated scan targets. An Identifier is
// immutable for the lifetime of one scan; every constructor rejects
// malformed input with a ValidationError before any probe runs.
package identifier

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Kind discriminates the identifier variants.
type Kind string

const (
	KindUsername Kind = "username"
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindDomain   Kind = "domain"
)

// Identifier is a validated scan target.
type Identifier struct {
	kind  Kind
	value string
}

// ValidationError describes why an input was rejected. It is surfaced to
// the caller before any probe runs.
type ValidationError struct {
	Kind   Kind
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Value, e.Reason)
}

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]+$`)
	emailRe    = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)+$`)
	phoneRe    = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
	labelRe    = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
)

// NewUsername validates a username target. Usernames must be at least two
// characters and restricted to the charset accepted by the probed sites.
func NewUsername(v string) (Identifier, error) {
	v = strings.TrimSpace(v)
	if len(v) < 2 {
		return Identifier{}, &ValidationError{Kind: KindUsername, Value: v, Reason: "must be at least 2 characters"}
	}
	if !usernameRe.MatchString(v) {
		return Identifier{}, &ValidationError{Kind: KindUsername, Value: v, Reason: "contains characters outside [A-Za-z0-9._-]"}
	}
	return Identifier{kind: KindUsername, value: v}, nil
}

// NewEmail validates an email address target.
func NewEmail(v string) (Identifier, error) {
	v = strings.TrimSpace(v)
	if !emailRe.MatchString(v) {
		return Identifier{}, &ValidationError{Kind: KindEmail, Value: v, Reason: "not an RFC-shaped address"}
	}
	return Identifier{kind: KindEmail, value: strings.ToLower(v)}, nil
}

// NewPhone validates a phone number target. Numbers must be in E.164 form;
// common separators are stripped before validation.
func NewPhone(v string) (Identifier, error) {
	raw := v
	v = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(v))
	if !phoneRe.MatchString(v) {
		return Identifier{}, &ValidationError{Kind: KindPhone, Value: raw, Reason: "not an E.164 number (+ followed by 7-15 digits)"}
	}
	return Identifier{kind: KindPhone, value: v}, nil
}

// NewDomain validates a domain target. Scheme prefixes and a leading
// "www." are stripped first, matching how users paste domains.
func NewDomain(v string) (Identifier, error) {
	raw := v
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "http://")
	v = strings.TrimPrefix(v, "https://")
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimPrefix(v, "www.")
	v = strings.TrimSuffix(v, ".")

	labels := strings.Split(v, ".")
	if len(labels) < 2 {
		return Identifier{}, &ValidationError{Kind: KindDomain, Value: raw, Reason: "missing public suffix"}
	}
	for _, l := range labels {
		if !labelRe.MatchString(l) {
			return Identifier{}, &ValidationError{Kind: KindDomain, Value: raw, Reason: fmt.Sprintf("label %q is malformed", l)}
		}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(v); err != nil {
		return Identifier{}, &ValidationError{Kind: KindDomain, Value: raw, Reason: "no effective TLD"}
	}
	return Identifier{kind: KindDomain, value: v}, nil
}

// Kind returns the identifier variant.
func (id Identifier) Kind() Kind { return id.kind }

// Value returns the validated, normalised target value.
func (id Identifier) Value() string { return id.value }

// Encoded returns the value in URL-safe form for template substitution.
// Phone numbers keep their leading "+" so path-style templates such as
// t.me profiles work; everything else is query-escaped.
func (id Identifier) Encoded() string {
	if id.kind == KindPhone {
		return url.PathEscape(id.value)
	}
	return url.QueryEscape(id.value)
}

func (id Identifier) String() string {
	return string(id.kind) + ":" + id.value
}
