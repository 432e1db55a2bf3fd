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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusExists(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		rule StatusExists
		resp Response
		want State
	}{
		{
			name: "status match is present",
			rule: StatusExists{},
			resp: Response{StatusCode: 200, FinalURL: "https://a.example/alice"},
			want: StatePresent,
		},
		{
			name: "404 is absent",
			rule: StatusExists{},
			resp: Response{StatusCode: 404, FinalURL: "https://a.example/alice"},
			want: StateAbsent,
		},
		{
			name: "custom expected status",
			rule: StatusExists{ExpectedStatus: 302},
			resp: Response{StatusCode: 302, FinalURL: "https://a.example/alice"},
			want: StatePresent,
		},
		{
			name: "redirect to error page is absent despite 200",
			rule: StatusExists{},
			resp: Response{StatusCode: 200, FinalURL: "https://a.example/404"},
			want: StateAbsent,
		},
		{
			name: "redirect to notfound page is absent",
			rule: StatusExists{},
			resp: Response{StatusCode: 200, FinalURL: "https://a.example/NotFound"},
			want: StateAbsent,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Classify(tt.rule, &tt.resp).State)
		})
	}
}

func TestContentRules(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		rule Rule
		resp Response
		want State
	}{
		{
			name: "absent marker found",
			rule: ContentAbsent{Markers: []string{"not found"}},
			resp: Response{StatusCode: 200, Body: []byte("<h1>User Not Found</h1>")},
			want: StateAbsent,
		},
		{
			name: "absent marker missing means present",
			rule: ContentAbsent{Markers: []string{"not found"}},
			resp: Response{StatusCode: 200, Body: []byte("<h1>alice's profile</h1>")},
			want: StatePresent,
		},
		{
			name: "absent rule on non-2xx is indeterminate",
			rule: ContentAbsent{Markers: []string{"not found"}},
			resp: Response{StatusCode: 403, Body: []byte("blocked")},
			want: StateIndeterminate,
		},
		{
			name: "present marker found case-insensitively",
			rule: ContentPresent{Markers: []string{"Public Playlists"}},
			resp: Response{StatusCode: 200, Body: []byte("<div>public playlists</div>")},
			want: StatePresent,
		},
		{
			name: "present marker missing means absent",
			rule: ContentPresent{Markers: []string{"Public Playlists"}},
			resp: Response{StatusCode: 200, Body: []byte("<div>generic landing page</div>")},
			want: StateAbsent,
		},
		{
			name: "present rule on non-2xx is indeterminate",
			rule: ContentPresent{Markers: []string{"Public Playlists"}},
			resp: Response{StatusCode: 500, Body: []byte("oops")},
			want: StateIndeterminate,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Classify(tt.rule, &tt.resp).State)
		})
	}
}

func TestJSONRules(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		rule Rule
		resp Response
		want State
	}{
		{
			name: "field equals bool",
			rule: JSONFieldEquals{Pointer: "/taken", Want: true},
			resp: Response{StatusCode: 200, Body: []byte(`{"taken":true}`)},
			want: StatePresent,
		},
		{
			name: "field equals int against json number",
			rule: JSONFieldEquals{Pointer: "/status", Want: 20},
			resp: Response{StatusCode: 200, Body: []byte(`{"status":20}`)},
			want: StatePresent,
		},
		{
			name: "field differs",
			rule: JSONFieldEquals{Pointer: "/taken", Want: true},
			resp: Response{StatusCode: 200, Body: []byte(`{"taken":false}`)},
			want: StateAbsent,
		},
		{
			name: "field missing",
			rule: JSONFieldEquals{Pointer: "/taken", Want: true},
			resp: Response{StatusCode: 200, Body: []byte(`{"other":1}`)},
			want: StateAbsent,
		},
		{
			name: "non-json body is indeterminate",
			rule: JSONFieldEquals{Pointer: "/taken", Want: true},
			resp: Response{StatusCode: 200, Body: []byte("<html>")},
			want: StateIndeterminate,
		},
		{
			name: "nested pointer",
			rule: JSONFieldTruthy{Pointer: "/data/name"},
			resp: Response{StatusCode: 200, Body: []byte(`{"data":{"name":"alice"}}`)},
			want: StatePresent,
		},
		{
			name: "array index pointer",
			rule: JSONFieldTruthy{Pointer: "/users/0"},
			resp: Response{StatusCode: 200, Body: []byte(`{"users":[{"id":1}]}`)},
			want: StatePresent,
		},
		{
			name: "truthy on empty array element",
			rule: JSONFieldTruthy{Pointer: "/users/0"},
			resp: Response{StatusCode: 200, Body: []byte(`{"users":[]}`)},
			want: StateAbsent,
		},
		{
			name: "truthy on false",
			rule: JSONFieldTruthy{Pointer: "/exists"},
			resp: Response{StatusCode: 200, Body: []byte(`{"exists":false}`)},
			want: StateAbsent,
		},
		{
			name: "absent when field missing",
			rule: JSONFieldAbsent{Pointer: "/user"},
			resp: Response{StatusCode: 200, Body: []byte(`{"error":"no such user"}`)},
			want: StatePresent,
		},
		{
			name: "absent when sentinel matches",
			rule: JSONFieldAbsent{Pointer: "/user", Sentinels: []any{nil, "none"}},
			resp: Response{StatusCode: 200, Body: []byte(`{"user":"none"}`)},
			want: StatePresent,
		},
		{
			name: "absent rule sees real value",
			rule: JSONFieldAbsent{Pointer: "/user", Sentinels: []any{"none"}},
			resp: Response{StatusCode: 200, Body: []byte(`{"user":"alice"}`)},
			want: StateAbsent,
		},
		{
			name: "escaped pointer tokens",
			rule: JSONFieldTruthy{Pointer: "/a~1b/c~0d"},
			resp: Response{StatusCode: 200, Body: []byte(`{"a/b":{"c~d":1}}`)},
			want: StatePresent,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Classify(tt.rule, &tt.resp).State)
		})
	}
}

// Classification must be deterministic: the same bytes always classify
// the same way.
func TestClassifyDeterminism(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		StatusExists{},
		ContentAbsent{Markers: []string{"not found"}},
		ContentPresent{Markers: []string{"profile"}},
		JSONFieldEquals{Pointer: "/taken", Want: true},
		JSONFieldTruthy{Pointer: "/id"},
		JSONFieldAbsent{Pointer: "/user", Sentinels: []any{"none"}},
	}
	resp := &Response{StatusCode: 200, FinalURL: "https://a.example/x", Body: []byte(`{"taken":true,"id":9,"user":"none"}`)}

	for _, rule := range rules {
		first := Classify(rule, resp)
		for range 50 {
			require.Equal(t, first, Classify(rule, resp), "rule %s", rule.Name())
		}
	}
}
