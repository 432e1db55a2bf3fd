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

// Package render turns a finished scan report into its output forms.
// Renderers only read the report; they never call back into the engine.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/scan"
)

// JSON writes the stable report shape.
func JSON(w io.Writer, report *scan.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(report), "encode report")
}

// Console writes a terminal summary: hits grouped by category, then the
// counters, then the adapter sections.
func Console(w io.Writer, report *scan.Report) error {
	fmt.Fprintf(w, "Target: %s (%s), mode %s\n", report.Target.Value, report.Target.Kind, report.Mode)
	fmt.Fprintf(w, "Scanned %s .. %s\n\n",
		report.StartedAt.Format("15:04:05"), report.FinishedAt.Format("15:04:05"))

	if len(report.Hits) == 0 {
		fmt.Fprintln(w, "No confirmed presence found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tSITE\tURL")
		for _, cat := range sortedCategories(report.ByCategory) {
			for _, h := range report.ByCategory[cat] {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Category, h.Name, h.URL)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	s := report.Stats
	fmt.Fprintf(w, "\n%d probes: %d present, %d absent, %d indeterminate, %d errors\n",
		s.Attempted, s.Present, s.Absent, s.Indeterminate, s.Error)

	for _, name := range sortedSections(report.Sections) {
		fmt.Fprintf(w, "\n[%s]\n", name)
		raw, err := json.MarshalIndent(report.Sections[name], "", "  ")
		if err != nil {
			return errors.Wrapf(err, "render section %s", name)
		}
		fmt.Fprintln(w, string(raw))
	}
	return nil
}

func sortedCategories(byCategory map[string][]scan.Hit) []string {
	out := make([]string, 0, len(byCategory))
	for c := range byCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func sortedSections(sections map[string]any) []string {
	out := make([]string, 0, len(sections))
	for s := range sections {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
