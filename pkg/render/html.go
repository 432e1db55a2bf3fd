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

package render

import (
	"html/template"
	"io"

	"github.com/pkg/errors"

	"github.com/tracehound/tracehound/pkg/scan"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Tracehound report: {{.Target.Value}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #f0f0f0; }
.stats span { margin-right: 1.5rem; }
</style>
</head>
<body>
<h1>Scan report: {{.Target.Value}}</h1>
<p>Kind: {{.Target.Kind}} &middot; Mode: {{.Mode}} &middot; {{.StartedAt.Format "2006-01-02 15:04:05 MST"}}</p>
<p class="stats">
<span>Attempted: {{.Stats.Attempted}}</span>
<span>Present: {{.Stats.Present}}</span>
<span>Absent: {{.Stats.Absent}}</span>
<span>Indeterminate: {{.Stats.Indeterminate}}</span>
<span>Errors: {{.Stats.Error}}</span>
</p>
{{if .Hits}}
<table>
<tr><th>Category</th><th>Site</th><th>URL</th></tr>
{{range .Hits}}<tr><td>{{.Category}}</td><td>{{.Name}}</td><td><a href="{{.URL}}">{{.URL}}</a></td></tr>
{{end}}
</table>
{{else}}
<p>No confirmed presence found.</p>
{{end}}
</body>
</html>
`))

// HTML writes a self-contained report page.
func HTML(w io.Writer, report *scan.Report) error {
	return errors.Wrap(htmlTemplate.Execute(w, report), "render html report")
}
