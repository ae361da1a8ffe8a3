package panel

const baseTemplate = `{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · flowgraph</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; }
td, th { padding: .3rem .8rem; border-bottom: 1px solid #ddd; text-align: left; }
.error { color: #8b1a1a; }
.warning { color: #8a6d00; }
pre { background: #f6f6f6; padding: 1rem; overflow: auto; }
</style>
</head>
<body>
<nav><a href="/">Workflows</a></nav>
<h1>{{.Title}}</h1>
{{template "content" .}}
</body>
</html>{{end}}`

var pageTemplates = map[string]string{
	"workflows": `{{define "content"}}
{{if .Workflows}}
<table>
<tr><th>Name</th><th>Description</th><th>Version</th><th>Updated</th></tr>
{{range .Workflows}}
<tr>
<td><a href="/workflows/{{.ID}}">{{.Name}}</a></td>
<td>{{truncate .Description 80}}</td>
<td>{{.Version}}</td>
<td>{{timeAgo .UpdatedAt}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No workflows stored yet.</p>
{{end}}
{{end}}`,

	"workflow_detail": `{{define "content"}}
<p>{{.Workflow.Description}}</p>
<p>Version {{.Workflow.Version}}, {{.NodeCount}} nodes, {{.EdgeCount}} edges{{if .Snapshot}}, snapshot #{{.Snapshot.Sequence}}{{end}}.</p>
{{if .Report.IsValid}}<p>Valid.</p>{{end}}
<ul>
{{range .Report.Errors}}<li class="error">{{.}}</li>{{end}}
{{range .Report.Warnings}}<li class="warning">{{.}}</li>{{end}}
</ul>
<img src="/api/workflows/{{.Workflow.ID}}/diagram?format=svg" alt="diagram">
<h2>Mermaid</h2>
<pre>{{.Mermaid}}</pre>
<h2>Steps</h2>
<pre>{{json .Workflow.Steps}}</pre>
{{end}}`,
}
