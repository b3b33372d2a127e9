package export

import (
	"bytes"
	"html/template"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"cell": FormatCell,
	"datetime": func(d Document) string {
		return d.GeneratedAt.Format(DateTimeLayout)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 30px; color: #333; }
.header { text-align: center; margin-bottom: 30px; }
.metadata { margin-bottom: 20px; padding: 10px; background-color: #f5f5f5; border-radius: 5px; }
table { width: 100%; border-collapse: collapse; margin-top: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f5f5f5; }
tr:nth-child(even) { background-color: #fafafa; }
</style>
</head>
<body>
<div class="header"><h1>{{.Title}}</h1></div>
<div class="metadata">
<p><strong>Data de Geração:</strong> {{datetime .}}</p>
<p><strong>Total de Registros:</strong> {{len .Rows}}</p>
{{- range .Filters}}
<p><strong>{{.Label}}:</strong> {{.Value}}</p>
{{- end}}
{{- range .Summary}}
<p><strong>{{.Label}}:</strong> {{.Value}}</p>
{{- end}}
</div>
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{cell .}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

// RenderHTML renders the printable page of the document.
func RenderHTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
