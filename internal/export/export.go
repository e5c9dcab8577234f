// Package export renders the current materialized view as CSV text or an
// HTML print table. Both are pure, one-shot renders of the view at invocation
// time; they do not await in-flight mutations, and both cover the full
// filtered set rather than the current page.
package export

import (
	"html/template"
	"strings"
)

// CSV joins the header and rows with commas and newlines. Fields are joined
// without escaping embedded commas; this matches the output format consumers
// already depend on and is a documented limitation.
func CSV(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}

var printTemplate = template.Must(template.New("print").Parse(`<table>
  <thead>
    <tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
  </tbody>
</table>
`))

type printData struct {
	Header []string
	Rows   [][]string
}

// PrintTable renders an HTML table fragment with the same column set as the
// matching CSV. Cell contents are HTML-escaped by the template engine.
func PrintTable(header []string, rows [][]string) (string, error) {
	var b strings.Builder
	if err := printTemplate.Execute(&b, printData{Header: header, Rows: rows}); err != nil {
		return "", err
	}
	return b.String(), nil
}
