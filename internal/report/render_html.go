package report

import (
	"html/template"
	"io"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

const defaultCSRFField = "_csrf_token"

var tableTemplate = template.Must(template.New("table").Parse(`<table class="report-table" id="report-{{.Name}}">
<thead>
<tr>
{{- range .Headers}}
<th>
{{- if .Sortable}}<form method="post" action="{{$.Action}}" class="sort-form"><input type="hidden" name="{{$.CSRFField}}" value="{{$.CSRFToken}}"><input type="hidden" name="orderby" value="{{.Token}}"><button type="submit" class="sort-toggle">{{.Label}}{{if .Active}} <i class="material-icons">{{.Arrow}}</i>{{end}}</button></form>
{{- else}}{{.Label}}{{end -}}
</th>
{{- end}}
</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</td>{{end}}</tr>
{{- else}}
<tr><td colspan="{{len $.Headers}}" class="empty">No data</td></tr>
{{- end}}
</tbody>
</table>
`))

type htmlHeader struct {
	Label    string
	Sortable bool
	Token    string
	Active   bool
	Arrow    string
}

type htmlTable struct {
	Name      string
	Action    string
	CSRFField string
	CSRFToken string
	Headers   []htmlHeader
	Rows      [][][]string
}

func renderHTML(w io.Writer, def *Definition, rs *domain.ResultSet, view TableView) error {
	t := htmlTable{
		Name:      def.Name,
		Action:    view.Action,
		CSRFField: view.CSRFField,
		CSRFToken: view.CSRFToken,
		Headers:   make([]htmlHeader, len(def.Columns)),
		Rows:      make([][][]string, 0, rs.Len()),
	}
	if t.CSRFField == "" {
		t.CSRFField = defaultCSRFField
	}

	for i, c := range def.Columns {
		h := htmlHeader{Label: c.Label}
		if toggle, ok := view.Sort.Toggle(c); ok {
			h.Sortable = true
			h.Token = toggle.Token
			h.Active = toggle.Active
			h.Arrow = arrow(toggle.Direction)
		}
		t.Headers[i] = h
	}

	for _, row := range rs.Rows {
		cells := make([][]string, len(def.Columns))
		for i, c := range def.Columns {
			if c.Format == FormatMultiValue {
				cells[i] = MultiValues(row[c.Field])
				continue
			}
			cells[i] = []string{FormatCell(c, row[c.Field], "")}
		}
		t.Rows = append(t.Rows, cells)
	}

	return tableTemplate.Execute(w, t)
}

func arrow(d Direction) string {
	if d == Desc {
		return "arrow_drop_down"
	}
	return "arrow_drop_up"
}
