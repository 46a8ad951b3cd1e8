package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

// Mode is an output format.
type Mode string

const (
	ModeHTML Mode = "html"
	ModeCSV  Mode = "csv"
	ModeJSON Mode = "json"
	ModeXLSX Mode = "xlsx"
)

// ParseMode maps the output request parameter to a Mode. An empty value
// means HTML.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html", "html_table":
		return ModeHTML, nil
	case "csv":
		return ModeCSV, nil
	case "json":
		return ModeJSON, nil
	case "xlsx", "excel":
		return ModeXLSX, nil
	default:
		return "", domain.NewAppError(domain.CodeRender, fmt.Sprintf("unsupported output format %q", s), nil)
	}
}

// ContentType returns the response Content-Type for the mode.
func (m Mode) ContentType() string {
	switch m {
	case ModeCSV:
		return "text/csv"
	case ModeJSON:
		return "application/json"
	case ModeXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/html; charset=utf-8"
	}
}

// Extension is the download file extension.
func (m Mode) Extension() string {
	return string(m)
}

// IsDownload reports whether the mode is served as an attachment.
func (m Mode) IsDownload() bool {
	return m != ModeHTML
}

// TableView carries request state the HTML table needs.
type TableView struct {
	Sort SortResolution
	// Action is the URL the sort forms post to.
	Action    string
	CSRFField string
	CSRFToken string
}

// Render writes rs in the given mode. Every mode renders the same rows in
// the same order.
func Render(w io.Writer, def *Definition, rs *domain.ResultSet, mode Mode, view TableView) error {
	if rs == nil {
		rs = &domain.ResultSet{}
	}

	var err error
	switch mode {
	case ModeHTML:
		err = renderHTML(w, def, rs, view)
	case ModeCSV:
		err = renderCSV(w, def, rs)
	case ModeJSON:
		err = renderJSON(w, def, rs)
	case ModeXLSX:
		err = renderXLSX(w, def, rs)
	default:
		return domain.NewAppError(domain.CodeRender, fmt.Sprintf("unsupported output format %q", mode), nil)
	}
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "render "+def.Name+" as "+string(mode), err)
	}
	return nil
}
