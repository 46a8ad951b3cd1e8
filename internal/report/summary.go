package report

import (
	"strconv"
	"strings"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

// SummaryValue is one rendered KPI.
type SummaryValue struct {
	Label string
	Value string
}

// SummaryStatement builds the KPI query, or returns false when the report
// has no summary panel.
func (d *Definition) SummaryStatement() (domain.Statement, bool) {
	if len(d.Summary) == 0 {
		return domain.Statement{}, false
	}
	return domain.Statement{SQL: d.SummaryQuery, Intent: "summarize report " + d.Name}, true
}

// SummaryValues formats the summary row. Percentages are rounded to two
// decimals; a nil row yields empty values.
func (d *Definition) SummaryValues(row domain.Row) []SummaryValue {
	out := make([]SummaryValue, 0, len(d.Summary))
	for _, item := range d.Summary {
		v := SummaryValue{Label: item.Label}
		if row != nil {
			v.Value = summaryText(row[item.Field], item.Percent)
		}
		out = append(out, v)
	}
	return out
}

func summaryText(v any, percent bool) string {
	if !percent || v == nil {
		return textValue(v)
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	default:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(textValue(v)), 64)
		if err != nil {
			return textValue(v)
		}
		f = parsed
	}
	return strconv.FormatFloat(f, 'f', 2, 64) + "%"
}
