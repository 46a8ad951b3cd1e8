package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

// Category maps a sub-query category value to the row field that collects it.
type Category struct {
	Name  string
	Field string
}

// Aggregation folds a per-row sub-query into multi-value cells.
// Query takes exactly one parameter, the row's KeyField value, and returns
// (CategoryField, ValueField) pairs.
type Aggregation struct {
	Query         string
	KeyField      string
	CategoryField string
	ValueField    string
	Categories    []Category
}

// Statement builds the sub-query for one top-level row.
func (a *Aggregation) Statement(row domain.Row) domain.Statement {
	return domain.Statement{
		SQL:    a.Query,
		Args:   []any{row[a.KeyField]},
		Intent: "collect " + a.KeyField + " contacts",
	}
}

// Apply stores the collected values of sub into row, one []string per
// category. Categories without values get an empty slice.
func (a *Aggregation) Apply(row domain.Row, sub *domain.ResultSet) {
	var rows []domain.Row
	if sub != nil {
		rows = sub.Rows
	}
	collected := CollectContacts(rows, a)
	for _, cat := range a.Categories {
		vals := collected[cat.Field]
		if vals == nil {
			vals = []string{}
		}
		row[cat.Field] = vals
	}
}

// CollectContacts groups the sub-query rows by category field. Values are
// trimmed, lower-cased and de-duplicated in first-seen order. Rows whose
// category is not declared are dropped.
func CollectContacts(rows []domain.Row, a *Aggregation) map[string][]string {
	fields := make(map[string]string, len(a.Categories))
	for _, cat := range a.Categories {
		fields[strings.ToLower(cat.Name)] = cat.Field
	}

	lower := cases.Lower(language.Und)
	out := make(map[string][]string, len(a.Categories))
	seen := make(map[string]map[string]struct{}, len(a.Categories))

	for _, row := range rows {
		field, ok := fields[strings.ToLower(textValue(row[a.CategoryField]))]
		if !ok {
			continue
		}
		value := lower.String(strings.TrimSpace(textValue(row[a.ValueField])))
		if value == "" {
			continue
		}
		if seen[field] == nil {
			seen[field] = make(map[string]struct{})
		}
		if _, dup := seen[field][value]; dup {
			continue
		}
		seen[field][value] = struct{}{}
		out[field] = append(out[field], value)
	}
	return out
}
