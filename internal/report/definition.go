// Package report is the generic report pipeline shared by every dashboard page:
// column registry, sort-state resolution, filter state, query assembly, and
// multi-format rendering of one result set.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Format selects how a column's values are presented.
type Format int

const (
	// FormatText renders the value as-is.
	FormatText Format = iota
	// FormatAccountID zero-pads numeric account ids to 12 digits.
	FormatAccountID
	// FormatDate keeps only the date portion of a timestamp.
	FormatDate
	// FormatBool renders truthy values as "True" and everything else as
	// "False". NULL stays empty.
	FormatBool
	// FormatMultiValue renders a list of values, one per line.
	FormatMultiValue
)

// ColumnSpec declares one report column.
type ColumnSpec struct {
	// Label is the human-readable header used by HTML, CSV and XLSX output.
	Label string
	// Field is the result column alias and the JSON key.
	Field string
	// Expr is the SQL expression used in ORDER BY. Defaults to Field.
	Expr string
	// SortKey makes the column sortable when non-empty.
	SortKey string
	Format  Format
}

// Sortable reports whether the column can be sorted on.
func (c ColumnSpec) Sortable() bool {
	return c.SortKey != ""
}

func (c ColumnSpec) expr() string {
	if c.Expr != "" {
		return c.Expr
	}
	return c.Field
}

// FilterSpec names the columns the session filter applies to.
// An empty expression disables that half of the filter.
type FilterSpec struct {
	AccountExpr string
	ARNExpr     string
}

// Definition is the static descriptor of one report page.
type Definition struct {
	Name     string
	Title    string
	Filename string
	// Base is the SELECT without WHERE-additions or ORDER BY.
	Base        string
	Columns     []ColumnSpec
	DefaultSort string
	Filter      *FilterSpec
	Aggregation *Aggregation
	// AccountOptions lists (aws_account_id, aws_account_name) pairs for the
	// account selector. Only used with a Filter.
	AccountOptions string
	// Summary is an optional single-row KPI query shown above the table.
	Summary []SummaryItem
	// SummaryQuery produces the single row read by Summary.
	SummaryQuery string
}

// SummaryItem is one labelled KPI read from the summary row.
type SummaryItem struct {
	Label   string
	Field   string
	Percent bool
}

var (
	reportNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	sqlIdentPattern   = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)
	orderByPattern    = regexp.MustCompile(`(?i)\border\s+by\b`)
)

// Column returns the sortable column with the given sort key.
func (d *Definition) Column(sortKey string) (ColumnSpec, bool) {
	for _, c := range d.Columns {
		if c.SortKey != "" && c.SortKey == sortKey {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// Labels returns the column labels in declaration order.
func (d *Definition) Labels() []string {
	labels := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		labels[i] = c.Label
	}
	return labels
}

// DownloadName returns the attachment file name for the given extension.
func (d *Definition) DownloadName(ext string) string {
	name := d.Filename
	if name == "" {
		name = d.Name
	}
	return name + "." + ext
}

// Validate checks the definition for internal consistency.
func (d *Definition) Validate() error {
	if d == nil {
		return errors.New("definition is nil")
	}
	if !reportNamePattern.MatchString(d.Name) {
		return fmt.Errorf("invalid report name %q", d.Name)
	}
	if strings.TrimSpace(d.Base) == "" {
		return fmt.Errorf("report %s: base query is required", d.Name)
	}
	if orderByPattern.MatchString(d.Base) {
		return fmt.Errorf("report %s: base query must not contain ORDER BY", d.Name)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("report %s: at least one column is required", d.Name)
	}

	fields := make(map[string]struct{}, len(d.Columns))
	sortKeys := make(map[string]struct{}, len(d.Columns))
	for i, c := range d.Columns {
		if c.Field == "" || c.Label == "" {
			return fmt.Errorf("report %s: column %d needs a field and a label", d.Name, i)
		}
		if _, dup := fields[c.Field]; dup {
			return fmt.Errorf("report %s: duplicate field %q", d.Name, c.Field)
		}
		fields[c.Field] = struct{}{}

		if !c.Sortable() {
			continue
		}
		if c.Format == FormatMultiValue {
			return fmt.Errorf("report %s: multi-value column %q cannot be sorted", d.Name, c.Field)
		}
		if _, dup := sortKeys[c.SortKey]; dup {
			return fmt.Errorf("report %s: duplicate sort key %q", d.Name, c.SortKey)
		}
		if !sqlIdentPattern.MatchString(c.expr()) {
			return fmt.Errorf("report %s: sort expression %q is not a plain column reference", d.Name, c.expr())
		}
		sortKeys[c.SortKey] = struct{}{}
	}

	if _, ok := d.Column(d.DefaultSort); !ok {
		return fmt.Errorf("report %s: default sort key %q is not a sortable column", d.Name, d.DefaultSort)
	}

	if d.Filter != nil {
		if scanClauses(d.Base).compound {
			return fmt.Errorf("report %s: filtered base query must not be a UNION, INTERSECT or EXCEPT", d.Name)
		}
		for _, expr := range []string{d.Filter.AccountExpr, d.Filter.ARNExpr} {
			if expr != "" && !sqlIdentPattern.MatchString(expr) {
				return fmt.Errorf("report %s: filter expression %q is not a plain column reference", d.Name, expr)
			}
		}
	}

	if err := d.validateAggregation(fields); err != nil {
		return err
	}

	if len(d.Summary) > 0 && strings.TrimSpace(d.SummaryQuery) == "" {
		return fmt.Errorf("report %s: summary items need a summary query", d.Name)
	}

	return nil
}

func (d *Definition) validateAggregation(fields map[string]struct{}) error {
	covered := make(map[string]struct{})
	if a := d.Aggregation; a != nil {
		if a.Query == "" || a.KeyField == "" || a.CategoryField == "" || a.ValueField == "" {
			return fmt.Errorf("report %s: aggregation is incomplete", d.Name)
		}
		if _, ok := fields[a.KeyField]; !ok {
			return fmt.Errorf("report %s: aggregation key %q is not a column", d.Name, a.KeyField)
		}
		for _, cat := range a.Categories {
			covered[cat.Field] = struct{}{}
		}
	}
	for _, c := range d.Columns {
		if c.Format != FormatMultiValue {
			continue
		}
		if _, ok := covered[c.Field]; !ok {
			return fmt.Errorf("report %s: multi-value column %q has no aggregation category", d.Name, c.Field)
		}
	}
	return nil
}

// Registry holds the report definitions known to the dashboard.
// It is filled at startup and read-only afterwards.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry validates and registers the given definitions.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a definition. Names must be unique.
func (r *Registry) Register(d *Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, exists := r.defs[d.Name]; exists {
		return fmt.Errorf("report %s already registered", d.Name)
	}
	r.defs[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// All returns every definition in registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}
