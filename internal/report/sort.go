package report

import "strings"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// SQL returns the SQL keyword for the direction.
func (d Direction) SQL() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

func parseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "asc":
		return Asc, true
	case "desc":
		return Desc, true
	default:
		return "", false
	}
}

// SortState is the sort applied to one request.
type SortState struct {
	Column    string
	Direction Direction
}

// Token encodes the state as "<sort_key>:<direction>".
func (s SortState) Token() string {
	return s.Column + ":" + string(s.Direction)
}

// ParseToken splits a toggle token into key and direction.
// It does not check the key against any definition.
func ParseToken(token string) (SortState, bool) {
	key, dir, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok || key == "" {
		return SortState{}, false
	}
	d, ok := parseDirection(dir)
	if !ok {
		return SortState{}, false
	}
	return SortState{Column: key, Direction: d}, true
}

// OrderBy is an ORDER BY clause built from an allow-listed expression.
// The zero value emits nothing.
type OrderBy struct {
	Expr      string
	Direction Direction
}

// SQL renders the clause.
func (o OrderBy) SQL() string {
	if o.Expr == "" {
		return ""
	}
	return "ORDER BY " + o.Expr + " " + o.Direction.SQL()
}

// HeaderToggle describes the sort control rendered in one column header.
type HeaderToggle struct {
	// Token is submitted when the header is clicked.
	Token string
	// Active marks the column the result is currently sorted by.
	Active    bool
	Direction Direction
}

// SortResolution is the outcome of ResolveSort.
type SortResolution struct {
	State   SortState
	OrderBy OrderBy
	// Requested is false when the default sort was applied.
	Requested bool
	// Toggles is keyed by sort key.
	Toggles map[string]HeaderToggle
}

// Toggle returns the header toggle for a column, if it is sortable.
func (r SortResolution) Toggle(c ColumnSpec) (HeaderToggle, bool) {
	if !c.Sortable() {
		return HeaderToggle{}, false
	}
	t, ok := r.Toggles[c.SortKey]
	return t, ok
}

// ResolveSort turns a toggle token into the sort for this request.
// Missing, malformed or unknown tokens select the default column ascending.
// The active column's next token flips direction, every other column starts
// over at ascending.
func ResolveSort(def *Definition, token string) SortResolution {
	state, ok := ParseToken(token)
	if ok {
		_, ok = def.Column(state.Column)
	}
	if !ok {
		state = SortState{Column: def.DefaultSort, Direction: Asc}
	}

	col, _ := def.Column(state.Column)
	res := SortResolution{
		State:     state,
		OrderBy:   OrderBy{Expr: col.expr(), Direction: state.Direction},
		Requested: ok,
		Toggles:   make(map[string]HeaderToggle, len(def.Columns)),
	}

	for _, c := range def.Columns {
		if !c.Sortable() {
			continue
		}
		if c.SortKey == state.Column {
			res.Toggles[c.SortKey] = HeaderToggle{
				Token:     SortState{Column: c.SortKey, Direction: state.Direction.Opposite()}.Token(),
				Active:    true,
				Direction: state.Direction,
			}
			continue
		}
		res.Toggles[c.SortKey] = HeaderToggle{
			Token: SortState{Column: c.SortKey, Direction: Asc}.Token(),
		}
	}

	return res
}
