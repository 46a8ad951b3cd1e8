package report

import "strings"

// TypeFlags selects which identity kinds an ARN filter keeps.
type TypeFlags uint8

const (
	TypeUser TypeFlags = 1 << iota
	TypeRole
	TypeGroup

	AllTypes = TypeUser | TypeRole | TypeGroup
)

// Has reports whether every bit of f is set.
func (t TypeFlags) Has(f TypeFlags) bool {
	return t&f == f
}

var typeFlagNames = map[string]TypeFlags{
	"users":        TypeUser,
	"filterusers":  TypeUser,
	"roles":        TypeRole,
	"filterroles":  TypeRole,
	"groups":       TypeGroup,
	"filtergroups": TypeGroup,
}

var typePatterns = []struct {
	flag    TypeFlags
	pattern string
}{
	{TypeUser, "%:user/%"},
	{TypeRole, "%:role/%"},
	{TypeGroup, "%:group/%"},
}

// AccountAll is the account selector value that clears the account filter.
const AccountAll = "all"

// FilterState is a session's filter choice for one report.
// Transitions return a new value and never mutate the receiver.
type FilterState struct {
	Types      TypeFlags
	Account    AccountID
	HasAccount bool
}

// NewFilterState returns the initial state: every type, every account.
func NewFilterState() FilterState {
	return FilterState{Types: AllTypes}
}

// Normalize repairs states read back from storage.
func (f FilterState) Normalize() FilterState {
	f.Types &= AllTypes
	if f.Types == 0 {
		f.Types = AllTypes
	}
	if f.HasAccount && f.Account > maxAccountID {
		f.Account, f.HasAccount = 0, false
	}
	return f
}

// ApplySubmit sets exactly the named type flags.
// Unknown names are ignored; no recognized name selects every type.
func (f FilterState) ApplySubmit(flags []string) FilterState {
	var types TypeFlags
	for _, name := range flags {
		types |= typeFlagNames[strings.ToLower(strings.TrimSpace(name))]
	}
	if types == 0 {
		types = AllTypes
	}
	f.Types = types
	return f
}

// ApplyAccountSelection selects one account or, for "all" and malformed
// values, clears the selection.
func (f FilterState) ApplyAccountSelection(value string) FilterState {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, AccountAll) {
		f.Account, f.HasAccount = 0, false
		return f
	}
	id, err := ParseAccountID(value)
	if err != nil {
		f.Account, f.HasAccount = 0, false
		return f
	}
	f.Account, f.HasAccount = id, true
	return f
}

// AccountValue is the selector value for the current account choice.
func (f FilterState) AccountValue() string {
	if !f.HasAccount {
		return AccountAll
	}
	return f.Account.String()
}

// Predicate is a parameterized WHERE fragment.
type Predicate struct {
	SQL  string
	Args []any
}

// Predicate builds the WHERE fragment for spec. It returns false when the
// state selects everything, or when spec has nothing to filter on.
func (f FilterState) Predicate(spec *FilterSpec) (Predicate, bool) {
	if spec == nil {
		return Predicate{}, false
	}

	var (
		parts []string
		args  []any
	)

	if f.HasAccount && spec.AccountExpr != "" {
		parts = append(parts, spec.AccountExpr+" = ?")
		args = append(args, int64(f.Account))
	}

	types := f.Normalize().Types
	if types != AllTypes && spec.ARNExpr != "" {
		var likes []string
		for _, tp := range typePatterns {
			if types.Has(tp.flag) {
				likes = append(likes, spec.ARNExpr+" LIKE ?")
				args = append(args, tp.pattern)
			}
		}
		parts = append(parts, "("+strings.Join(likes, " OR ")+")")
	}

	if len(parts) == 0 {
		return Predicate{}, false
	}
	return Predicate{SQL: strings.Join(parts, " AND "), Args: args}, true
}
