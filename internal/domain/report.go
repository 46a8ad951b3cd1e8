package domain

import "context"

// Statement is a parameterized SQL statement ready for execution.
// Args are bound positionally to the "?" placeholders in SQL.
type Statement struct {
	SQL    string
	Args   []any
	Intent string
}

// Row maps result column names to their scanned values.
type Row map[string]any

// ResultSet is the ordered output of one statement execution.
// It is read-only once returned and lives for a single request.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Executor runs report statements against the audit store.
type Executor interface {
	Query(ctx context.Context, stmt Statement) (*ResultSet, error)
}

// SessionStore is the per-browser-session key/value bag.
// Expiry is managed by the server-side store.
type SessionStore interface {
	Get(key string) any
	Set(key string, value any)
	Save() error
}
