package audit

import (
	"fmt"
	"strings"

	"github.com/gin-contrib/sessions"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
	"github.com/jonathanbglass/cloudauditor/internal/report"
)

// sessionStore adapts a gin-contrib session to domain.SessionStore.
type sessionStore struct {
	session sessions.Session
}

// NewSessionStore wraps a gin-contrib session.
func NewSessionStore(s sessions.Session) domain.SessionStore {
	return &sessionStore{session: s}
}

func (s *sessionStore) Get(key string) any {
	return s.session.Get(key)
}

func (s *sessionStore) Set(key string, value any) {
	s.session.Set(key, value)
}

func (s *sessionStore) Save() error {
	return s.session.Save()
}

// The filter is one per session and shared by every filtered report.
// The last query is kept per report.
const (
	filterTypesKey   = "filter.types"
	filterAccountKey = "filter.account"
)

func lastQueryKey(name string) string { return "report." + name + ".last_query" }

// loadFilter reads the session's filter state, creating the default on first
// touch. Values that do not parse fall back to the default.
func loadFilter(store domain.SessionStore) report.FilterState {
	f := report.NewFilterState()

	switch v := store.Get(filterTypesKey).(type) {
	case int:
		f.Types = report.TypeFlags(v)
	case int64:
		f.Types = report.TypeFlags(v)
	}

	if v, ok := store.Get(filterAccountKey).(string); ok {
		f = f.ApplyAccountSelection(v)
	}

	return f.Normalize()
}

// storeFilter writes the filter state back. Primitive values only, so every
// session backend can encode them.
func storeFilter(store domain.SessionStore, f report.FilterState) {
	store.Set(filterTypesKey, int(f.Types))
	store.Set(filterAccountKey, f.AccountValue())
}

// storeLastQuery keeps the statement text for the diagnostics panel.
func storeLastQuery(store domain.SessionStore, name string, stmt domain.Statement) {
	store.Set(lastQueryKey(name), describeStatement(stmt))
}

func lastQuery(store domain.SessionStore, name string) string {
	s, _ := store.Get(lastQueryKey(name)).(string)
	return s
}

func describeStatement(stmt domain.Statement) string {
	if len(stmt.Args) == 0 {
		return stmt.SQL
	}
	args := make([]string, len(stmt.Args))
	for i, a := range stmt.Args {
		args[i] = fmt.Sprintf("%v", a)
	}
	return stmt.SQL + " -- args: [" + strings.Join(args, ", ") + "]"
}
