package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
	"github.com/jonathanbglass/cloudauditor/internal/report"
)

// mapStore is an in-memory domain.SessionStore.
type mapStore struct {
	values map[string]any
	saves  int
}

func newMapStore() *mapStore {
	return &mapStore{values: map[string]any{}}
}

func (m *mapStore) Get(key string) any        { return m.values[key] }
func (m *mapStore) Set(key string, value any) { m.values[key] = value }
func (m *mapStore) Save() error               { m.saves++; return nil }

func TestLoadFilter_Default(t *testing.T) {
	f := loadFilter(newMapStore())
	if f.Types != report.AllTypes {
		t.Errorf("Types = %v, want all", f.Types)
	}
	if f.HasAccount {
		t.Errorf("HasAccount = true, want false")
	}
}

func TestStoreFilter_RoundTrip(t *testing.T) {
	store := newMapStore()
	f := report.NewFilterState().ApplySubmit([]string{"filterusers"}).ApplyAccountSelection("42")
	storeFilter(store, f)

	if got := store.values[filterAccountKey]; got != "000000000042" {
		t.Errorf("stored account = %v, want 000000000042", got)
	}

	got := loadFilter(store)
	if got.Types != report.TypeUser || !got.HasAccount || got.Account != 42 {
		t.Errorf("loadFilter() = %+v, want users only for account 42", got)
	}
}

func TestLastQuery_PerReport(t *testing.T) {
	store := newMapStore()
	storeLastQuery(store, ReportAuditUsers, domain.Statement{SQL: "SELECT 1"})

	if got := lastQuery(store, ReportAuditUsers); got != "SELECT 1" {
		t.Errorf("lastQuery(audit-users) = %q", got)
	}
	if got := lastQuery(store, ReportAuditUserPolicies); got != "" {
		t.Errorf("lastQuery(audit-users-policies) = %q, want empty", got)
	}
}

func TestLoadFilter_Corrupt(t *testing.T) {
	store := newMapStore()
	store.Set(filterTypesKey, int64(0))
	store.Set(filterAccountKey, "not-an-account")

	f := loadFilter(store)
	if f.Types != report.AllTypes {
		t.Errorf("Types = %v, want all", f.Types)
	}
	if f.HasAccount {
		t.Errorf("HasAccount = true, want false")
	}
}

func TestDescribeStatement(t *testing.T) {
	tests := []struct {
		name string
		stmt domain.Statement
		want string
	}{
		{"no args", domain.Statement{SQL: "SELECT 1"}, "SELECT 1"},
		{
			"with args",
			domain.Statement{SQL: "SELECT 1 WHERE a = ? AND b LIKE ?", Args: []any{int64(42), "%:user/%"}},
			"SELECT 1 WHERE a = ? AND b LIKE ? -- args: [42, %:user/%]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeStatement(tt.stmt); got != tt.want {
				t.Errorf("describeStatement() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionStore_Persists(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("cloudauditor", memstore.NewStore([]byte("test-secret"))))
	r.GET("/set", func(c *gin.Context) {
		store := NewSessionStore(sessions.Default(c))
		storeFilter(store, report.NewFilterState().ApplyAccountSelection("7"))
		if err := store.Save(); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/get", func(c *gin.Context) {
		f := loadFilter(NewSessionStore(sessions.Default(c)))
		c.String(http.StatusOK, f.AccountValue())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("set status = %d, body = %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Body.String(); got != "000000000007" {
		t.Errorf("account = %q, want 000000000007", got)
	}
}
