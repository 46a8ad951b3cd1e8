package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testYAML = `server:
  host: "127.0.0.1"
  port: 3000
  mode: "release"
  csrf_secret: "test-csrf-secret-value"
  timeout: "45s"
database:
  driver: "postgres"
  slow_threshold: "500ms"
  sqlite:
    path: "data/test.db"
  postgres:
    host: "db.example.com"
    port: 5433
    user: "auditor"
    password: "secret"
    dbname: "cloudaudit"
    sslmode: "require"
  pool:
    max_idle_conns: 5
    max_open_conns: 50
    conn_max_lifetime: "30m"
log:
  level: "info"
  format: "json"
session:
  store: "cookie"
  name: "auditor"
  secret: "Session-Secret-0123456789-abcdefghij"
  max_age: 3600
  secure: true
metrics:
  enabled: true
report:
  query_timeout: "20s"
  page_size: 100
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// withDotEnv points DotEnvFile at a file in a temp dir for the test.
func withDotEnv(t *testing.T, content string) {
	t.Helper()
	prev := DotEnvFile
	path := filepath.Join(t.TempDir(), ".env")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}
	}
	DotEnvFile = path
	t.Cleanup(func() { DotEnvFile = prev })
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "localhost", Port: 8080, Mode: "debug"},
		Database: DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "data/app.db"}},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_FullYAML(t *testing.T) {
	withDotEnv(t, "")
	path := writeTestConfig(t, testYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 3000 || cfg.Server.Mode != "release" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.Timeout != "45s" {
		t.Errorf("Server.Timeout = %q, want %q", cfg.Server.Timeout, "45s")
	}
	if cfg.Database.Postgres.DBName != "cloudaudit" || cfg.Database.Postgres.SSLMode != "require" {
		t.Errorf("Postgres = %+v", cfg.Database.Postgres)
	}
	if cfg.Database.SlowThreshold != "500ms" {
		t.Errorf("Database.SlowThreshold = %q, want %q", cfg.Database.SlowThreshold, "500ms")
	}
	if cfg.Database.Pool.MaxOpenConns != 50 || cfg.Database.Pool.ConnMaxLifetime != "30m" {
		t.Errorf("Pool = %+v", cfg.Database.Pool)
	}
	if cfg.Session.Store != SessionStoreCookie || cfg.Session.Name != "auditor" || cfg.Session.MaxAge != 3600 || !cfg.Session.Secure {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Metrics)
	}
	if got := cfg.QueryTimeout(); got != 20*time.Second {
		t.Errorf("QueryTimeout() = %v, want 20s", got)
	}
	if cfg.DiagnosticsEnabled() {
		t.Error("DiagnosticsEnabled() = true in release mode, want false")
	}
	if cfg.Report.PageSize != 100 {
		t.Errorf("Report.PageSize = %d, want 100", cfg.Report.PageSize)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	withDotEnv(t, "")
	path := writeTestConfig(t, testYAML)

	t.Setenv("APP__SERVER__PORT", "9090")
	t.Setenv("APP__DATABASE__DRIVER", "sqlite")
	t.Setenv("APP__LOG__LEVEL", "error")
	t.Setenv("APP__SESSION__MAX_AGE", "600")
	t.Setenv("APP__REPORT__QUERY_TIMEOUT", "5s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d (env override)", cfg.Server.Port, 9090)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q (env override)", cfg.Database.Driver, "sqlite")
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want %q (env override)", cfg.Log.Level, "error")
	}
	if cfg.Session.MaxAge != 600 {
		t.Errorf("Session.MaxAge = %d, want 600 (env override)", cfg.Session.MaxAge)
	}
	if got := cfg.QueryTimeout(); got != 5*time.Second {
		t.Errorf("QueryTimeout() = %v, want 5s (env override)", got)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	withDotEnv(t, "APP__SERVER__PORT=7070\nAPP__LOG__FORMAT=text\n")
	path := writeTestConfig(t, testYAML)

	// Real environment variables win over .env.
	t.Setenv("APP__LOG__FORMAT", "json")
	// godotenv writes into the process environment; restore it afterwards.
	t.Setenv("APP__SERVER__PORT", "")
	os.Unsetenv("APP__SERVER__PORT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from .env", cfg.Server.Port)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json from environment", cfg.Log.Format)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to load config file") {
		t.Errorf("error = %v", err)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.Session.Store != SessionStoreMemory {
		t.Errorf("Session.Store = %q, want %q", cfg.Session.Store, SessionStoreMemory)
	}
	if cfg.Session.Name != "cloudauditor" {
		t.Errorf("Session.Name = %q, want cloudauditor", cfg.Session.Name)
	}
	if cfg.Metrics.Path != "" {
		t.Errorf("Metrics.Path = %q, want empty while disabled", cfg.Metrics.Path)
	}
	if !cfg.DiagnosticsEnabled() {
		t.Error("DiagnosticsEnabled() = false in debug mode, want true")
	}
	if cfg.QueryTimeout() != 0 {
		t.Errorf("QueryTimeout() = %v, want 0", cfg.QueryTimeout())
	}
	if cfg.Report.PageSize != 50 {
		t.Errorf("Report.PageSize = %d, want 50", cfg.Report.PageSize)
	}

	off := false
	cfg.Report.Diagnostics = &off
	if cfg.DiagnosticsEnabled() {
		t.Error("DiagnosticsEnabled() = true with report.diagnostics=false")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "invalid server.mode"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server.port"},
		{"empty host", func(c *Config) { c.Server.Host = "  " }, "server.host is required"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "invalid database.driver"},
		{"empty sqlite path", func(c *Config) { c.Database.SQLite.Path = "" }, "database.sqlite.path is required"},
		{
			"postgres without host",
			func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.Postgres = PostgresConfig{Port: 5432, User: "u", DBName: "d", SSLMode: "disable"}
			},
			"database.postgres.host is required",
		},
		{
			"postgres bad sslmode",
			func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.Postgres = PostgresConfig{Host: "h", Port: 5432, User: "u", DBName: "d", SSLMode: "sometimes"}
			},
			"invalid database.postgres.sslmode",
		},
		{"bad server timeout", func(c *Config) { c.Server.Timeout = "soon" }, "invalid server.timeout"},
		{"negative query timeout", func(c *Config) { c.Report.QueryTimeout = "-1s" }, "invalid report.query_timeout"},
		{"bad slow threshold", func(c *Config) { c.Database.SlowThreshold = "fast" }, "invalid database.slow_threshold"},
		{"bad session store", func(c *Config) { c.Session.Store = "redis" }, "invalid session.store"},
		{"negative session max age", func(c *Config) { c.Session.MaxAge = -1 }, "invalid session.max_age"},
		{
			"short session secret in release",
			func(c *Config) {
				c.Server.Mode = "release"
				c.Session.Secret = "short"
			},
			"at least 32 characters",
		},
		{
			"weak session secret in release",
			func(c *Config) {
				c.Server.Mode = "release"
				c.Session.Secret = strings.Repeat("a", 40)
			},
			"at least 3 character classes",
		},
		{"relative metrics path", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true, Path: "metrics"} }, "invalid metrics.path"},
		{"negative page size", func(c *Config) { c.Report.PageSize = -1 }, "invalid report.page_size"},
		{"huge page size", func(c *Config) { c.Report.PageSize = 501 }, "invalid report.page_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "invalid log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = " debug "
	cfg.Server.Host = " 0.0.0.0 "
	cfg.Session.Store = " Cookie "
	cfg.Log.Level = "WARN"
	cfg.Log.Format = " JSON "
	cfg.Report.QueryTimeout = " 10s "

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.Server.Mode != "debug" || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Session.Store != SessionStoreCookie {
		t.Errorf("Session.Store = %q, want cookie", cfg.Session.Store)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Report.QueryTimeout != "10s" {
		t.Errorf("Report.QueryTimeout = %q, want 10s", cfg.Report.QueryTimeout)
	}
}

func TestCountSecretClasses(t *testing.T) {
	tests := []struct {
		secret string
		want   int
	}{
		{"", 0},
		{"abc", 1},
		{"abcDEF", 2},
		{"abcDEF123", 3},
		{"abcDEF123!", 4},
	}
	for _, tt := range tests {
		if got := CountSecretClasses(tt.secret); got != tt.want {
			t.Errorf("CountSecretClasses(%q) = %d, want %d", tt.secret, got, tt.want)
		}
	}
}
