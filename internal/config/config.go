package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Session  SessionConfig  `koanf:"session"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Report   ReportConfig   `koanf:"report"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Mode       string `koanf:"mode"`
	CSRFSecret string `koanf:"csrf_secret"`
	// Timeout bounds how long a response may take to write.
	Timeout string `koanf:"timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
	// SlowThreshold is the duration above which a statement is logged as slow.
	SlowThreshold string `koanf:"slow_threshold"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// SessionConfig holds the per-visitor session settings. Report filters live
// in the session.
type SessionConfig struct {
	Store  string `koanf:"store"`
	Name   string `koanf:"name"`
	Secret string `koanf:"secret"`
	MaxAge int    `koanf:"max_age"`
	Secure bool   `koanf:"secure"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ReportConfig holds report execution settings.
type ReportConfig struct {
	QueryTimeout string `koanf:"query_timeout"`
	// PageSize is the default number of rows per HTML page.
	PageSize int `koanf:"page_size"`
	// Diagnostics shows the last executed statement on report pages.
	// Nil follows server.mode (on in debug).
	Diagnostics *bool `koanf:"diagnostics"`
}

const (
	defaultReportPageSize = 50
	maxReportPageSize     = 500
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreCookie = "cookie"
)

// DotEnvFile is loaded into the process environment before the APP__
// overlay. A missing file is not an error.
var DotEnvFile = ".env"

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__SESSION__MAX_AGE=600 overrides session.max_age. Variables already set
// in the environment win over the .env file.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field constraints and supported values, filling
// defaults for optional settings.
func (c *Config) Validate() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	if err := c.validateDatabase(); err != nil {
		return err
	}

	// Normalize optional duration fields: whitespace-only means unset.
	durations := []struct {
		name  string
		value *string
	}{
		{"server.timeout", &c.Server.Timeout},
		{"database.pool.conn_max_lifetime", &c.Database.Pool.ConnMaxLifetime},
		{"database.slow_threshold", &c.Database.SlowThreshold},
		{"report.query_timeout", &c.Report.QueryTimeout},
	}
	for _, f := range durations {
		v := strings.TrimSpace(*f.value)
		*f.value = v
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, v, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be greater than 0", f.name, v)
		}
	}

	if err := c.validateSession(); err != nil {
		return err
	}

	switch {
	case c.Report.PageSize == 0:
		c.Report.PageSize = defaultReportPageSize
	case c.Report.PageSize < 0 || c.Report.PageSize > maxReportPageSize:
		return fmt.Errorf("invalid report.page_size %d: must be between 1 and %d", c.Report.PageSize, maxReportPageSize)
	}

	if c.Metrics.Enabled {
		path := strings.TrimSpace(c.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("invalid metrics.path %q: must start with '/'", c.Metrics.Path)
		}
		c.Metrics.Path = path
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	if c.Database.Driver == "sqlite" {
		sqlitePath := strings.TrimSpace(c.Database.SQLite.Path)
		if sqlitePath == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = sqlitePath
		return nil
	}

	pg := &c.Database.Postgres
	host := strings.TrimSpace(pg.Host)
	if host == "" {
		return fmt.Errorf("database.postgres.host is required when driver is postgres")
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
	}
	user := strings.TrimSpace(pg.User)
	if user == "" {
		return fmt.Errorf("database.postgres.user is required when driver is postgres")
	}
	dbName := strings.TrimSpace(pg.DBName)
	if dbName == "" {
		return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
	}

	sslMode := strings.TrimSpace(pg.SSLMode)
	switch sslMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
	}
	if c.Server.Mode == gin.ReleaseMode {
		switch sslMode {
		case "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
		}
	}

	pg.Host = host
	pg.User = user
	pg.DBName = dbName
	pg.SSLMode = sslMode
	return nil
}

func (c *Config) validateSession() error {
	s := &c.Session

	store := strings.ToLower(strings.TrimSpace(s.Store))
	switch store {
	case "":
		store = SessionStoreMemory
	case SessionStoreMemory, SessionStoreCookie:
	default:
		return fmt.Errorf("invalid session.store %q: must be one of %q, %q", s.Store, SessionStoreMemory, SessionStoreCookie)
	}
	s.Store = store

	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = "cloudauditor"
	}

	if s.MaxAge < 0 {
		return fmt.Errorf("invalid session.max_age %d: must not be negative", s.MaxAge)
	}

	s.Secret = strings.TrimSpace(s.Secret)
	if c.Server.Mode == gin.ReleaseMode {
		if len(s.Secret) < 32 {
			return fmt.Errorf("invalid session.secret: must be at least 32 characters in release mode")
		}
		if CountSecretClasses(s.Secret) < 3 {
			return fmt.Errorf("session.secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
		}
	}
	return nil
}

// DiagnosticsEnabled reports whether report pages show the last statement.
func (c *Config) DiagnosticsEnabled() bool {
	if c.Report.Diagnostics != nil {
		return *c.Report.Diagnostics
	}
	return c.Server.Mode == gin.DebugMode
}

// QueryTimeout returns report.query_timeout, or zero when unset.
func (c *Config) QueryTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Report.QueryTimeout)
	return d
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	var hasLower, hasUpper, hasDigit, hasSymbol bool

	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	classes := 0
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasSymbol} {
		if ok {
			classes++
		}
	}
	return classes
}
