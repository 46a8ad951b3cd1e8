package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/jonathanbglass/cloudauditor/internal/config"
	"github.com/jonathanbglass/cloudauditor/internal/metrics"
	"github.com/jonathanbglass/cloudauditor/internal/middleware"
	"github.com/jonathanbglass/cloudauditor/internal/module/audit"
	"github.com/jonathanbglass/cloudauditor/web"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

const defaultWriteTimeout = 60 * time.Second

var newHTTPServer = func(addr string, handler http.Handler, writeTimeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the database, metrics, the report registry, the audit
// service and its page handler, middleware, template rendering, and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 exposes executed SQL on report pages")
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	// 2. Setup database.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			return
		}
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", slog.Any("error", err))
		}
	}()

	// 3. Metrics.
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder, err = metrics.New()
		if err != nil {
			return nil, fmt.Errorf("setup metrics: %w", err)
		}
	}

	// 4. Manual dependency injection: registry → repository → service → handler.
	registry, err := audit.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("build report registry: %w", err)
	}
	if err := audit.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	repo := audit.NewReportRepository(db)
	svc := audit.NewReportService(registry, repo,
		audit.WithQueryTimeout(cfg.QueryTimeout()),
		audit.WithQueryObserver(recorder),
	)
	pageHandler := audit.NewReportPageHandler(svc,
		audit.WithDiagnostics(cfg.DiagnosticsEnabled()),
		audit.WithPageSize(cfg.Report.PageSize),
		audit.WithRenderObserver(recorder),
	)

	// 5. Create Gin engine with custom middleware (not gin.Default()).
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	metricsPath := cfg.Metrics.Path
	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger, "/static/", "/health"),
		middleware.Metrics(recorder, metricsPath),
	)

	// 6. Determine filesystem mode and set up template renderer.
	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	// 7. Resolve secrets.
	csrfSecret, err := resolveSecret(cfg.Server.CSRFSecret, cfg.Server.Mode, "csrf_secret")
	if err != nil {
		return nil, err
	}
	if csrfSecret != cfg.Server.CSRFSecret {
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	}
	sessionSecret, err := resolveSecret(cfg.Session.Secret, cfg.Server.Mode, "session.secret")
	if err != nil {
		return nil, err
	}

	// 8. Register all routes.
	deps := &RouteDeps{
		Modules:    []Module{audit.NewModule(pageHandler)},
		Reports:    svc.Reports(),
		DB:         db,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
		Sessions:   sessions.Sessions(cfg.Session.Name, newSessionStore(&cfg.Session, sessionSecret)),
	}
	if recorder != nil {
		deps.Metrics = recorder.Handler()
		deps.MetricsPath = metricsPath
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	log.Info("reports registered", slog.Int("count", len(deps.Reports)), slog.Bool("metrics", recorder != nil))

	success = true
	return &App{
		engine: engine,
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// newSessionStore builds the configured session backend. Both backends sign
// the session cookie with secret.
func newSessionStore(cfg *config.SessionConfig, secret string) sessions.Store {
	var store sessions.Store
	if cfg.Store == config.SessionStoreCookie {
		store = cookie.NewStore([]byte(secret))
	} else {
		store = memstore.NewStore([]byte(secret))
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// resolveSecret returns secret, or a random one outside release mode when
// secret is a placeholder.
func resolveSecret(secret, mode, name string) (string, error) {
	if !isPlaceholderSecret(secret) {
		return secret, nil
	}
	if mode == gin.ReleaseMode {
		return "", fmt.Errorf("%s must be a non-placeholder value in release mode", name)
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate %s: %w", name, err)
	}
	return hex.EncodeToString(b), nil
}

func isPlaceholderSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

// writeTimeout returns server.timeout, or defaultWriteTimeout when unset.
func writeTimeout(v string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return defaultWriteTimeout
	}
	return d
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout and closes the database
// connection.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, writeTimeout(a.cfg.Server.Timeout))

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		if a.logger != nil {
			a.logger.Info("server started", slog.String("addr", addr))
		} else {
			slog.Info("server started", slog.String("addr", addr))
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		if a.logger != nil {
			a.logger.Info("shutdown signal received")
		} else {
			slog.Info("shutdown signal received")
		}
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		// Graceful shutdown with 5-second deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			if a.logger != nil {
				a.logger.Error("server shutdown error", slog.Any("error", err))
			} else {
				slog.Error("server shutdown error", slog.Any("error", err))
			}
		}
	}

	// Close database connection.
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				if a.logger != nil {
					a.logger.Error("database close error", slog.Any("error", err))
				} else {
					slog.Error("database close error", slog.Any("error", err))
				}
			} else {
				if a.logger != nil {
					a.logger.Info("database connection closed")
				} else {
					slog.Info("database connection closed")
				}
			}
		}
	}

	if a.logger != nil {
		a.logger.Info("server stopped")
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	} else {
		slog.Info("server stopped")
	}

	if runErr != nil {
		return runErr
	}

	return nil
}
