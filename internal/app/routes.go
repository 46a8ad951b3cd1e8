package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jonathanbglass/cloudauditor/internal/middleware"
	"github.com/jonathanbglass/cloudauditor/internal/report"
	"github.com/jonathanbglass/cloudauditor/web"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules    []Module
	Reports    []*report.Definition
	DB         *gorm.DB
	Mode       string // "debug" or "release"
	CSRFSecret string
	// Sessions is the session middleware applied to page routes.
	Sessions gin.HandlerFunc
	// Metrics, when set, is served at MetricsPath outside the page group.
	Metrics     http.Handler
	MetricsPath string
}

// homeEntry is one report link on the home page.
type homeEntry struct {
	Name  string
	Title string
	URL   string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if strings.TrimSpace(deps.CSRFSecret) == "" {
		return errors.New("csrf secret is required")
	}
	if deps.Sessions == nil {
		return errors.New("session middleware is required")
	}

	if err := registerStaticRoutesWithError(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}

	r.GET("/health", healthHandler(deps.DB))

	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics))
	}

	pages := r.Group("/")
	pages.Use(deps.Sessions, middleware.CSRF(deps.CSRFSecret))

	pages.GET("/", homeHandler(deps.Reports))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(pages)
	}

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		renderError(c, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		renderError(c, http.StatusNotFound, "not found")
	})

	return nil
}

// homeHandler lists every registered report in registration order.
func homeHandler(defs []*report.Definition) gin.HandlerFunc {
	entries := make([]homeEntry, 0, len(defs))
	for _, d := range defs {
		entries = append(entries, homeEntry{Name: d.Name, Title: d.Title, URL: "/reports/" + d.Name})
	}
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "home.html", gin.H{
			"Title":     "Cloud Auditor",
			"Reports":   entries,
			"CSRFToken": middleware.GetCSRFToken(c),
		})
	}
}

// healthHandler pings the database and reports status.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		status := "ok"
		code := http.StatusOK

		if db == nil {
			dbStatus, status, code = "error", "degraded", http.StatusServiceUnavailable
		} else if sqlDB, err := db.DB(); err != nil {
			dbStatus, status, code = "error", "degraded", http.StatusServiceUnavailable
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				dbStatus, status, code = "error", "degraded", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status": status,
			"components": gin.H{
				"database": dbStatus,
			},
		})
	}
}

func registerStaticRoutesWithError(r *gin.Engine, mode string) error {
	if mode == gin.DebugMode {
		debugStaticFS, err := resolveDebugStaticFS()
		if err != nil {
			return fmt.Errorf("resolve debug static filesystem: %w", err)
		}
		fileServer := http.StripPrefix("/static", http.FileServer(http.FS(debugStaticFS)))
		r.GET("/static/*filepath", func(c *gin.Context) {
			fileServer.ServeHTTP(c.Writer, c.Request)
		})
		return nil
	}

	staticFS, err := fs.Sub(web.EmbeddedFS, "static")
	if err != nil {
		return fmt.Errorf("create sub filesystem for static assets: %w", err)
	}
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(staticFS)))
	return nil
}

func resolveDebugStaticFS() (fs.FS, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("resolve current file path")
	}

	projectRoot := filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", ".."))
	staticDir := filepath.Join(projectRoot, "web", "static")
	if _, err := os.Stat(staticDir); err != nil {
		return nil, fmt.Errorf("stat static directory %q: %w", staticDir, err)
	}

	return os.DirFS(staticDir), nil
}

// cacheStaticHandler serves release-mode assets with a one-day Cache-Control.
func cacheStaticHandler(fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
