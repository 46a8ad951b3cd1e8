package middleware

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
	requestIDLength     = 16

	// reportParam is the route parameter naming the report being served.
	reportParam = "name"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

var requestIDFallbackCounter atomic.Uint64

// RequestIDConfig controls request-id reuse behavior.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed incoming X-Request-ID, for
	// deployments behind a proxy that assigns one.
	TrustUpstream bool
}

// RequestID assigns every request a fresh ID. See RequestIDWithConfig.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig tags each request with an ID that is stored on the gin
// context, echoed in X-Request-ID, and attached to the request context via
// logger.WithContextAttrs. For report routes the report name is attached as
// well, so every record logged while serving a report (including the SQL
// trace) can be filtered by report.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if cfg.TrustUpstream {
			if upstream := c.GetHeader(requestIDHeader); requestIDPattern.MatchString(upstream) {
				id = upstream
			}
		}
		if id == "" {
			id = generateRequestID()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		attrs := []slog.Attr{slog.String("request_id", id)}
		if report := c.Param(reportParam); report != "" {
			attrs = append(attrs, slog.String("report", report))
		}
		c.Request = c.Request.WithContext(logger.WithContextAttrs(c.Request.Context(), attrs...))

		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func generateRequestID() string {
	b := make([]byte, requestIDLength)
	if _, err := rand.Read(b); err != nil {
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint64(b[8:], requestIDFallbackCounter.Add(1))
	}
	return hex.EncodeToString(b)
}
