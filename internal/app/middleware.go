package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/buscacursos-bot-go/internal/ctxutil"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
)

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-Id"

// securityHeaders are set on every response. Nothing served here is meant
// to be rendered by a browser.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range securityHeaders {
			c.Header(h[0], h[1])
		}
		c.Next()
	}
}

// incomingRequestID returns the client's request id, or a new one.
func incomingRequestID(r *http.Request) string {
	for _, h := range []string{requestIDHeader, "X-Correlation-Id"} {
		if id := r.Header.Get(h); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// requestLevel maps a response status to a log level. Unknown paths are
// probed constantly, so 404s stay at debug.
func requestLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest && status != http.StatusNotFound:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

// loggingMiddleware tags the request with an id and logs it once served.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := incomingRequestID(c.Request)
		c.Header(requestIDHeader, id)
		ctx := ctxutil.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		log.LogAttrs(ctx, requestLevel(status), "HTTP request",
			slog.String("http_method", c.Request.Method),
			slog.String("http_path", c.Request.URL.Path),
			slog.Int("http_status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}
