package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/internal/logger"
)

// RequestLogger logs one entry per request. Successful requests to the
// quiet paths (probes, scrapes) are not logged at all.
func RequestLogger(quiet ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if status < 400 && skip[route] {
			return
		}

		fields := map[string]interface{}{
			"status":     status,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if route != "" && route != c.Request.URL.Path {
			fields["route"] = route
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields["query"] = q
		}
		if traceID := GetTraceID(c); traceID != "" {
			fields["trace_id"] = traceID
		}
		if subject := GetSubject(c); subject != "" {
			fields["subject"] = subject
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("server error")
		case status >= 400:
			entry.Warn("client error")
		default:
			entry.Debug("request completed")
		}
	}
}
