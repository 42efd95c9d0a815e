package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/internal/metrics"
	"github.com/OldStager01/predictive-scaler/internal/pools"
)

// Instrument records every request in the Prometheus collectors and, when
// counters is set, in the in-process performance counters the collector
// samples for throughput, latency and error rate.
func Instrument(m *metrics.Metrics, counters *pools.RequestCounters) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		took := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if m != nil {
			m.ObserveHTTPRequest(c.Request.Method, route, status, took)
		}
		if counters != nil {
			counters.Record(c.ClientIP(), took, status >= 500)
		}
	}
}
