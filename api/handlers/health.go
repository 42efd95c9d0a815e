package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/internal/resilience"
)

// Pinger is satisfied by *database.DB and the Redis cache.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	engine Engine
	deps   map[string]Pinger
	now    func() time.Time
}

// NewHealthHandler checks each named dependency; nil entries are skipped.
func NewHealthHandler(engine Engine, deps map[string]Pinger) *HealthHandler {
	checked := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			checked[name] = p
		}
	}
	return &HealthHandler{engine: engine, deps: checked, now: time.Now}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// Health reports every dependency and each collector circuit. An open
// circuit degrades sampling but does not make the service unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	for name, dep := range h.deps {
		if err := dep.HealthCheck(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks[name] = "healthy"
		}
	}

	if h.engine.IsRunning() {
		checks["engine"] = "running"
	} else {
		checks["engine"] = "stopped"
		status = "unhealthy"
	}

	for source, state := range h.engine.CircuitStates() {
		checks["collector."+source] = state.String()
		if state == resilience.StateOpen && status == "healthy" {
			status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: h.timestamp(),
		Checks:    checks,
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ready := h.engine.IsRunning()
	for _, dep := range h.deps {
		if !ready {
			break
		}
		ready = dep.HealthCheck(ctx) == nil
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "not ready",
			Timestamp: h.timestamp(),
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: h.timestamp(),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: h.timestamp(),
	})
}
