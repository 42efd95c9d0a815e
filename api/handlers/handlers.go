// Package handlers serves the scaling engine over HTTP.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/internal/history"
	"github.com/OldStager01/predictive-scaler/internal/resilience"
	"github.com/OldStager01/predictive-scaler/internal/trainer"
	"github.com/OldStager01/predictive-scaler/pkg/config"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// Engine is the slice of the orchestrator the handlers read from.
type Engine interface {
	Recommendations(ctx context.Context) models.Recommendations
	Trigger(ctx context.Context) (*models.TriggerResult, error)
	Actions() []models.ActionRecord
	Predictions(limit int) []models.ScalingPrediction
	Cooldown() models.CooldownState
	History() history.Snapshot
	Model() *trainer.Model
	IsRunning() bool
	CircuitStates() map[string]resilience.State
}

// Limits bounds the ?limit= query parameter.
type Limits struct {
	Default int
	Max     int
}

func LimitsFromConfig(cfg config.APIConfig) Limits {
	l := Limits{Default: cfg.DefaultLimit, Max: cfg.MaxLimit}
	if l.Default <= 0 {
		l.Default = 100
	}
	if l.Max <= 0 {
		l.Max = 1000
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	return l
}

// parseLimit reads ?limit=, falling back to def and capping at Max.
func (l Limits) parseLimit(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	if n > l.Max {
		n = l.Max
	}
	return n, nil
}

// parseTimeRange reads ?from= and ?to= as RFC3339, defaulting to the last
// 24 hours.
func parseTimeRange(c *gin.Context, now time.Time) (time.Time, time.Time, error) {
	to := now
	from := now.Add(-24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid from: %w", err)
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid to: %w", err)
		}
		to = t
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("to must not be before from")
	}
	return from, to, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
