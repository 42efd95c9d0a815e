package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/pkg/database/queries"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// ActionStore is the persisted action log. *queries.ScalingActionRepository
// implements it.
type ActionStore interface {
	GetRecent(ctx context.Context, limit int) ([]models.ActionRecord, error)
	GetStats(ctx context.Context, from, to time.Time) (*queries.ActionStats, error)
}

// PredictionStore is the persisted prediction log.
type PredictionStore interface {
	GetRecent(ctx context.Context, limit int) ([]models.ScalingPrediction, error)
}

type ScalingHandler struct {
	engine      Engine
	actions     ActionStore
	predictions PredictionStore
	limits      Limits
	now         func() time.Time
}

// NewScalingHandler serves in-memory state; the stores, when non-nil, back
// ?source=db queries and action stats.
func NewScalingHandler(engine Engine, actions ActionStore, predictions PredictionStore, limits Limits) *ScalingHandler {
	return &ScalingHandler{
		engine:      engine,
		actions:     actions,
		predictions: predictions,
		limits:      limits,
		now:         time.Now,
	}
}

func (h *ScalingHandler) Recommendations(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Recommendations(c.Request.Context()))
}

func (h *ScalingHandler) Trigger(c *gin.Context) {
	result, err := h.engine.Trigger(c.Request.Context())
	if err != nil {
		var terr *models.TriggerError
		if !errors.As(err, &terr) {
			logger.ErrorCtxf(c.Request.Context(), "Manual trigger failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scaling trigger failed"})
			return
		}

		status := http.StatusInternalServerError
		if terr.Code == models.TriggerErrUnavailable {
			status = http.StatusServiceUnavailable
		}
		logger.ErrorCtxf(c.Request.Context(), "Manual trigger failed: %v", err)
		c.JSON(status, gin.H{"error": terr.Message, "code": terr.Code})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ScalingHandler) Actions(c *gin.Context) {
	limit, err := h.limits.parseLimit(c, h.limits.Default)
	if err != nil {
		badRequest(c, err)
		return
	}

	if c.Query("source") == "db" {
		if h.actions == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "persistence is not configured"})
			return
		}
		records, err := h.actions.GetRecent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scaling actions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": records, "count": len(records), "source": "db"})
		return
	}

	records := h.engine.Actions()
	// Newest first, like the persisted log.
	out := make([]models.ActionRecord, 0, min(limit, len(records)))
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     out,
		"count":    len(out),
		"source":   "memory",
		"cooldown": h.engine.Cooldown(),
	})
}

func (h *ScalingHandler) ActionStats(c *gin.Context) {
	if h.actions == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "persistence is not configured"})
		return
	}

	from, to, err := parseTimeRange(c, h.now())
	if err != nil {
		badRequest(c, err)
		return
	}

	stats, err := h.actions.GetStats(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scaling stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *ScalingHandler) Predictions(c *gin.Context) {
	limit, err := h.limits.parseLimit(c, h.limits.Default)
	if err != nil {
		badRequest(c, err)
		return
	}

	if c.Query("source") == "db" {
		if h.predictions == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "persistence is not configured"})
			return
		}
		preds, err := h.predictions.GetRecent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch predictions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": preds, "count": len(preds), "source": "db"})
		return
	}

	preds := h.engine.Predictions(limit)
	c.JSON(http.StatusOK, gin.H{"data": preds, "count": len(preds), "source": "memory"})
}
