package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/pkg/database/queries"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// ModelStore is the persisted model history.
type ModelStore interface {
	GetLatest(ctx context.Context) (*models.ModelInfo, error)
}

type ModelHandler struct {
	engine Engine
	store  ModelStore
}

func NewModelHandler(engine Engine, store ModelStore) *ModelHandler {
	return &ModelHandler{engine: engine, store: store}
}

type LatestAssessment struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	Outlier   bool      `json:"outlier"`
	Cluster   int       `json:"cluster"`
}

type ModelResponse struct {
	Model  models.ModelInfo  `json:"model"`
	Latest *LatestAssessment `json:"latest,omitempty"`
	Source string            `json:"source"`
}

// Get returns the live model with an assessment of the newest sample. With
// no live model it falls back to the last persisted one.
func (h *ModelHandler) Get(c *gin.Context) {
	if model := h.engine.Model(); model != nil {
		resp := ModelResponse{Model: model.Info, Source: "memory"}
		if latest, ok := h.engine.History().Latest(); ok {
			resp.Latest = &LatestAssessment{
				Timestamp: latest.Timestamp,
				Score:     model.Score(latest),
				Outlier:   model.IsOutlier(latest),
				Cluster:   model.Cluster(latest),
			}
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	if h.store != nil {
		info, err := h.store.GetLatest(c.Request.Context())
		if err != nil && !errors.Is(err, queries.ErrNoModel) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch model"})
			return
		}
		if err == nil && info != nil {
			c.JSON(http.StatusOK, ModelResponse{Model: *info, Source: "db"})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "no model trained yet"})
}
