package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// ResponseCache stores encoded responses. *pools.LocalCache implements it,
// so history reads feed the cache hit rate the collector samples.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

type HistoryHandler struct {
	engine Engine
	cache  ResponseCache
	limits Limits
}

func NewHistoryHandler(engine Engine, cache ResponseCache, limits Limits) *HistoryHandler {
	return &HistoryHandler{engine: engine, cache: cache, limits: limits}
}

type HistoryResponse struct {
	Revision uint64              `json:"revision"`
	Size     int                 `json:"size"`
	Count    int                 `json:"count"`
	Samples  []models.LoadSample `json:"samples"`
}

// Get returns the newest ?limit= samples in ascending order. Bodies are
// cached per history revision.
func (h *HistoryHandler) Get(c *gin.Context) {
	limit, err := h.limits.parseLimit(c, h.limits.Default)
	if err != nil {
		badRequest(c, err)
		return
	}

	snap := h.engine.History()
	key := fmt.Sprintf("history:%d:%d", snap.Revision, limit)

	if h.cache != nil {
		if body, ok := h.cache.Get(key); ok {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
	}

	samples := snap.Recent(limit)
	if samples == nil {
		samples = []models.LoadSample{}
	}

	body, err := json.Marshal(HistoryResponse{
		Revision: snap.Revision,
		Size:     snap.Len(),
		Count:    len(samples),
		Samples:  samples,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode history"})
		return
	}

	if h.cache != nil {
		h.cache.Set(key, body)
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
