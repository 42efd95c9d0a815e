package orchestrator

import (
	"sync"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// PredictionLog keeps the most recent predictions for audit.
type PredictionLog struct {
	entries []models.ScalingPrediction
	size    int
	mu      sync.RWMutex
}

func NewPredictionLog(size int) *PredictionLog {
	if size <= 0 {
		size = 100
	}
	return &PredictionLog{size: size}
}

func (l *PredictionLog) Append(predictions ...models.ScalingPrediction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, predictions...)
	if over := len(l.entries) - l.size; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
}

// Recent returns up to limit predictions, newest first.
func (l *PredictionLog) Recent(limit int) []models.ScalingPrediction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.ScalingPrediction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

func (l *PredictionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
