// Package history holds the time-windowed load sample buffer.
//
// A History has a single writer (the collector). Readers take a Snapshot,
// which is an immutable copy tagged with the revision it was taken at, so a
// multi-step computation never observes an append or eviction halfway.
package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

var (
	ErrOutOfOrder = errors.New("sample timestamp not after last sample")
	ErrCorrupt    = errors.New("history is not strictly ascending")
)

type Config struct {
	Window     time.Duration
	MaxSamples int
}

type History struct {
	config   Config
	samples  []models.LoadSample
	revision uint64
	mu       sync.RWMutex
}

func New(cfg Config) *History {
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Minute
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = 2000
	}
	return &History{
		config:  cfg,
		samples: make([]models.LoadSample, 0, 128),
	}
}

// Append adds a sample and evicts every entry older than now minus the
// window. It returns the number of evicted samples.
func (h *History) Append(sample models.LoadSample, now time.Time) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.samples); n > 0 && !sample.Timestamp.After(h.samples[n-1].Timestamp) {
		return 0, fmt.Errorf("%w: %s <= %s", ErrOutOfOrder,
			sample.Timestamp.Format(time.RFC3339Nano),
			h.samples[n-1].Timestamp.Format(time.RFC3339Nano))
	}

	h.samples = append(h.samples, sample)
	evicted := h.evictLocked(now)
	h.revision++
	return evicted, nil
}

func (h *History) evictLocked(now time.Time) int {
	cutoff := now.Add(-h.config.Window)
	drop := 0
	for drop < len(h.samples) && h.samples[drop].Timestamp.Before(cutoff) {
		drop++
	}
	if over := len(h.samples) - drop - h.config.MaxSamples; over > 0 {
		drop += over
	}
	if drop == 0 {
		return 0
	}

	remaining := copy(h.samples, h.samples[drop:])
	clear(h.samples[remaining:])
	h.samples = h.samples[:remaining]
	return drop
}

// Snapshot is an immutable view of History at one revision.
type Snapshot struct {
	Samples  []models.LoadSample
	Revision uint64
}

func (s Snapshot) Len() int {
	return len(s.Samples)
}

// Latest returns the newest sample.
func (s Snapshot) Latest() (models.LoadSample, bool) {
	if len(s.Samples) == 0 {
		return models.LoadSample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// Recent returns up to n newest samples, oldest first.
func (s Snapshot) Recent(n int) []models.LoadSample {
	if n <= 0 || n >= len(s.Samples) {
		return s.Samples
	}
	return s.Samples[len(s.Samples)-n:]
}

func (h *History) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	samples := make([]models.LoadSample, len(h.samples))
	copy(samples, h.samples)
	return Snapshot{Samples: samples, Revision: h.revision}
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

func (h *History) Revision() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.revision
}

func (h *History) Latest() (models.LoadSample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.samples) == 0 {
		return models.LoadSample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// Validate checks the ascending-timestamp invariant.
func (h *History) Validate() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := 1; i < len(h.samples); i++ {
		if !h.samples[i].Timestamp.After(h.samples[i-1].Timestamp) {
			return fmt.Errorf("%w: index %d", ErrCorrupt, i)
		}
	}
	return nil
}
