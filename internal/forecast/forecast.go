// Package forecast projects a short-horizon future load sample.
//
// Heuristic is not a trained model. It multiplies the current sample by a
// trend factor (1.2 increasing, 0.8 decreasing, 1.0 otherwise) and by a
// random dampening factor centered at 1.0, bounded to 1 ± 3σ. With the
// default σ of 0.1 a forecast therefore differs from the pure trend
// projection by at most 30%, before clamping to each metric's domain.
// Callers that need a real regressor should supply their own Forecaster.
package forecast

import (
	"math/rand"
	"sync"
	"time"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// Forecaster produces a predicted sample horizonMinutes after current.
type Forecaster interface {
	Forecast(current models.LoadSample, trend models.Trend, horizonMinutes int) models.LoadSample
}

// RandSource yields standard normal draws. *rand.Rand satisfies it.
type RandSource interface {
	NormFloat64() float64
}

const DefaultStdDev = 0.1

type Config struct {
	// StdDev of the dampening factor; zero means DefaultStdDev.
	StdDev float64
	// Disabled turns dampening off, leaving the pure trend projection.
	Disabled bool
	// Bound on |factor-1| expressed in standard deviations.
	MaxSigma float64
}

type Heuristic struct {
	config Config
	rng    RandSource
	mu     sync.Mutex
}

func New(cfg Config, rng RandSource) *Heuristic {
	if cfg.StdDev <= 0 {
		cfg.StdDev = DefaultStdDev
	}
	if cfg.MaxSigma <= 0 {
		cfg.MaxSigma = 3
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Heuristic{config: cfg, rng: rng}
}

// NewSeeded returns a Heuristic with a reproducible dampening sequence.
func NewSeeded(cfg Config, seed int64) *Heuristic {
	return New(cfg, rand.New(rand.NewSource(seed)))
}

func (h *Heuristic) Forecast(current models.LoadSample, trend models.Trend, horizonMinutes int) models.LoadSample {
	factor := trend.Factor() * h.dampening()

	predicted := current
	predicted.Timestamp = current.Timestamp.Add(time.Duration(horizonMinutes) * time.Minute)
	predicted.CPUUsage *= factor
	predicted.MemoryUsage *= factor
	predicted.Throughput *= factor
	predicted.ActiveUsers *= factor
	predicted.ResponseTime *= factor
	predicted.ErrorRate *= factor
	predicted.CacheHitRate *= factor
	predicted.SystemLoad = models.ComputeSystemLoad(predicted.CPUUsage, predicted.MemoryUsage, predicted.CacheHitRate)
	predicted.Degraded = false
	predicted.DegradedSources = nil

	return predicted.Clamp()
}

// dampening draws one factor per forecast, shared by all metrics.
func (h *Heuristic) dampening() float64 {
	if h.config.Disabled {
		return 1
	}

	h.mu.Lock()
	z := h.rng.NormFloat64()
	h.mu.Unlock()

	if z > h.config.MaxSigma {
		z = h.config.MaxSigma
	} else if z < -h.config.MaxSigma {
		z = -h.config.MaxSigma
	}
	return 1 + h.config.StdDev*z
}

// MaxRelativeError is the largest fractional deviation of a forecast from
// the undampened trend projection.
func (h *Heuristic) MaxRelativeError() float64 {
	if h.config.Disabled {
		return 0
	}
	return h.config.StdDev * h.config.MaxSigma
}
