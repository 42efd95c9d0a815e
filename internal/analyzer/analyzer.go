// Package analyzer classifies the recent direction of load.
//
// The classification fits an ordinary least squares line (x = sample index)
// to cpu, memory and throughput independently and averages the three slopes.
package analyzer

import (
	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type Config struct {
	// MinSamples below which the trend is reported as steady.
	MinSamples int
	// Window is how many of the newest samples are fitted.
	Window        int
	HighThreshold float64
	LowThreshold  float64
}

type Analyzer struct {
	config Config
}

// Result carries the slopes behind a classification.
type Result struct {
	Trend       models.Trend `json:"trend"`
	CPUSlope    float64      `json:"cpu_slope"`
	MemorySlope float64      `json:"memory_slope"`
	LoadSlope   float64      `json:"throughput_slope"`
	AvgSlope    float64      `json:"avg_slope"`
	Samples     int          `json:"samples"`
}

func New(cfg Config) *Analyzer {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 10
	}
	if cfg.Window < cfg.MinSamples {
		cfg.Window = cfg.MinSamples
	}
	if cfg.HighThreshold == 0 {
		cfg.HighThreshold = 1.0
	}
	if cfg.LowThreshold == 0 {
		cfg.LowThreshold = 0.1
	}

	return &Analyzer{config: cfg}
}

func (a *Analyzer) Analyze(recent []models.LoadSample) models.Trend {
	return a.AnalyzeDetail(recent).Trend
}

func (a *Analyzer) AnalyzeDetail(recent []models.LoadSample) Result {
	if len(recent) > a.config.Window {
		recent = recent[len(recent)-a.config.Window:]
	}

	result := Result{Trend: models.TrendSteady, Samples: len(recent)}
	if len(recent) < a.config.MinSamples {
		return result
	}

	xs := make([]float64, len(recent))
	cpu := make([]float64, len(recent))
	mem := make([]float64, len(recent))
	load := make([]float64, len(recent))
	for i, s := range recent {
		xs[i] = float64(i)
		cpu[i] = s.CPUUsage
		mem[i] = s.MemoryUsage
		load[i] = s.Throughput
	}

	result.CPUSlope = slope(xs, cpu)
	result.MemorySlope = slope(xs, mem)
	result.LoadSlope = slope(xs, load)
	result.AvgSlope = (result.CPUSlope + result.MemorySlope + result.LoadSlope) / 3
	result.Trend = a.classify(result.AvgSlope)

	logger.WithFields(map[string]interface{}{
		"samples":   len(recent),
		"avg_slope": result.AvgSlope,
	}).Debugf("Trend classified as %s", result.Trend)

	return result
}

func (a *Analyzer) classify(avg float64) models.Trend {
	switch {
	case avg > a.config.HighThreshold:
		return models.TrendIncreasing
	case avg < -a.config.HighThreshold:
		return models.TrendDecreasing
	case avg > -a.config.LowThreshold && avg < a.config.LowThreshold:
		return models.TrendSteady
	default:
		return models.TrendCyclical
	}
}

func slope(xs, ys []float64) float64 {
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
