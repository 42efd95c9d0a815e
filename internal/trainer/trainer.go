// Package trainer periodically fits an outlier and cluster model over the
// standardized load history. The model is published for inspection and
// anomaly flagging; scaling decisions do not read it.
package trainer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

var (
	ErrInsufficientData = errors.New("insufficient samples for training")
	ErrDegenerateFit    = errors.New("degenerate training data")
)

// FeatureNames are the model columns: the sample metrics followed by the
// calendar features.
var FeatureNames = append(append([]string(nil), models.FeatureNames...),
	"hour_of_day", "minute_of_hour", "day_of_week")

type Config struct {
	MinSamples    int
	Trees         int
	SubsampleSize int
	Clusters      int
	MaxIterations int
	// Contamination is the expected outlier share; it sets the score cutoff.
	Contamination float64
	Seed          int64
	Now           func() time.Time
}

// Model is an immutable fitted snapshot.
type Model struct {
	Info      models.ModelInfo
	means     []float64
	scales    []float64
	forest    *IsolationForest
	clusterer *KMeans
}

// Score returns the isolation score of a sample, in (0,1].
func (m *Model) Score(s models.LoadSample) float64 {
	return m.forest.Score(m.standardize(features(s)))
}

func (m *Model) IsOutlier(s models.LoadSample) bool {
	return m.Score(s) >= m.Info.OutlierThreshold
}

// Cluster returns the index of the load regime the sample falls in.
func (m *Model) Cluster(s models.LoadSample) int {
	return m.clusterer.Predict(m.standardize(features(s)))
}

func (m *Model) standardize(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - m.means[j]) / m.scales[j]
	}
	return out
}

type Trainer struct {
	config  Config
	current atomic.Pointer[Model]
	swapMu  sync.Mutex
}

func New(cfg Config) *Trainer {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 20
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.SubsampleSize <= 0 {
		cfg.SubsampleSize = 256
	}
	if cfg.Clusters <= 0 {
		cfg.Clusters = 3
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 50
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 0.5 {
		cfg.Contamination = 0.05
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Trainer{config: cfg}
}

// Current returns the latest model, or nil before the first successful fit.
func (t *Trainer) Current() *Model {
	return t.current.Load()
}

// Train fits a candidate model without publishing it.
func (t *Trainer) Train(samples []models.LoadSample) (*Model, error) {
	if len(samples) < t.config.MinSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(samples), t.config.MinSamples)
	}

	matrix := make([][]float64, len(samples))
	for i, s := range samples {
		row := features(s)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite %s in sample %d", ErrDegenerateFit, FeatureNames[j], i)
			}
		}
		matrix[i] = row
	}

	means, scales, err := fitScaler(matrix)
	if err != nil {
		return nil, err
	}
	for _, row := range matrix {
		for j := range row {
			row[j] = (row[j] - means[j]) / scales[j]
		}
	}

	forest := NewIsolationForest(t.config.Trees, t.config.SubsampleSize, t.config.Seed)
	forest.Fit(matrix)

	clusterer := NewKMeans(t.config.Clusters, t.config.MaxIterations)
	clusterer.Fit(matrix)

	scores := make([]float64, len(matrix))
	for i, row := range matrix {
		scores[i] = forest.Score(row)
	}
	sort.Float64s(scores)
	threshold := stat.Quantile(1-t.config.Contamination, stat.Empirical, scores, nil)
	if math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: outlier threshold is NaN", ErrDegenerateFit)
	}

	outliers := 0
	for _, s := range scores {
		if s >= threshold {
			outliers++
		}
	}

	return &Model{
		Info: models.ModelInfo{
			TrainedAt:        t.config.Now(),
			SampleCount:      len(samples),
			Features:         FeatureNames,
			Means:            means,
			StdDevs:          scales,
			Trees:            forest.NumTrees(),
			Clusters:         len(clusterer.Centroids),
			ClusterSizes:     clusterer.Sizes,
			OutlierThreshold: threshold,
			OutlierCount:     outliers,
		},
		means:     means,
		scales:    scales,
		forest:    forest,
		clusterer: clusterer,
	}, nil
}

// RunCycle trains on samples and, on success, publishes the model as the
// next version. On failure the previous model stays current.
func (t *Trainer) RunCycle(samples []models.LoadSample) (*Model, error) {
	start := time.Now()
	candidate, err := t.Train(samples)
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			logger.WithLoop("training").Infof("Skipping training: %v", err)
		} else {
			logger.WithLoop("training").Warnf("Discarding candidate model: %v", err)
		}
		return nil, err
	}

	t.swapMu.Lock()
	defer t.swapMu.Unlock()

	var version int64 = 1
	if prev := t.current.Load(); prev != nil {
		version = prev.Info.Version + 1
	}
	candidate.Info.Version = version
	t.current.Store(candidate)

	logger.WithLoop("training").WithFields(map[string]interface{}{
		"version":  version,
		"samples":  candidate.Info.SampleCount,
		"outliers": candidate.Info.OutlierCount,
		"duration": time.Since(start).String(),
	}).Info("Model trained")

	return candidate, nil
}

func features(s models.LoadSample) []float64 {
	return append(s.Features(),
		float64(s.Timestamp.Hour()),
		float64(s.Timestamp.Minute()),
		float64(s.Timestamp.Weekday()),
	)
}

// fitScaler returns per-column means and standard deviations. Constant
// columns get a scale of 1; a matrix with no varying column is rejected.
func fitScaler(matrix [][]float64) ([]float64, []float64, error) {
	cols := len(matrix[0])
	means := make([]float64, cols)
	scales := make([]float64, cols)
	col := make([]float64, len(matrix))

	varying := 0
	for j := 0; j < cols; j++ {
		for i, row := range matrix {
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(std) || math.IsInf(std, 0) {
			return nil, nil, fmt.Errorf("%w: column %s", ErrDegenerateFit, FeatureNames[j])
		}
		means[j] = mean
		if std < 1e-12 {
			scales[j] = 1
			continue
		}
		scales[j] = std
		varying++
	}

	if varying == 0 {
		return nil, nil, fmt.Errorf("%w: every feature is constant", ErrDegenerateFit)
	}
	return means, scales, nil
}
