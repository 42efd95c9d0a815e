package decision

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

func newTestEngine() *Engine {
	fixed := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return NewEngine(Config{Now: func() time.Time { return fixed }})
}

func TestEngine_Decide_Rules(t *testing.T) {
	tests := []struct {
		name       string
		current    models.LoadSample
		predicted  models.LoadSample
		actions    []models.ScalingAction
		confidence []float64
	}{
		{
			name:       "cpu above 80",
			current:    models.LoadSample{CPUUsage: 75, Throughput: 100},
			predicted:  models.LoadSample{CPUUsage: 90, MemoryUsage: 50, Throughput: 100},
			actions:    []models.ScalingAction{models.ActionScaleUpCPU},
			confidence: []float64{20.0 / 30},
		},
		{
			name:       "cpu confidence capped",
			predicted:  models.LoadSample{CPUUsage: 100, MemoryUsage: 50},
			actions:    []models.ScalingAction{models.ActionScaleUpCPU},
			confidence: []float64{0.95},
		},
		{
			name:       "cpu below 30",
			predicted:  models.LoadSample{CPUUsage: 20, MemoryUsage: 50},
			actions:    []models.ScalingAction{models.ActionScaleDownCPU},
			confidence: []float64{0.6},
		},
		{
			name:       "idle cpu capped at 0.90",
			predicted:  models.LoadSample{CPUUsage: 0, MemoryUsage: 50},
			actions:    []models.ScalingAction{models.ActionScaleDownCPU},
			confidence: []float64{0.90},
		},
		{
			name:       "memory above 85",
			predicted:  models.LoadSample{CPUUsage: 50, MemoryUsage: 95},
			actions:    []models.ScalingAction{models.ActionScaleUpMemory},
			confidence: []float64{0.8},
		},
		{
			name:       "throughput surge",
			current:    models.LoadSample{Throughput: 100},
			predicted:  models.LoadSample{CPUUsage: 50, MemoryUsage: 50, Throughput: 170},
			actions:    []models.ScalingAction{models.ActionScaleUpThreads},
			confidence: []float64{0.7},
		},
		{
			name:       "throughput ignored when current is zero",
			current:    models.LoadSample{Throughput: 0},
			predicted:  models.LoadSample{CPUUsage: 50, MemoryUsage: 50, Throughput: 500},
			actions:    nil,
			confidence: nil,
		},
		{
			name:      "independent rules sorted by confidence",
			current:   models.LoadSample{Throughput: 100},
			predicted: models.LoadSample{CPUUsage: 85, MemoryUsage: 99, Throughput: 400},
			actions: []models.ScalingAction{
				models.ActionScaleUpMemory,
				models.ActionScaleUpThreads,
				models.ActionScaleUpCPU,
			},
			confidence: []float64{0.95, 0.90, 0.5},
		},
		{
			name:      "nothing triggered in band",
			predicted: models.LoadSample{CPUUsage: 55, MemoryUsage: 60},
		},
	}

	e := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Decide(tt.current, tt.predicted, 15)

			require.Len(t, got, len(tt.actions))
			for i := range got {
				assert.Equal(t, tt.actions[i], got[i].Action)
				assert.InDelta(t, tt.confidence[i], got[i].Confidence, 1e-9)
				assert.Equal(t, 15, got[i].HorizonMinutes)
				assert.NotEmpty(t, got[i].Reasoning)
			}
		})
	}
}

func TestEngine_Decide_Parameters(t *testing.T) {
	e := newTestEngine()

	current := models.LoadSample{CPUUsage: 70, CPUWorkers: 8, Throughput: 100, ThreadWorkers: 10}
	predicted := models.LoadSample{CPUUsage: 91, MemoryUsage: 40, Throughput: 200}

	got := e.Decide(current, predicted, 15)
	require.Len(t, got, 2)

	byAction := map[models.ScalingAction]models.ScalingPrediction{}
	for _, p := range got {
		byAction[p.Action] = p
	}

	cpu := byAction[models.ActionScaleUpCPU]
	assert.Equal(t, 70.0, cpu.Parameters[models.ParamTargetUsage])
	assert.InDelta(t, 1.3, cpu.Parameters[models.ParamScalingFactor], 1e-9)
	assert.Equal(t, 11.0, cpu.Parameters[models.ParamTargetWorkers])
	assert.Equal(t, 91.0, cpu.PredictedValue)
	assert.Equal(t, 70.0, cpu.CurrentValue)

	threads := byAction[models.ActionScaleUpThreads]
	assert.InDelta(t, 2.0, threads.Parameters[models.ParamScalingFactor], 1e-9)
	assert.Equal(t, 20.0, threads.Parameters[models.ParamTargetWorkers])
}

func TestEngine_ConfidenceBound(t *testing.T) {
	e := newTestEngine()
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 2000; i++ {
		current := models.LoadSample{
			CPUUsage:   rng.Float64() * 100,
			Throughput: rng.Float64() * 1000,
		}
		predicted := models.LoadSample{
			CPUUsage:    rng.Float64() * 100,
			MemoryUsage: rng.Float64() * 100,
			Throughput:  rng.Float64() * 5000,
		}

		for _, p := range e.Decide(current, predicted, 15) {
			assert.GreaterOrEqual(t, p.Confidence, 0.0)
			assert.LessOrEqual(t, p.Confidence, models.MaxConfidence)
		}
	}
}
