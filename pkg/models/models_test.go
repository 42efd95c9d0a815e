package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeSystemLoad(t *testing.T) {
	tests := []struct {
		name     string
		cpu      float64
		memory   float64
		hitRate  float64
		expected float64
	}{
		{"idle", 0, 0, 100, 0},
		{"saturated", 100, 100, 0, 100},
		{"mixed", 60, 45, 90, (60.0 + 45 + 10) / 3},
		{"out of range clamps", 150, 150, -50, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ComputeSystemLoad(tt.cpu, tt.memory, tt.hitRate), 1e-9)
		})
	}
}

func TestLoadSample_Clamp(t *testing.T) {
	s := LoadSample{
		CPUUsage:     130,
		MemoryUsage:  -4,
		CacheHitRate: math.NaN(),
		Throughput:   -10,
		ActiveUsers:  12,
		ResponseTime: math.NaN(),
		ErrorRate:    0.02,
	}.Clamp()

	assert.Equal(t, 100.0, s.CPUUsage)
	assert.Equal(t, 0.0, s.MemoryUsage)
	assert.Equal(t, 0.0, s.CacheHitRate)
	assert.Equal(t, 0.0, s.Throughput)
	assert.Equal(t, 12.0, s.ActiveUsers)
	assert.Equal(t, 0.0, s.ResponseTime)
	assert.Equal(t, 0.02, s.ErrorRate)
}

func TestLoadSample_Features(t *testing.T) {
	s := LoadSample{CPUUsage: 1, MemoryUsage: 2, Throughput: 3, ActiveUsers: 4, ResponseTime: 5, ErrorRate: 6, CacheHitRate: 7}
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7}, s.Features())
	assert.Len(t, FeatureNames, len(s.Features()))
}

func TestTrend_Factor(t *testing.T) {
	assert.Equal(t, 1.2, TrendIncreasing.Factor())
	assert.Equal(t, 0.8, TrendDecreasing.Factor())
	assert.Equal(t, 1.0, TrendSteady.Factor())
	assert.Equal(t, 1.0, TrendCyclical.Factor())
}

func TestNewScalingPrediction(t *testing.T) {
	p := NewScalingPrediction(ActionScaleUpCPU, 1.4, 99, 70, 15)
	assert.Equal(t, MaxConfidence, p.Confidence)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.IsHighConfidence(0.8))

	p = NewScalingPrediction(ActionScaleDownCPU, -0.3, 10, 20, 15)
	assert.Equal(t, 0.0, p.Confidence)
	assert.False(t, p.IsHighConfidence(0.8))

	_, ok := p.Param(ParamTargetWorkers)
	assert.False(t, ok)
	p.Parameters[ParamTargetWorkers] = 3
	v, ok := p.Param(ParamTargetWorkers)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestCooldownState_RemainingSeconds(t *testing.T) {
	tests := []struct {
		name     string
		state    CooldownState
		expected int
	}{
		{"idle", CooldownState{}, 0},
		{"whole seconds", CooldownState{Active: true, Remaining: 240 * time.Second}, 240},
		{"rounds up", CooldownState{Active: true, Remaining: 1500 * time.Millisecond}, 2},
		{"inactive ignores remaining", CooldownState{Remaining: time.Minute}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.RemainingSeconds())
		})
	}
}

func TestActionRecordFromPrediction(t *testing.T) {
	p := NewScalingPrediction(ActionPreemptive, 0.85, 0, 0, 15)
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	rec := NewActionRecord(p, at, ActionSuccess)
	assert.Equal(t, p.ID, rec.PredictionID)
	assert.Equal(t, ActionPreemptive, rec.Action)
	assert.Equal(t, 0.85, rec.Confidence)
	assert.Equal(t, at, rec.Timestamp)
}

func TestTriggerError(t *testing.T) {
	cause := errors.New("out of order")
	err := error(&TriggerError{Code: TriggerErrCorruptHistory, Message: "history invalid", Err: cause})

	assert.Equal(t, "corrupt_history: history invalid", err.Error())
	assert.ErrorIs(t, err, cause)

	var terr *TriggerError
	assert.True(t, errors.As(err, &terr))
	assert.Equal(t, TriggerErrCorruptHistory, terr.Code)
}

func TestEvent_Builders(t *testing.T) {
	ev := NewEvent(EventTypeError, "collector", "boom").
		WithSeverity(SeverityCritical).
		WithData(map[string]int{"n": 1}).
		WithTraceID("abc")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, SeverityCritical, ev.Severity)
	assert.Equal(t, "abc", ev.TraceID)
	assert.Equal(t, "collector", ev.Source)
}
