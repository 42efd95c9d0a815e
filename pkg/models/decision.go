package models

import "time"

type ScalingAction string

const (
	ActionScaleUpCPU       ScalingAction = "scale_up_cpu"
	ActionScaleDownCPU     ScalingAction = "scale_down_cpu"
	ActionScaleUpMemory    ScalingAction = "scale_up_memory"
	ActionScaleDownMemory  ScalingAction = "scale_down_memory"
	ActionScaleUpCache     ScalingAction = "scale_up_cache"
	ActionScaleDownCache   ScalingAction = "scale_down_cache"
	ActionScaleUpThreads   ScalingAction = "scale_up_threads"
	ActionScaleDownThreads ScalingAction = "scale_down_threads"
	ActionPreemptive       ScalingAction = "preemptive"
)

// MaxConfidence is the upper bound of every prediction's confidence.
const MaxConfidence = 0.95

// Parameter keys carried in ScalingPrediction.Parameters.
const (
	ParamTargetUsage   = "target_usage"
	ParamScalingFactor = "scaling_factor"
	ParamTargetWorkers = "target_workers"
	ParamExcessPercent = "excess_percent"
)

// ScalingPrediction is a confidence-scored recommendation produced by the
// decision engine.
type ScalingPrediction struct {
	ID             string             `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Action         ScalingAction      `json:"action"`
	Confidence     float64            `json:"confidence"`
	PredictedValue float64            `json:"predicted_value"`
	CurrentValue   float64            `json:"current_value"`
	HorizonMinutes int                `json:"horizon_minutes"`
	Reasoning      string             `json:"reasoning"`
	Parameters     map[string]float64 `json:"parameters,omitempty"`
}

func NewScalingPrediction(action ScalingAction, confidence, predicted, current float64, horizon int) ScalingPrediction {
	return ScalingPrediction{
		ID:             NewUUID(),
		CreatedAt:      time.Now(),
		Action:         action,
		Confidence:     clamp(confidence, 0, MaxConfidence),
		PredictedValue: predicted,
		CurrentValue:   current,
		HorizonMinutes: horizon,
		Parameters:     make(map[string]float64),
	}
}

func (p ScalingPrediction) IsHighConfidence(threshold float64) bool {
	return p.Confidence >= threshold
}

// Param returns the named parameter and whether it was set.
func (p ScalingPrediction) Param(key string) (float64, bool) {
	v, ok := p.Parameters[key]
	return v, ok
}
