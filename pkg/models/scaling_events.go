package models

import "time"

type ActionStatus string

const (
	ActionSuccess ActionStatus = "success"
	ActionFailed  ActionStatus = "failed"
	ActionSkipped ActionStatus = "skipped"
)

// ActionRecord records one dispatch of a scaling prediction to a pool.
type ActionRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	PredictionID string            `json:"prediction_id"`
	Action       ScalingAction     `json:"action"`
	Confidence   float64           `json:"confidence"`
	Target       int               `json:"target,omitempty"`
	Detail       string            `json:"detail,omitempty"`
	Status       ActionStatus      `json:"status"`
	Error        string            `json:"error,omitempty"`
	Prediction   ScalingPrediction `json:"-"`
}

func NewActionRecord(p ScalingPrediction, at time.Time, status ActionStatus) *ActionRecord {
	return &ActionRecord{
		ID:           NewUUID(),
		Timestamp:    at,
		PredictionID: p.ID,
		Action:       p.Action,
		Confidence:   p.Confidence,
		Status:       status,
		Prediction:   p,
	}
}
