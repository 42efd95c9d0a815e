package models

import (
	"fmt"
	"time"
)

// Recommendations is the read-only snapshot served to pollers.
type Recommendations struct {
	Recommendations          []ScalingPrediction `json:"recommendations"`
	ScalingEnabled           bool                `json:"scalingEnabled"`
	CooldownRemainingSeconds int                 `json:"cooldownRemainingSeconds"`
	LoadHistorySize          int                 `json:"loadHistorySize"`
	Trend                    Trend               `json:"trend"`
	Forecast                 *LoadSample         `json:"forecast,omitempty"`
	GeneratedAt              time.Time           `json:"generatedAt"`
}

// TriggerResult is returned by a manual scaling trigger.
type TriggerResult struct {
	Predictions    []ScalingPrediction `json:"predictions"`
	Dispatched     *ActionRecord       `json:"dispatched,omitempty"`
	CooldownActive bool                `json:"cooldownActive"`
	Reason         string              `json:"reason"`
}

type TriggerErrorCode string

const (
	TriggerErrCorruptHistory TriggerErrorCode = "corrupt_history"
	TriggerErrUnavailable    TriggerErrorCode = "unavailable"
)

// TriggerError is the structured failure of a manual trigger.
type TriggerError struct {
	Code    TriggerErrorCode `json:"code"`
	Message string           `json:"message"`
	Err     error            `json:"-"`
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}
