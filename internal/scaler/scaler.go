// Package scaler turns scaling predictions into pool operations and gates
// them behind a cooldown.
package scaler

import (
	"context"
	"errors"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

var (
	ErrDispatchFailed      = errors.New("scaling dispatch failed")
	ErrUnsupportedAction   = errors.New("scaling action not supported")
	ErrMissingCollaborator = errors.New("no collaborator for action")
	ErrTimeout             = errors.New("scaling dispatch timeout")
)

// DispatchResult describes what a dispatch did to the pools.
type DispatchResult struct {
	Action models.ScalingAction
	// Target is the absolute pool size requested, when the action resizes.
	Target int
	Detail string
}

// Dispatcher applies one prediction to the external pools. Implementations
// must use absolute targets so that a retry converges.
type Dispatcher interface {
	Dispatch(ctx context.Context, p models.ScalingPrediction) (*DispatchResult, error)
}
