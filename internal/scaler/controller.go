package scaler

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type ControllerConfig struct {
	// Enabled=false computes selections but never dispatches.
	Enabled          bool
	CooldownPeriod   time.Duration
	ScalingThreshold float64
	ActionLogSize    int
	Now              func() time.Time
}

// Controller is the cooldown gate in front of a Dispatcher. It is Idle
// until a dispatch succeeds, then Cooling for CooldownPeriod. Failed
// dispatches do not start a cooldown. Ticks are serialized so two
// successful dispatches are never closer than CooldownPeriod.
//
// Cooldown state lives in process memory; separate instances cool down
// independently.
type Controller struct {
	config       ControllerConfig
	dispatcher   Dispatcher
	lastActionAt time.Time
	actions      []models.ActionRecord
	mu           sync.Mutex
}

// TickResult reports the outcome of one Tick.
type TickResult struct {
	Candidate      *models.ScalingPrediction
	Dispatched     *models.ActionRecord
	Failed         *models.ActionRecord
	Err            error
	CooldownActive bool
	Reason         string
}

func NewController(cfg ControllerConfig, dispatcher Dispatcher) *Controller {
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = 300 * time.Second
	}
	if cfg.ScalingThreshold <= 0 {
		cfg.ScalingThreshold = 0.8
	}
	if cfg.ActionLogSize <= 0 {
		cfg.ActionLogSize = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Controller{
		config:     cfg,
		dispatcher: dispatcher,
	}
}

func (c *Controller) Tick(ctx context.Context, predictions []models.ScalingPrediction) TickResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.config.Now()
	if c.coolingLocked(now) {
		return TickResult{
			CooldownActive: true,
			Reason:         "cooldown active",
		}
	}

	candidate, ok := c.selectLocked(predictions)
	if !ok {
		return TickResult{Reason: "no prediction at or above scaling threshold"}
	}

	result := TickResult{Candidate: &candidate}
	if !c.config.Enabled {
		result.Reason = "scaling disabled"
		return result
	}

	log := logger.WithAction(string(candidate.Action))
	outcome, err := c.dispatcher.Dispatch(ctx, candidate)
	at := c.config.Now()

	if err != nil {
		rec := models.NewActionRecord(candidate, at, models.ActionFailed)
		rec.Error = err.Error()
		log.WithField("confidence", candidate.Confidence).Warnf("Dispatch failed, staying idle: %v", err)

		result.Failed = rec
		result.Err = err
		result.Reason = "dispatch failed"
		return result
	}

	rec := models.NewActionRecord(candidate, at, models.ActionSuccess)
	rec.Target = outcome.Target
	rec.Detail = outcome.Detail

	c.lastActionAt = at
	c.appendLocked(*rec)

	log.WithField("cooldown", c.config.CooldownPeriod.String()).Info("Scaling action dispatched, entering cooldown")

	result.Dispatched = rec
	result.CooldownActive = true
	result.Reason = "dispatched"
	return result
}

// selectLocked picks the highest-confidence prediction meeting the threshold.
func (c *Controller) selectLocked(predictions []models.ScalingPrediction) (models.ScalingPrediction, bool) {
	var (
		best  models.ScalingPrediction
		found bool
	)
	for _, p := range predictions {
		if !p.IsHighConfidence(c.config.ScalingThreshold) {
			continue
		}
		if !found || p.Confidence > best.Confidence {
			best = p
			found = true
		}
	}
	return best, found
}

func (c *Controller) coolingLocked(now time.Time) bool {
	if c.lastActionAt.IsZero() {
		return false
	}
	return now.Sub(c.lastActionAt) < c.config.CooldownPeriod
}

func (c *Controller) appendLocked(rec models.ActionRecord) {
	c.actions = append(c.actions, rec)
	if over := len(c.actions) - c.config.ActionLogSize; over > 0 {
		c.actions = append(c.actions[:0:0], c.actions[over:]...)
	}
}

// State returns the cooldown as of now.
func (c *Controller) State() models.CooldownState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := models.CooldownState{Duration: c.config.CooldownPeriod}
	if c.lastActionAt.IsZero() {
		return state
	}

	last := c.lastActionAt
	state.LastActionAt = &last
	remaining := c.config.CooldownPeriod - c.config.Now().Sub(last)
	if remaining > 0 {
		state.Active = true
		state.Remaining = remaining
	}
	return state
}

func (c *Controller) Enabled() bool {
	return c.config.Enabled
}

// Actions returns the successful dispatches, oldest first.
func (c *Controller) Actions() []models.ActionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.ActionRecord, len(c.actions))
	copy(out, c.actions)
	return out
}
