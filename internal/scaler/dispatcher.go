package scaler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/pools"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type DispatcherConfig struct {
	// Cores bounds CPU pool targets to [Cores/2, Cores*3].
	Cores        int
	MinThreads   int
	MaxThreads   int
	CachePattern string
	Timeout      time.Duration
}

// PoolDispatcher maps scaling actions onto the pool collaborators.
type PoolDispatcher struct {
	config DispatcherConfig
	pools  pools.Set
}

func NewPoolDispatcher(cfg DispatcherConfig, set pools.Set) *PoolDispatcher {
	if cfg.Cores <= 0 {
		cfg.Cores = pools.Cores()
	}
	if cfg.MinThreads <= 0 {
		cfg.MinThreads = 4
	}
	if cfg.MaxThreads < cfg.MinThreads {
		cfg.MaxThreads = cfg.MinThreads * 64
	}
	if cfg.CachePattern == "" {
		cfg.CachePattern = "*"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PoolDispatcher{config: cfg, pools: set}
}

// CPUBounds returns the inclusive CPU pool size range.
func (d *PoolDispatcher) CPUBounds() (int, int) {
	lo := d.config.Cores / 2
	if lo < 1 {
		lo = 1
	}
	return lo, d.config.Cores * 3
}

func (d *PoolDispatcher) Dispatch(ctx context.Context, p models.ScalingPrediction) (*DispatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	result, err := d.dispatch(ctx, p)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrDispatchFailed, p.Action, err)
	}

	logger.WithAction(string(p.Action)).WithFields(map[string]interface{}{
		"target":     result.Target,
		"confidence": p.Confidence,
	}).Info(result.Detail)

	return result, nil
}

func (d *PoolDispatcher) dispatch(ctx context.Context, p models.ScalingPrediction) (*DispatchResult, error) {
	switch p.Action {
	case models.ActionScaleUpCPU, models.ActionScaleDownCPU:
		if d.pools.CPU == nil {
			return nil, ErrMissingCollaborator
		}
		lo, hi := d.CPUBounds()
		return d.resize(ctx, p, d.pools.CPU, "cpu", lo, hi)

	case models.ActionScaleUpThreads, models.ActionScaleDownThreads:
		if d.pools.Threads == nil {
			return nil, ErrMissingCollaborator
		}
		return d.resize(ctx, p, d.pools.Threads, "thread", d.config.MinThreads, d.config.MaxThreads)

	case models.ActionScaleUpMemory:
		return d.reclaim(ctx, p.Action)

	case models.ActionScaleUpCache, models.ActionScaleDownCache:
		if d.pools.Cache == nil {
			return nil, ErrMissingCollaborator
		}
		pattern := d.config.CachePattern
		removed, err := d.pools.Cache.Invalidate(ctx, pattern)
		if err != nil {
			return nil, err
		}
		return &DispatchResult{
			Action: p.Action,
			Detail: fmt.Sprintf("invalidated %d cache keys matching %q", removed, pattern),
		}, nil

	case models.ActionPreemptive:
		if d.pools.CPU == nil {
			return nil, ErrMissingCollaborator
		}
		_, hi := d.CPUBounds()
		target := clampInt(d.config.Cores*2, 1, hi)
		if err := d.pools.CPU.Resize(ctx, target); err != nil {
			return nil, err
		}
		reclaimed, err := d.reclaim(ctx, p.Action)
		if err != nil {
			return nil, err
		}
		return &DispatchResult{
			Action: p.Action,
			Target: target,
			Detail: fmt.Sprintf("cpu pool resized to %d; %s", target, reclaimed.Detail),
		}, nil

	case models.ActionScaleDownMemory:
		return nil, ErrUnsupportedAction
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, p.Action)
}

type resizable interface {
	Stats(ctx context.Context) (pools.PoolStats, error)
	Resize(ctx context.Context, size int) error
}

func (d *PoolDispatcher) resize(ctx context.Context, p models.ScalingPrediction, pool resizable, name string, lo, hi int) (*DispatchResult, error) {
	target, err := targetSize(ctx, p, pool)
	if err != nil {
		return nil, err
	}
	target = clampInt(target, lo, hi)

	if err := pool.Resize(ctx, target); err != nil {
		return nil, err
	}
	return &DispatchResult{
		Action: p.Action,
		Target: target,
		Detail: fmt.Sprintf("%s pool resized to %d", name, target),
	}, nil
}

func (d *PoolDispatcher) reclaim(ctx context.Context, action models.ScalingAction) (*DispatchResult, error) {
	if d.pools.Memory == nil {
		return nil, ErrMissingCollaborator
	}
	freed, err := d.pools.Memory.Reclaim(ctx)
	if err != nil {
		return nil, err
	}
	return &DispatchResult{
		Action: action,
		Detail: fmt.Sprintf("reclaimed %d bytes", freed),
	}, nil
}

// targetSize prefers the absolute target computed at decision time and
// falls back to scaling the pool's current size.
func targetSize(ctx context.Context, p models.ScalingPrediction, pool resizable) (int, error) {
	if target, ok := p.Param(models.ParamTargetWorkers); ok && target > 0 {
		return int(target), nil
	}

	stats, err := pool.Stats(ctx)
	if err != nil {
		return 0, err
	}
	factor, ok := p.Param(models.ParamScalingFactor)
	if !ok || factor <= 0 {
		factor = 1
	}
	return int(math.Ceil(float64(stats.Workers) * factor)), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
