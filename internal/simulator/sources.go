package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OldStager01/predictive-scaler/internal/pools"
)

var ErrSourceDown = errors.New("simulated source unavailable")

// Sources exposes a ServiceSim through the pool collaborator interfaces.
// Individual sources can be failed to exercise degraded sampling.
type Sources struct {
	sim  *ServiceSim
	down map[string]bool
	mu   sync.RWMutex
}

func NewSources(sim *ServiceSim) *Sources {
	return &Sources{sim: sim, down: make(map[string]bool)}
}

// SetDown marks a source (cpu, threads, memory, cache, counters) as failing.
func (s *Sources) SetDown(source string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down[source] = down
}

func (s *Sources) check(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down[source] {
		return fmt.Errorf("%w: %s", ErrSourceDown, source)
	}
	return nil
}

func (s *Sources) Set() pools.Set {
	return pools.Set{
		CPU:      simCPU{s},
		Threads:  simThreads{s},
		Memory:   simMemory{s},
		Cache:    simCache{s},
		Counters: simCounters{s},
	}
}

type simCPU struct{ s *Sources }

func (c simCPU) Stats(ctx context.Context) (pools.PoolStats, error) {
	if err := c.s.check(ctx, "cpu"); err != nil {
		return pools.PoolStats{}, err
	}
	r := c.s.sim.Read()
	return pools.PoolStats{UsagePercent: r.CPUUsage, Workers: r.CPUWorkers}, nil
}

func (c simCPU) Resize(ctx context.Context, size int) error {
	if err := c.s.check(ctx, "cpu"); err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("%w: %d", pools.ErrInvalidSize, size)
	}
	c.s.sim.SetCPUWorkers(size)
	return nil
}

type simThreads struct{ s *Sources }

func (t simThreads) Stats(ctx context.Context) (pools.PoolStats, error) {
	if err := t.s.check(ctx, "threads"); err != nil {
		return pools.PoolStats{}, err
	}
	r := t.s.sim.Read()
	return pools.PoolStats{Workers: r.ThreadWorkers}, nil
}

func (t simThreads) Resize(ctx context.Context, size int) error {
	if err := t.s.check(ctx, "threads"); err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("%w: %d", pools.ErrInvalidSize, size)
	}
	t.s.sim.SetThreadWorkers(size)
	return nil
}

type simMemory struct{ s *Sources }

func (m simMemory) Usage(ctx context.Context) (pools.MemoryUsage, error) {
	if err := m.s.check(ctx, "memory"); err != nil {
		return pools.MemoryUsage{}, err
	}
	r := m.s.sim.Read()
	const total = 16 << 30
	return pools.MemoryUsage{
		Percent:        r.MemoryUsage,
		AvailableBytes: uint64(float64(total) * (100 - r.MemoryUsage) / 100),
	}, nil
}

func (m simMemory) Reclaim(ctx context.Context) (int64, error) {
	if err := m.s.check(ctx, "memory"); err != nil {
		return 0, err
	}
	return m.s.sim.Reclaim(), nil
}

type simCache struct{ s *Sources }

func (c simCache) Stats(ctx context.Context) (pools.CacheStats, error) {
	if err := c.s.check(ctx, "cache"); err != nil {
		return pools.CacheStats{}, err
	}
	return pools.CacheStats{HitRatePercent: c.s.sim.Read().CacheHitRate}, nil
}

func (c simCache) Invalidate(ctx context.Context, pattern string) (int64, error) {
	if err := c.s.check(ctx, "cache"); err != nil {
		return 0, err
	}
	c.s.sim.InvalidateCache()
	return 1, nil
}

type simCounters struct{ s *Sources }

func (c simCounters) Summary(ctx context.Context) (pools.PerformanceSummary, error) {
	if err := c.s.check(ctx, "counters"); err != nil {
		return pools.PerformanceSummary{}, err
	}
	return Summary(c.s.sim.Read()), nil
}

// Summary converts a reading into the performance counter payload.
func Summary(r Reading) pools.PerformanceSummary {
	return pools.PerformanceSummary{
		Throughput:      r.Throughput,
		AvgResponseTime: r.AvgResponseTime,
		ErrorCount:      r.ErrorCount,
		RequestCount:    r.RequestCount,
		ActiveUsers:     r.ActiveUsers,
	}
}
