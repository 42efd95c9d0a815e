// Package pools defines the resource collaborators the scaling engine
// observes and resizes, together with their in-process, host and Redis
// backed implementations.
package pools

import (
	"context"
	"errors"
)

var (
	ErrInvalidSize = errors.New("pool size must be positive")
	ErrPoolClosed  = errors.New("pool is closed")
	ErrQueueFull   = errors.New("task queue full")
)

type PoolStats struct {
	UsagePercent float64 `json:"usage_percent"`
	Workers      int     `json:"workers"`
	Busy         int     `json:"busy"`
	Queued       int     `json:"queued"`
}

// CPUPool is the compute worker pool. Resize takes an absolute size.
type CPUPool interface {
	Stats(ctx context.Context) (PoolStats, error)
	Resize(ctx context.Context, size int) error
}

// ThreadPool is the request-handling worker pool.
type ThreadPool interface {
	Stats(ctx context.Context) (PoolStats, error)
	Resize(ctx context.Context, size int) error
}

type MemoryUsage struct {
	Percent        float64 `json:"percent"`
	AvailableBytes uint64  `json:"available_bytes"`
}

type MemorySubsystem interface {
	Usage(ctx context.Context) (MemoryUsage, error)
	// Reclaim returns the number of bytes handed back.
	Reclaim(ctx context.Context) (int64, error)
}

type CacheStats struct {
	HitRatePercent float64 `json:"hit_rate_percent"`
	Keys           int64   `json:"keys"`
}

type CacheSubsystem interface {
	Stats(ctx context.Context) (CacheStats, error)
	// Invalidate removes keys matching a glob pattern and returns the count.
	Invalidate(ctx context.Context, pattern string) (int64, error)
}

type PerformanceSummary struct {
	Throughput      float64 `json:"throughput"`
	AvgResponseTime float64 `json:"avg_response_time"`
	ErrorCount      int64   `json:"error_count"`
	RequestCount    int64   `json:"request_count"`
	ActiveUsers     float64 `json:"active_users"`
}

// ErrorRate is errors per request.
func (s PerformanceSummary) ErrorRate() float64 {
	if s.RequestCount <= 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.RequestCount)
}

type PerformanceCounters interface {
	Summary(ctx context.Context) (PerformanceSummary, error)
}

// Set bundles the collaborators wired into one engine.
type Set struct {
	CPU      CPUPool
	Threads  ThreadPool
	Memory   MemorySubsystem
	Cache    CacheSubsystem
	Counters PerformanceCounters
}
