// Package collector samples the pool collaborators into LoadSamples and
// appends them to the load history.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/predictive-scaler/internal/events"
	"github.com/OldStager01/predictive-scaler/internal/history"
	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/pools"
	"github.com/OldStager01/predictive-scaler/internal/resilience"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

const (
	SourceCPU      = "cpu"
	SourceThreads  = "threads"
	SourceMemory   = "memory"
	SourceCache    = "cache"
	SourceCounters = "counters"
)

var ErrSourceNotConfigured = errors.New("source not configured")

var sources = []string{SourceCPU, SourceThreads, SourceMemory, SourceCache, SourceCounters}

type Config struct {
	// Timeout bounds each collaborator probe.
	Timeout time.Duration
	// MaxFailures consecutive failures open a source's circuit for OpenTimeout.
	MaxFailures   int
	OpenTimeout   time.Duration
	Now           func() time.Time
	OnStateChange func(name string, from, to resilience.State)
}

// Collector is the only writer of the load history.
type Collector struct {
	config    Config
	pools     pools.Set
	history   *history.History
	publisher *events.Publisher
	breakers  map[string]*resilience.CircuitBreaker
	last      models.LoadSample
	hasLast   bool
	mu        sync.Mutex
}

func New(cfg Config, set pools.Set, hist *history.History, pub *events.Publisher) *Collector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	breakers := make(map[string]*resilience.CircuitBreaker, len(sources))
	for _, name := range sources {
		breakers[name] = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          name,
			MaxFailures:   cfg.MaxFailures,
			Timeout:       cfg.OpenTimeout,
			CallTimeout:   cfg.Timeout,
			Now:           cfg.Now,
			OnStateChange: cfg.OnStateChange,
		})
	}

	return &Collector{
		config:    cfg,
		pools:     set,
		history:   hist,
		publisher: pub,
		breakers:  breakers,
	}
}

// Sample reads every collaborator once, records the result in the history
// and returns it. A source that fails keeps its last known value and marks
// the sample degraded; Sample itself never fails.
func (c *Collector) Sample(ctx context.Context) models.LoadSample {
	c.mu.Lock()
	defer c.mu.Unlock()

	sample := c.last
	sample.Degraded = false
	sample.DegradedSources = nil

	degrade := func(source string, err error) {
		sample.Degraded = true
		sample.DegradedSources = append(sample.DegradedSources, source)
		logger.WithSource(source).Warnf("Source unavailable, using last known value: %v", err)
	}

	if stats, err := c.poolStats(ctx, SourceCPU, c.pools.CPU); err != nil {
		degrade(SourceCPU, err)
	} else {
		sample.CPUUsage = stats.UsagePercent
		sample.CPUWorkers = stats.Workers
	}

	if stats, err := c.poolStats(ctx, SourceThreads, c.pools.Threads); err != nil {
		degrade(SourceThreads, err)
	} else {
		sample.ThreadWorkers = stats.Workers
	}

	if usage, err := c.memory(ctx); err != nil {
		degrade(SourceMemory, err)
	} else {
		sample.MemoryUsage = usage.Percent
	}

	if stats, err := c.cache(ctx); err != nil {
		degrade(SourceCache, err)
	} else {
		sample.CacheHitRate = stats.HitRatePercent
	}

	if summary, err := c.counters(ctx); err != nil {
		degrade(SourceCounters, err)
	} else {
		sample.Throughput = summary.Throughput
		sample.ResponseTime = summary.AvgResponseTime
		sample.ErrorRate = summary.ErrorRate()
		sample.ActiveUsers = summary.ActiveUsers
	}

	sample.SystemLoad = models.ComputeSystemLoad(sample.CPUUsage, sample.MemoryUsage, sample.CacheHitRate)
	sample = sample.Clamp()
	sample.Timestamp = c.nextTimestamp()

	if c.history != nil {
		evicted, err := c.history.Append(sample, sample.Timestamp)
		if err != nil {
			logger.WithSource("history").Errorf("Failed to append sample: %v", err)
		} else if evicted > 0 {
			logger.Debugf("Evicted %d stale samples", evicted)
		}
	}

	c.last = sample
	c.hasLast = true
	c.publisher.SampleCollected(sample)

	return sample
}

// nextTimestamp keeps sample timestamps strictly ascending even when the
// clock stalls or steps backwards.
func (c *Collector) nextTimestamp() time.Time {
	now := c.config.Now()
	if c.hasLast && !now.After(c.last.Timestamp) {
		return c.last.Timestamp.Add(time.Nanosecond)
	}
	return now
}

// BreakerStates reports the circuit state per source.
func (c *Collector) BreakerStates() map[string]resilience.State {
	states := make(map[string]resilience.State, len(c.breakers))
	for name, cb := range c.breakers {
		states[name] = cb.State()
	}
	return states
}

type statsReader interface {
	Stats(ctx context.Context) (pools.PoolStats, error)
}

func (c *Collector) poolStats(ctx context.Context, source string, pool statsReader) (pools.PoolStats, error) {
	if pool == nil {
		return pools.PoolStats{}, ErrSourceNotConfigured
	}
	return resilience.Call(ctx, c.breakers[source], pool.Stats)
}

func (c *Collector) memory(ctx context.Context) (pools.MemoryUsage, error) {
	if c.pools.Memory == nil {
		return pools.MemoryUsage{}, ErrSourceNotConfigured
	}
	return resilience.Call(ctx, c.breakers[SourceMemory], c.pools.Memory.Usage)
}

func (c *Collector) cache(ctx context.Context) (pools.CacheStats, error) {
	if c.pools.Cache == nil {
		return pools.CacheStats{}, ErrSourceNotConfigured
	}
	return resilience.Call(ctx, c.breakers[SourceCache], c.pools.Cache.Stats)
}

func (c *Collector) counters(ctx context.Context) (pools.PerformanceSummary, error) {
	if c.pools.Counters == nil {
		return pools.PerformanceSummary{}, ErrSourceNotConfigured
	}
	return resilience.Call(ctx, c.breakers[SourceCounters], c.pools.Counters.Summary)
}
