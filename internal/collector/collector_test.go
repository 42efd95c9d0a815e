package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictive-scaler/internal/events"
	"github.com/OldStager01/predictive-scaler/internal/history"
	"github.com/OldStager01/predictive-scaler/internal/pools"
	"github.com/OldStager01/predictive-scaler/internal/resilience"
	"github.com/OldStager01/predictive-scaler/internal/simulator"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type stubPool struct {
	stats pools.PoolStats
	err   error
}

func (p *stubPool) Stats(ctx context.Context) (pools.PoolStats, error) { return p.stats, p.err }
func (p *stubPool) Resize(ctx context.Context, size int) error         { return nil }

type stubMemory struct {
	percent float64
	err     error
}

func (m *stubMemory) Usage(ctx context.Context) (pools.MemoryUsage, error) {
	return pools.MemoryUsage{Percent: m.percent}, m.err
}
func (m *stubMemory) Reclaim(ctx context.Context) (int64, error) { return 0, nil }

type stubCache struct {
	hit float64
	err error
}

func (c *stubCache) Stats(ctx context.Context) (pools.CacheStats, error) {
	return pools.CacheStats{HitRatePercent: c.hit}, c.err
}
func (c *stubCache) Invalidate(ctx context.Context, pattern string) (int64, error) { return 0, nil }

type blockingCounters struct{}

func (blockingCounters) Summary(ctx context.Context) (pools.PerformanceSummary, error) {
	<-ctx.Done()
	return pools.PerformanceSummary{}, ctx.Err()
}

// stallingCounters ignores ctx and sleeps once stall is set.
type stallingCounters struct {
	stall atomic.Bool
}

func (c *stallingCounters) Summary(context.Context) (pools.PerformanceSummary, error) {
	if c.stall.Load() {
		time.Sleep(time.Second)
	}
	return pools.PerformanceSummary{Throughput: 120, AvgResponseTime: 35}, nil
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	cpu     *stubPool
	memory  *stubMemory
	cache   *stubCache
	hist    *history.History
	clock   *stepClock
	events  <-chan *models.Event
	collect *Collector
}

func newFixture(t *testing.T, counters pools.PerformanceCounters) *fixture {
	t.Helper()
	f := &fixture{
		cpu:    &stubPool{stats: pools.PoolStats{UsagePercent: 60, Workers: 4}},
		memory: &stubMemory{percent: 50},
		cache:  &stubCache{hit: 90},
		hist:   history.New(history.Config{Window: time.Hour}),
		clock:  &stepClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
	}
	bus := events.NewEventBus(16)
	t.Cleanup(bus.Close)
	f.events = bus.SubscribeAll()

	if counters == nil {
		rc := pools.NewRequestCounters(time.Minute)
		rc.Record("a", 20*time.Millisecond, false)
		counters = rc
	}

	f.collect = New(Config{
		Timeout:     50 * time.Millisecond,
		MaxFailures: 2,
		OpenTimeout: time.Minute,
		Now:         f.clock.Now,
	}, pools.Set{
		CPU:      f.cpu,
		Threads:  &stubPool{stats: pools.PoolStats{Workers: 16}},
		Memory:   f.memory,
		Cache:    f.cache,
		Counters: counters,
	}, f.hist, events.NewPublisher(bus))
	return f
}

func TestCollector_Sample(t *testing.T) {
	f := newFixture(t, nil)

	s := f.collect.Sample(context.Background())
	assert.False(t, s.Degraded)
	assert.Equal(t, 60.0, s.CPUUsage)
	assert.Equal(t, 50.0, s.MemoryUsage)
	assert.Equal(t, 90.0, s.CacheHitRate)
	assert.Equal(t, 4, s.CPUWorkers)
	assert.Equal(t, 16, s.ThreadWorkers)
	assert.InDelta(t, (60.0+50.0+10.0)/3, s.SystemLoad, 1e-9)
	assert.Equal(t, 1, f.hist.Len())

	ev := <-f.events
	assert.Equal(t, models.EventTypeSampleCollected, ev.Type)
}

func TestCollector_SubstitutesLastKnownValue(t *testing.T) {
	f := newFixture(t, nil)

	f.collect.Sample(context.Background())
	<-f.events

	f.clock.Set(f.clock.Now().Add(30 * time.Second))
	f.memory.err = errors.New("meminfo unreadable")
	f.cpu.stats.UsagePercent = 70

	s := f.collect.Sample(context.Background())
	assert.True(t, s.Degraded)
	assert.Equal(t, []string{SourceMemory}, s.DegradedSources)
	assert.Equal(t, 50.0, s.MemoryUsage)
	assert.Equal(t, 70.0, s.CPUUsage)

	ev := <-f.events
	assert.Equal(t, models.EventTypeSampleDegraded, ev.Type)
}

func TestCollector_FirstSampleFailureIsZero(t *testing.T) {
	f := newFixture(t, nil)
	f.cache.err = errors.New("redis down")

	s := f.collect.Sample(context.Background())
	assert.True(t, s.Degraded)
	assert.Equal(t, 0.0, s.CacheHitRate)
}

func TestCollector_ProbeTimeout(t *testing.T) {
	f := newFixture(t, blockingCounters{})

	start := time.Now()
	s := f.collect.Sample(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, s.DegradedSources, SourceCounters)
}

func TestCollector_ProbeTimeoutIgnoringContext(t *testing.T) {
	counters := &stallingCounters{}
	f := newFixture(t, counters)

	first := f.collect.Sample(context.Background())
	require.False(t, first.Degraded)

	counters.stall.Store(true)
	f.clock.Set(f.clock.Now().Add(30 * time.Second))

	start := time.Now()
	s := f.collect.Sample(context.Background())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{SourceCounters}, s.DegradedSources)
	assert.Equal(t, 120.0, s.Throughput)
	assert.Equal(t, 35.0, s.ResponseTime)
}

func TestCollector_CircuitOpensAfterFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.cpu.err = errors.New("no cpu stats")

	for i := 0; i < 3; i++ {
		f.clock.Set(f.clock.Now().Add(time.Second))
		f.collect.Sample(context.Background())
	}
	assert.Equal(t, resilience.StateOpen, f.collect.BreakerStates()[SourceCPU])
	assert.Equal(t, resilience.StateClosed, f.collect.BreakerStates()[SourceMemory])
}

func TestCollector_TimestampsStrictlyAscending(t *testing.T) {
	f := newFixture(t, nil)

	first := f.collect.Sample(context.Background())
	second := f.collect.Sample(context.Background())
	f.clock.Set(f.clock.Now().Add(-time.Minute))
	third := f.collect.Sample(context.Background())

	assert.True(t, second.Timestamp.After(first.Timestamp))
	assert.True(t, third.Timestamp.After(second.Timestamp))
	assert.Equal(t, 3, f.hist.Len())
	assert.NoError(t, f.hist.Validate())
}

func TestCollector_NilCollaboratorDegrades(t *testing.T) {
	hist := history.New(history.Config{Window: time.Hour})
	c := New(Config{}, pools.Set{}, hist, nil)

	s := c.Sample(context.Background())
	assert.True(t, s.Degraded)
	assert.Len(t, s.DegradedSources, 5)
	assert.Equal(t, 1, hist.Len())
}

func TestCollector_SimulatedSources(t *testing.T) {
	sim := simulator.NewServiceSim(simulator.ServiceConfig{Seed: 7}, simulator.SteadyPattern{})
	src := simulator.NewSources(sim)
	src.SetDown("cache", true)

	hist := history.New(history.Config{Window: time.Hour})
	c := New(Config{}, src.Set(), hist, nil)

	s := c.Sample(context.Background())
	require.True(t, s.Degraded)
	assert.Equal(t, []string{SourceCache}, s.DegradedSources)
	assert.Greater(t, s.CPUUsage, 0.0)
	assert.Greater(t, s.CPUWorkers, 0)
}
