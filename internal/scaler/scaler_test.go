package scaler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictive-scaler/internal/pools"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []models.ScalingPrediction
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, p models.ScalingPrediction) (*DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	return &DispatchResult{Action: p.Action, Detail: "ok"}, nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func prediction(action models.ScalingAction, confidence float64) models.ScalingPrediction {
	return models.NewScalingPrediction(action, confidence, 0, 0, 15)
}

func newController(clock *fakeClock, d Dispatcher) *Controller {
	return NewController(ControllerConfig{
		Enabled:          true,
		CooldownPeriod:   300 * time.Second,
		ScalingThreshold: 0.8,
		ActionLogSize:    3,
		Now:              clock.Now,
	}, d)
}

func TestController_CooldownBlocksDispatch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	d := &fakeDispatcher{}
	c := newController(clock, d)

	res := c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.9)})
	require.NotNil(t, res.Dispatched)
	assert.Equal(t, models.ActionScaleUpCPU, res.Dispatched.Action)

	clock.Advance(60 * time.Second)
	res = c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpMemory, 0.95)})
	assert.Nil(t, res.Dispatched)
	assert.True(t, res.CooldownActive)
	assert.Equal(t, 1, d.count())

	state := c.State()
	assert.True(t, state.Active)
	assert.Equal(t, 240, state.RemainingSeconds())
}

func TestController_CooldownExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	d := &fakeDispatcher{}
	c := newController(clock, d)

	c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.9)})
	clock.Advance(300 * time.Second)

	res := c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpMemory, 0.85)})
	require.NotNil(t, res.Dispatched)
	assert.Equal(t, 2, d.count())

	actions := c.Actions()
	require.Len(t, actions, 2)
	assert.True(t, actions[1].Timestamp.Sub(actions[0].Timestamp) >= 300*time.Second)
}

func TestController_SelectsHighestAboveThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	d := &fakeDispatcher{}
	c := newController(clock, d)

	res := c.Tick(context.Background(), []models.ScalingPrediction{
		prediction(models.ActionScaleUpCache, 0.5),
		prediction(models.ActionScaleUpCPU, 0.82),
		prediction(models.ActionScaleUpThreads, 0.91),
	})
	require.NotNil(t, res.Dispatched)
	assert.Equal(t, models.ActionScaleUpThreads, res.Dispatched.Action)
}

func TestController_BelowThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	d := &fakeDispatcher{}
	c := newController(clock, d)

	res := c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.79)})
	assert.Nil(t, res.Dispatched)
	assert.Nil(t, res.Candidate)
	assert.False(t, res.CooldownActive)
	assert.Zero(t, d.count())

	res = c.Tick(context.Background(), nil)
	assert.Nil(t, res.Dispatched)
}

func TestController_Disabled(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	d := &fakeDispatcher{}
	c := NewController(ControllerConfig{Enabled: false, Now: clock.Now}, d)

	res := c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.9)})
	assert.Nil(t, res.Dispatched)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, "scaling disabled", res.Reason)
	assert.Zero(t, d.count())
	assert.False(t, c.State().Active)
}

func TestController_FailureDoesNotStartCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	d := &fakeDispatcher{err: ErrDispatchFailed}
	c := newController(clock, d)

	res := c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.9)})
	require.NotNil(t, res.Failed)
	assert.Equal(t, models.ActionFailed, res.Failed.Status)
	assert.ErrorIs(t, res.Err, ErrDispatchFailed)
	assert.False(t, c.State().Active)
	assert.Empty(t, c.Actions())

	d.err = nil
	res = c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.9)})
	assert.NotNil(t, res.Dispatched)
}

func TestController_ConcurrentTicksDispatchOnce(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	d := &fakeDispatcher{}
	c := newController(clock, d)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.9)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, d.count())
}

func TestController_ActionLogCapped(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newController(clock, &fakeDispatcher{})

	for i := 0; i < 5; i++ {
		c.Tick(context.Background(), []models.ScalingPrediction{prediction(models.ActionScaleUpCPU, 0.9)})
		clock.Advance(301 * time.Second)
	}
	assert.Len(t, c.Actions(), 3)
}

type fakePool struct {
	workers int
	err     error
	resized []int
}

func (p *fakePool) Stats(ctx context.Context) (pools.PoolStats, error) {
	return pools.PoolStats{Workers: p.workers}, p.err
}

func (p *fakePool) Resize(ctx context.Context, size int) error {
	if p.err != nil {
		return p.err
	}
	p.resized = append(p.resized, size)
	p.workers = size
	return nil
}

type fakeMemory struct{ reclaimed int }

func (m *fakeMemory) Usage(ctx context.Context) (pools.MemoryUsage, error) {
	return pools.MemoryUsage{Percent: 50}, nil
}

func (m *fakeMemory) Reclaim(ctx context.Context) (int64, error) {
	m.reclaimed++
	return 1024, nil
}

type fakeCache struct{ patterns []string }

func (c *fakeCache) Stats(ctx context.Context) (pools.CacheStats, error) {
	return pools.CacheStats{}, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, pattern string) (int64, error) {
	c.patterns = append(c.patterns, pattern)
	return 7, nil
}

func TestPoolDispatcher_Dispatch(t *testing.T) {
	withParams := func(p models.ScalingPrediction, kv map[string]float64) models.ScalingPrediction {
		for k, v := range kv {
			p.Parameters[k] = v
		}
		return p
	}

	tests := []struct {
		name       string
		prediction models.ScalingPrediction
		target     int
		cpuSize    []int
		threadSize []int
		reclaimed  int
		cache      int
		wantErr    error
	}{
		{
			name:       "cpu up uses target workers",
			prediction: withParams(prediction(models.ActionScaleUpCPU, 0.9), map[string]float64{models.ParamTargetWorkers: 6}),
			target:     6,
			cpuSize:    []int{6},
		},
		{
			name:       "cpu up clamped to three times cores",
			prediction: withParams(prediction(models.ActionScaleUpCPU, 0.9), map[string]float64{models.ParamTargetWorkers: 40}),
			target:     12,
			cpuSize:    []int{12},
		},
		{
			name:       "cpu down clamped to half cores",
			prediction: withParams(prediction(models.ActionScaleDownCPU, 0.9), map[string]float64{models.ParamScalingFactor: 0.1}),
			target:     2,
			cpuSize:    []int{2},
		},
		{
			name:       "threads scale by factor",
			prediction: withParams(prediction(models.ActionScaleUpThreads, 0.9), map[string]float64{models.ParamScalingFactor: 1.5}),
			target:     24,
			threadSize: []int{24},
		},
		{
			name:       "memory up reclaims",
			prediction: prediction(models.ActionScaleUpMemory, 0.9),
			reclaimed:  1,
		},
		{
			name:       "cache invalidates",
			prediction: prediction(models.ActionScaleDownCache, 0.9),
			cache:      1,
		},
		{
			name:       "preemptive doubles cpu and reclaims",
			prediction: prediction(models.ActionPreemptive, 0.9),
			target:     8,
			cpuSize:    []int{8},
			reclaimed:  1,
		},
		{
			name:       "memory down unsupported",
			prediction: prediction(models.ActionScaleDownMemory, 0.9),
			wantErr:    ErrUnsupportedAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := &fakePool{workers: 4}
			threads := &fakePool{workers: 16}
			mem := &fakeMemory{}
			cache := &fakeCache{}

			d := NewPoolDispatcher(DispatcherConfig{Cores: 4, MinThreads: 4, MaxThreads: 256}, pools.Set{
				CPU: cpu, Threads: threads, Memory: mem, Cache: cache,
			})

			res, err := d.Dispatch(context.Background(), tt.prediction)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrDispatchFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, res.Target)
			assert.Equal(t, tt.cpuSize, cpu.resized)
			assert.Equal(t, tt.threadSize, threads.resized)
			assert.Equal(t, tt.reclaimed, mem.reclaimed)
			assert.Len(t, cache.patterns, tt.cache)
		})
	}
}

func TestPoolDispatcher_PoolError(t *testing.T) {
	boom := errors.New("resize refused")
	d := NewPoolDispatcher(DispatcherConfig{Cores: 4}, pools.Set{CPU: &fakePool{workers: 4, err: boom}})

	_, err := d.Dispatch(context.Background(), prediction(models.ActionScaleUpCPU, 0.9))
	assert.ErrorIs(t, err, ErrDispatchFailed)
	assert.ErrorIs(t, err, boom)
}

func TestPoolDispatcher_MissingCollaborator(t *testing.T) {
	d := NewPoolDispatcher(DispatcherConfig{Cores: 4}, pools.Set{})

	_, err := d.Dispatch(context.Background(), prediction(models.ActionScaleUpThreads, 0.9))
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestPoolDispatcher_WorkerPoolIntegration(t *testing.T) {
	pool := pools.NewWorkerPool("threads", 8, 16)
	defer pool.Close()

	d := NewPoolDispatcher(DispatcherConfig{Cores: 4, MinThreads: 4, MaxThreads: 64}, pools.Set{Threads: pool})
	p := prediction(models.ActionScaleUpThreads, 0.9)
	p.Parameters[models.ParamTargetWorkers] = 12

	res, err := d.Dispatch(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Target)
	assert.Equal(t, 12, pool.Size())
}
