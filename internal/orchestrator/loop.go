package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/OldStager01/predictive-scaler/internal/logger"
)

// CycleFunc is one iteration of a background loop. Errors are logged at the
// loop boundary and never stop the loop.
type CycleFunc func(ctx context.Context) error

type LoopConfig struct {
	Name     string
	Interval time.Duration
	Cycle    CycleFunc
	// Observe receives the duration of every cycle.
	Observe func(name string, took time.Duration)
}

// Loop runs a cycle immediately and then once per interval until stopped.
// Each cycle gets a deadline of one interval.
type Loop struct {
	config  LoopConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Loop{config: cfg}
}

func (l *Loop) Name() string {
	return l.config.Name
}

func (l *Loop) Start(parent context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}

	l.ctx, l.cancel = context.WithCancel(parent)
	l.running = true
	l.wg.Add(1)
	go l.run()

	logger.WithLoop(l.config.Name).WithField("interval", l.config.Interval.String()).Info("Loop started")
}

// Stop cancels the loop and waits for the in-flight cycle to return.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()

	logger.WithLoop(l.config.Name).Info("Loop stopped")
}

func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	l.runCycle()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			if l.ctx.Err() != nil {
				return
			}
			l.runCycle()
		}
	}
}

func (l *Loop) runCycle() {
	ctx, cancel := context.WithTimeout(l.ctx, l.config.Interval)
	defer cancel()

	start := time.Now()
	err := l.safeCycle(ctx)
	took := time.Since(start)

	if l.config.Observe != nil {
		l.config.Observe(l.config.Name, took)
	}
	if err != nil {
		logger.WithLoop(l.config.Name).WithField("timestamp", start.Format(time.RFC3339)).
			Errorf("Cycle failed: %v", err)
	}
}

func (l *Loop) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return l.config.Cycle(ctx)
}
