package pools

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OldStager01/predictive-scaler/internal/logger"
)

// Task is a unit of work run by a WorkerPool.
type Task struct {
	ID      string
	Execute func(context.Context) error
	Timeout time.Duration
}

// WorkerPool is a goroutine pool whose worker count can be changed while
// it runs. Resize is absolute: resizing to the current size is a no-op.
type WorkerPool struct {
	name      string
	tasks     chan Task
	workers   []chan struct{}
	busy      atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
}

func NewWorkerPool(name string, size, queueSize int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size * 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		name:   name,
		tasks:  make(chan Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	p.mu.Lock()
	p.growLocked(size)
	p.mu.Unlock()

	return p
}

func (p *WorkerPool) Submit(task Task) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, p.name)
	}
}

func (p *WorkerPool) Resize(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	before := len(p.workers)
	switch {
	case size > before:
		p.growLocked(size - before)
	case size < before:
		p.shrinkLocked(before - size)
	default:
		return nil
	}

	logger.WithFields(map[string]interface{}{
		"pool":   p.name,
		"before": before,
		"after":  size,
	}).Info("Worker pool resized")

	return nil
}

func (p *WorkerPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *WorkerPool) Stats(ctx context.Context) (PoolStats, error) {
	workers := p.Size()
	busy := int(p.busy.Load())

	stats := PoolStats{
		Workers: workers,
		Busy:    busy,
		Queued:  len(p.tasks),
	}
	if workers > 0 {
		stats.UsagePercent = float64(busy) / float64(workers) * 100
	}
	return stats, nil
}

// Completed returns the number of finished and failed tasks.
func (p *WorkerPool) Completed() (int64, int64) {
	return p.completed.Load(), p.failed.Load()
}

func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.shrinkLocked(len(p.workers))
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *WorkerPool) growLocked(n int) {
	for i := 0; i < n; i++ {
		quit := make(chan struct{})
		p.workers = append(p.workers, quit)
		p.wg.Add(1)
		go p.work(quit)
	}
}

// shrinkLocked stops the newest n workers. A stopped worker finishes the
// task it is running first.
func (p *WorkerPool) shrinkLocked(n int) {
	for i := 0; i < n && len(p.workers) > 0; i++ {
		last := len(p.workers) - 1
		close(p.workers[last])
		p.workers = p.workers[:last]
	}
}

func (p *WorkerPool) work(quit <-chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-quit:
			return
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			p.run(task)
		}
	}
}

func (p *WorkerPool) run(task Task) {
	p.busy.Add(1)
	defer p.busy.Add(-1)

	ctx := p.ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panic: %v", r)
			}
		}()
		return task.Execute(ctx)
	}()

	if err != nil {
		p.failed.Add(1)
		logger.WithFields(map[string]interface{}{
			"pool":    p.name,
			"task_id": task.ID,
			"error":   err.Error(),
		}).Warn("Task execution failed")
		return
	}
	p.completed.Add(1)
}
