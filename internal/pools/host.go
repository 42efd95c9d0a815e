package pools

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostCPUPool reports host CPU utilisation and resizes the compute worker
// pool that runs on it.
type HostCPUPool struct {
	pool    *WorkerPool
	percent func(ctx context.Context) (float64, error)
}

func NewHostCPUPool(pool *WorkerPool) *HostCPUPool {
	return &HostCPUPool{pool: pool, percent: hostCPUPercent}
}

func hostCPUPercent(ctx context.Context) (float64, error) {
	// zero interval compares against the previous call
	values, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("cpu percent: no values")
	}
	return values[0], nil
}

func (h *HostCPUPool) Stats(ctx context.Context) (PoolStats, error) {
	stats, _ := h.pool.Stats(ctx)

	usage, err := h.percent(ctx)
	if err != nil {
		return stats, fmt.Errorf("host cpu usage: %w", err)
	}
	stats.UsagePercent = usage
	return stats, nil
}

func (h *HostCPUPool) Resize(ctx context.Context, size int) error {
	return h.pool.Resize(ctx, size)
}

// Cores is the logical core count used to bound CPU pool targets.
func Cores() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// HostMemory reads virtual memory usage from the host and reclaims memory
// by returning freed heap pages to the OS.
type HostMemory struct {
	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

func NewHostMemory() *HostMemory {
	return &HostMemory{virtual: mem.VirtualMemoryWithContext}
}

func (h *HostMemory) Usage(ctx context.Context) (MemoryUsage, error) {
	vm, err := h.virtual(ctx)
	if err != nil {
		return MemoryUsage{}, fmt.Errorf("virtual memory: %w", err)
	}
	return MemoryUsage{
		Percent:        vm.UsedPercent,
		AvailableBytes: vm.Available,
	}, nil
}

func (h *HostMemory) Reclaim(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	debug.FreeOSMemory()
	runtime.ReadMemStats(&after)

	freed := int64(after.HeapReleased) - int64(before.HeapReleased)
	if freed < 0 {
		freed = 0
	}
	return freed, nil
}
