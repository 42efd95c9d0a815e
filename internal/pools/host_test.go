package pools

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostCPUPool_Stats(t *testing.T) {
	wp := NewWorkerPool("cpu", 3, 8)
	defer wp.Close()

	h := NewHostCPUPool(wp)
	h.percent = func(context.Context) (float64, error) { return 64.5, nil }

	stats, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 64.5, stats.UsagePercent)
	assert.Equal(t, 3, stats.Workers)

	require.NoError(t, h.Resize(context.Background(), 5))
	assert.Equal(t, 5, wp.Size())
}

func TestHostCPUPool_ProbeError(t *testing.T) {
	wp := NewWorkerPool("cpu", 1, 1)
	defer wp.Close()

	h := NewHostCPUPool(wp)
	h.percent = func(context.Context) (float64, error) { return 0, errors.New("no /proc") }

	_, err := h.Stats(context.Background())
	assert.Error(t, err)
}

func TestHostMemory_Usage(t *testing.T) {
	h := NewHostMemory()
	h.virtual = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 72.25, Available: 4 << 30}, nil
	}

	usage, err := h.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 72.25, usage.Percent)
	assert.Equal(t, uint64(4<<30), usage.AvailableBytes)
}

func TestHostMemory_Reclaim(t *testing.T) {
	freed, err := NewHostMemory().Reclaim(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, freed, int64(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewHostMemory().Reclaim(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCores(t *testing.T) {
	assert.Positive(t, Cores())
}
