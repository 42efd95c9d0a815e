package pools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

var (
	ErrCountersUnavailable = errors.New("performance counters unavailable")
	ErrInvalidResponse     = errors.New("invalid performance response")
)

// RequestCounters aggregates request outcomes over a sliding window. The
// API middleware records into it; the collector reads Summary.
type RequestCounters struct {
	window  time.Duration
	buckets map[int64]*counterBucket
	now     func() time.Time
	mu      sync.Mutex
}

type counterBucket struct {
	requests int64
	errors   int64
	latency  time.Duration
	clients  map[string]struct{}
}

func NewRequestCounters(window time.Duration) *RequestCounters {
	if window <= 0 {
		window = time.Minute
	}
	return &RequestCounters{
		window:  window,
		buckets: make(map[int64]*counterBucket),
		now:     time.Now,
	}
}

func (c *RequestCounters) Record(client string, latency time.Duration, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec := c.now().Unix()
	b, ok := c.buckets[sec]
	if !ok {
		b = &counterBucket{clients: make(map[string]struct{})}
		c.buckets[sec] = b
	}
	b.requests++
	b.latency += latency
	if failed {
		b.errors++
	}
	if client != "" {
		b.clients[client] = struct{}{}
	}
	c.pruneLocked(sec)
}

func (c *RequestCounters) Summary(ctx context.Context) (PerformanceSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().Unix()
	c.pruneLocked(now)

	var (
		summary PerformanceSummary
		latency time.Duration
	)
	clients := make(map[string]struct{})
	for _, b := range c.buckets {
		summary.RequestCount += b.requests
		summary.ErrorCount += b.errors
		latency += b.latency
		for id := range b.clients {
			clients[id] = struct{}{}
		}
	}

	summary.Throughput = float64(summary.RequestCount) / c.window.Seconds()
	summary.ActiveUsers = float64(len(clients))
	if summary.RequestCount > 0 {
		summary.AvgResponseTime = float64(latency.Milliseconds()) / float64(summary.RequestCount)
	}
	return summary, nil
}

func (c *RequestCounters) pruneLocked(now int64) {
	oldest := now - int64(c.window/time.Second)
	for sec := range c.buckets {
		if sec <= oldest {
			delete(c.buckets, sec)
		}
	}
}

// HTTPCounters fetches a PerformanceSummary from a remote endpoint, such as
// the load simulator.
type HTTPCounters struct {
	client   *http.Client
	endpoint string
}

type HTTPCountersConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPCounters(cfg HTTPCountersConfig) *HTTPCounters {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPCounters{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
	}
}

func (c *HTTPCounters) Summary(ctx context.Context) (PerformanceSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return PerformanceSummary{}, fmt.Errorf("%w: failed to create request: %v", ErrCountersUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return PerformanceSummary{}, fmt.Errorf("%w: %v", ErrCountersUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PerformanceSummary{}, fmt.Errorf("%w: unexpected status code %d", ErrCountersUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PerformanceSummary{}, fmt.Errorf("%w: failed to read response body: %v", ErrCountersUnavailable, err)
	}

	var summary PerformanceSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return PerformanceSummary{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return summary, nil
}

func (c *HTTPCounters) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
