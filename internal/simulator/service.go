package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

type ServiceConfig struct {
	BaseCPU          float64
	BaseMemory       float64
	BaseThroughput   float64
	BaseUsers        float64
	BaseResponseTime float64
	BaseCacheHitRate float64
	CPUWorkers       int
	ThreadWorkers    int
	// Variance is the half-width of uniform noise added to cpu, in percent.
	Variance float64
	Seed     int64
}

// Reading is one observation of the simulated service.
type Reading struct {
	Timestamp       time.Time `json:"timestamp"`
	CPUUsage        float64   `json:"cpu_usage"`
	MemoryUsage     float64   `json:"memory_usage"`
	Throughput      float64   `json:"throughput"`
	ActiveUsers     float64   `json:"active_users"`
	AvgResponseTime float64   `json:"avg_response_time"`
	RequestCount    int64     `json:"request_count"`
	ErrorCount      int64     `json:"error_count"`
	CacheHitRate    float64   `json:"cache_hit_rate"`
	CPUWorkers      int       `json:"cpu_workers"`
	ThreadWorkers   int       `json:"thread_workers"`
}

type Spike struct {
	Target    float64
	StartTime time.Time
	Duration  time.Duration
	RampUp    time.Duration
}

// level returns the spike value at now, or ok=false once it has ended.
func (s *Spike) level(now time.Time, from float64) (float64, bool) {
	elapsed := now.Sub(s.StartTime)
	switch {
	case elapsed > s.Duration:
		return from, false
	case s.RampUp > 0 && elapsed < s.RampUp:
		progress := float64(elapsed) / float64(s.RampUp)
		return from + (s.Target-from)*progress, true
	default:
		return s.Target, true
	}
}

// ServiceSim models a service whose CPU usage falls as compute workers are
// added, whose latency and errors climb once throughput exceeds what the
// thread pool can serve, and whose memory and cache respond to reclaim and
// invalidation.
type ServiceSim struct {
	config        ServiceConfig
	pattern       Pattern
	spike         *Spike
	memorySpike   *Spike
	cpuWorkers    int
	threadWorkers int
	reclaimed     float64
	cacheHitRate  float64
	last          Reading
	rng           *rand.Rand
	now           func() time.Time
	mu            sync.Mutex
}

func NewServiceSim(cfg ServiceConfig, pattern Pattern) *ServiceSim {
	if cfg.BaseCPU == 0 {
		cfg.BaseCPU = 50
	}
	if cfg.BaseMemory == 0 {
		cfg.BaseMemory = 60
	}
	if cfg.BaseThroughput == 0 {
		cfg.BaseThroughput = 200
	}
	if cfg.BaseUsers == 0 {
		cfg.BaseUsers = 150
	}
	if cfg.BaseResponseTime == 0 {
		cfg.BaseResponseTime = 40
	}
	if cfg.BaseCacheHitRate == 0 {
		cfg.BaseCacheHitRate = 90
	}
	if cfg.CPUWorkers <= 0 {
		cfg.CPUWorkers = 4
	}
	if cfg.ThreadWorkers <= 0 {
		cfg.ThreadWorkers = 16
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if pattern == nil {
		pattern = SteadyPattern{}
	}

	return &ServiceSim{
		config:        cfg,
		pattern:       pattern,
		cpuWorkers:    cfg.CPUWorkers,
		threadWorkers: cfg.ThreadWorkers,
		cacheHitRate:  cfg.BaseCacheHitRate,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		now:           time.Now,
	}
}

// Read returns the current observation. Readings are cached per second so
// every probe of one sampling tick sees the same state.
func (s *ServiceSim) Read() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Truncate(time.Second)
	if s.last.Timestamp.Equal(now) {
		return s.last
	}
	s.last = s.computeLocked(now)
	return s.last
}

func (s *ServiceSim) computeLocked(now time.Time) Reading {
	cfg := s.config
	demand := s.pattern.Modifier(now)
	if s.spike != nil {
		level, active := s.spike.level(now, demand)
		if !active {
			s.spike = nil
		}
		demand = level
	}

	cpu := cfg.BaseCPU * demand * float64(cfg.CPUWorkers) / float64(s.cpuWorkers)
	cpu = clampRange(cpu+(s.rng.Float64()*2-1)*cfg.Variance, 0, 100)

	memory := cfg.BaseMemory + (cpu-cfg.BaseCPU)*0.6 - s.reclaimed
	if s.memorySpike != nil {
		level, active := s.memorySpike.level(now, memory)
		if !active {
			s.memorySpike = nil
		}
		memory = level
	}
	memory = clampRange(memory, 10, 100)
	s.reclaimed *= 0.9

	throughput := cfg.BaseThroughput * demand
	perWorker := cfg.BaseThroughput / float64(cfg.ThreadWorkers) * 1.25
	capacity := perWorker * float64(s.threadWorkers)
	pressure := math.Max(1, throughput/capacity)

	requests := int64(throughput * 60)
	errors := int64(float64(requests) * (pressure - 1) * 0.1)

	s.cacheHitRate = math.Min(cfg.BaseCacheHitRate, s.cacheHitRate+2)

	return Reading{
		Timestamp:       now,
		CPUUsage:        round2(cpu),
		MemoryUsage:     round2(memory),
		Throughput:      round2(throughput),
		ActiveUsers:     math.Round(cfg.BaseUsers * demand),
		AvgResponseTime: round2(cfg.BaseResponseTime * pressure * pressure),
		RequestCount:    requests,
		ErrorCount:      errors,
		CacheHitRate:    round2(s.cacheHitRate),
		CPUWorkers:      s.cpuWorkers,
		ThreadWorkers:   s.threadWorkers,
	}
}

func (s *ServiceSim) SetCPUWorkers(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.cpuWorkers = n
		s.last = Reading{}
	}
}

func (s *ServiceSim) SetThreadWorkers(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.threadWorkers = n
		s.last = Reading{}
	}
}

func (s *ServiceSim) Workers() (cpu, threads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cpuWorkers, s.threadWorkers
}

// Reclaim lowers memory usage by a fifth and reports the simulated bytes.
func (s *ServiceSim) Reclaim() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	freed := s.last.MemoryUsage * 0.2
	s.reclaimed += freed
	s.last = Reading{}
	return int64(freed * (1 << 24))
}

// InvalidateCache drops the hit rate, which then recovers over time.
func (s *ServiceSim) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHitRate = 40
	s.last = Reading{}
}

func (s *ServiceSim) SetPattern(p Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = p
	s.last = Reading{}
}

func (s *ServiceSim) PatternName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pattern.Name()
}

// InjectSpike ramps demand to multiplier over rampUp and holds it for
// duration.
func (s *ServiceSim) InjectSpike(multiplier float64, duration, rampUp time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spike = &Spike{Target: multiplier, StartTime: s.now(), Duration: duration, RampUp: rampUp}
	s.last = Reading{}
}

func (s *ServiceSim) InjectMemorySpike(target float64, duration, rampUp time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memorySpike = &Spike{Target: target, StartTime: s.now(), Duration: duration, RampUp: rampUp}
	s.last = Reading{}
}

func (s *ServiceSim) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"pattern":        s.pattern.Name(),
		"cpu_workers":    s.cpuWorkers,
		"thread_workers": s.threadWorkers,
		"spike_active":   s.spike != nil,
		"memory_spike":   s.memorySpike != nil,
		"cache_hit_rate": s.cacheHitRate,
	}
}

func clampRange(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
