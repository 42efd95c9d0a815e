package models

import (
	"math"
	"time"
)

// FeatureNames lists the numeric metrics of a LoadSample in the order
// returned by Features.
var FeatureNames = []string{
	"cpu_usage",
	"memory_usage",
	"throughput",
	"active_users",
	"response_time",
	"error_rate",
	"cache_hit_rate",
}

// LoadSample is a point-in-time snapshot of service load. Samples are
// values; once appended to history they are never modified.
type LoadSample struct {
	Timestamp    time.Time `json:"timestamp"`
	CPUUsage     float64   `json:"cpu_usage"`
	MemoryUsage  float64   `json:"memory_usage"`
	Throughput   float64   `json:"throughput"`
	ActiveUsers  float64   `json:"active_users"`
	ResponseTime float64   `json:"response_time"`
	ErrorRate    float64   `json:"error_rate"`
	CacheHitRate float64   `json:"cache_hit_rate"`
	SystemLoad   float64   `json:"system_load"`

	// Pool sizes observed when the sample was taken.
	CPUWorkers    int `json:"cpu_workers"`
	ThreadWorkers int `json:"thread_workers"`

	Degraded        bool     `json:"degraded,omitempty"`
	DegradedSources []string `json:"degraded_sources,omitempty"`
}

// Features returns the numeric metrics in FeatureNames order.
func (s LoadSample) Features() []float64 {
	return []float64{
		s.CPUUsage,
		s.MemoryUsage,
		s.Throughput,
		s.ActiveUsers,
		s.ResponseTime,
		s.ErrorRate,
		s.CacheHitRate,
	}
}

// ComputeSystemLoad derives the composite load from cpu, memory and cache
// miss rate.
func ComputeSystemLoad(cpu, memory, cacheHitRate float64) float64 {
	load := (cpu + memory + (100 - cacheHitRate)) / 3
	return clamp(load, 0, 100)
}

// Clamp returns a copy with every metric forced into its valid domain:
// percentages to [0,100], counts and rates to >= 0.
func (s LoadSample) Clamp() LoadSample {
	s.CPUUsage = clampPercent(s.CPUUsage)
	s.MemoryUsage = clampPercent(s.MemoryUsage)
	s.CacheHitRate = clampPercent(s.CacheHitRate)
	s.SystemLoad = clampPercent(s.SystemLoad)
	s.Throughput = clampCount(s.Throughput)
	s.ActiveUsers = clampCount(s.ActiveUsers)
	s.ResponseTime = clampCount(s.ResponseTime)
	s.ErrorRate = clampCount(s.ErrorRate)
	return s
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 100)
}

func clampCount(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
