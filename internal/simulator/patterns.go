package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Pattern scales baseline demand as a function of wall-clock time.
type Pattern interface {
	Modifier(now time.Time) float64
	Name() string
}

func ParsePattern(name string, start time.Time, seed int64) Pattern {
	switch name {
	case "daily":
		return DailyPattern{}
	case "weekly":
		return WeeklyPattern{}
	case "random":
		return NewRandomPattern(seed)
	case "gradual_rise":
		return GradualRisePattern{Start: start, PerMinute: 2, Max: 50}
	case "sine_wave":
		return SineWavePattern{Period: 10 * time.Minute, Amplitude: 0.4}
	default:
		return SteadyPattern{}
	}
}

type SteadyPattern struct{}

func (SteadyPattern) Modifier(time.Time) float64 { return 1 }
func (SteadyPattern) Name() string               { return "steady" }

// DailyPattern peaks during business hours and drops overnight.
type DailyPattern struct{}

func (DailyPattern) Modifier(now time.Time) float64 {
	return dailyModifier(now.Hour())
}

func (DailyPattern) Name() string { return "daily" }

func dailyModifier(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 11:
		return 1.4
	case hour >= 14 && hour <= 16:
		return 1.3
	case hour >= 17 && hour <= 20:
		return 1.1
	case hour <= 6:
		return 0.6
	default:
		return 1.0
	}
}

// WeeklyPattern halves weekend load and follows DailyPattern on weekdays.
type WeeklyPattern struct{}

func (WeeklyPattern) Modifier(now time.Time) float64 {
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return 0.5
	}
	return dailyModifier(now.Hour())
}

func (WeeklyPattern) Name() string { return "weekly" }

// RandomPattern draws a modifier in [0.5, 1.5).
type RandomPattern struct {
	rng *rand.Rand
	mu  sync.Mutex
}

func NewRandomPattern(seed int64) *RandomPattern {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomPattern{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPattern) Modifier(time.Time) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return 0.5 + p.rng.Float64()
}

func (p *RandomPattern) Name() string { return "random" }

// GradualRisePattern grows demand linearly from Start, capped at Max percent.
type GradualRisePattern struct {
	Start     time.Time
	PerMinute float64
	Max       float64
}

func (p GradualRisePattern) Modifier(now time.Time) float64 {
	minutes := now.Sub(p.Start).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return 1 + math.Min(minutes*p.PerMinute, p.Max)/100
}

func (p GradualRisePattern) Name() string { return "gradual_rise" }

// SineWavePattern oscillates demand by ±Amplitude over Period.
type SineWavePattern struct {
	Period    time.Duration
	Amplitude float64
}

func (p SineWavePattern) Modifier(now time.Time) float64 {
	phase := float64(now.UnixNano()) / float64(p.Period.Nanoseconds()) * 2 * math.Pi
	return 1 + math.Sin(phase)*p.Amplitude
}

func (p SineWavePattern) Name() string { return "sine_wave" }
