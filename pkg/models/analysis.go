package models

type Trend string

const (
	TrendSteady     Trend = "steady"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendCyclical   Trend = "cyclical"
)

// Factor is the multiplier the forecaster applies for this trend.
func (t Trend) Factor() float64 {
	switch t {
	case TrendIncreasing:
		return 1.2
	case TrendDecreasing:
		return 0.8
	default:
		return 1.0
	}
}
