package models

import "time"

// ModelInfo summarizes a trained anomaly model.
type ModelInfo struct {
	Version          int64     `json:"version"`
	TrainedAt        time.Time `json:"trained_at"`
	SampleCount      int       `json:"sample_count"`
	Features         []string  `json:"features"`
	Means            []float64 `json:"means"`
	StdDevs          []float64 `json:"std_devs"`
	Trees            int       `json:"trees"`
	Clusters         int       `json:"clusters"`
	ClusterSizes     []int     `json:"cluster_sizes"`
	OutlierThreshold float64   `json:"outlier_threshold"`
	OutlierCount     int       `json:"outlier_count"`
}
