package trainer

import (
	"gonum.org/v1/gonum/floats"
)

// KMeans is Lloyd's algorithm with farthest-point initialisation, which
// makes the fit a pure function of its input.
type KMeans struct {
	K             int
	MaxIterations int

	Centroids  [][]float64
	Sizes      []int
	Iterations int
}

func NewKMeans(k, maxIterations int) *KMeans {
	if k <= 0 {
		k = 3
	}
	if maxIterations <= 0 {
		maxIterations = 50
	}
	return &KMeans{K: k, MaxIterations: maxIterations}
}

func (km *KMeans) Fit(data [][]float64) {
	if len(data) == 0 {
		return
	}

	km.Centroids = initCentroids(data, km.K)
	k := len(km.Centroids)
	assign := make([]int, len(data))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < km.MaxIterations; iter++ {
		km.Iterations = iter + 1
		changed := false
		for i, row := range data {
			c := km.nearest(row)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, len(data[0]))
		}
		for i, row := range data {
			floats.Add(sums[assign[i]], row)
			counts[assign[i]]++
		}
		for c := range sums {
			// An emptied cluster keeps its previous centroid.
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			km.Centroids[c] = sums[c]
		}
	}

	// Sizes follow the final centroids even when MaxIterations cut the fit short.
	km.Sizes = make([]int, k)
	for _, row := range data {
		km.Sizes[km.nearest(row)]++
	}
}

// Predict returns the index of the nearest centroid.
func (km *KMeans) Predict(x []float64) int {
	return km.nearest(x)
}

func (km *KMeans) nearest(x []float64) int {
	best, bestDist := 0, -1.0
	for c, centroid := range km.Centroids {
		d := floats.Distance(x, centroid, 2)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// initCentroids starts from the first row and repeatedly adds the row
// farthest from all chosen centroids. Fewer than k distinct rows yield
// fewer centroids.
func initCentroids(data [][]float64, k int) [][]float64 {
	centroids := [][]float64{append([]float64(nil), data[0]...)}
	for len(centroids) < k {
		far, farDist := -1, 0.0
		for i, row := range data {
			d := -1.0
			for _, c := range centroids {
				if dist := floats.Distance(row, c, 2); d < 0 || dist < d {
					d = dist
				}
			}
			if d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			break
		}
		centroids = append(centroids, append([]float64(nil), data[far]...))
	}
	return centroids
}
