package trainer

import (
	"math"
	"math/rand"
	"sync"
)

const eulerGamma = 0.5772156649

// IsolationForest scores points by how quickly random axis-aligned splits
// isolate them. Scores are in (0,1]; values near 1 are anomalous.
type IsolationForest struct {
	numTrees      int
	subsampleSize int
	seed          int64
	trees         []*isolationTree
	avgPathLength float64
}

func NewIsolationForest(numTrees, subsampleSize int, seed int64) *IsolationForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if subsampleSize <= 0 {
		subsampleSize = 256
	}
	return &IsolationForest{
		numTrees:      numTrees,
		subsampleSize: subsampleSize,
		seed:          seed,
		trees:         make([]*isolationTree, numTrees),
	}
}

// Fit builds the trees. Each tree draws from its own source derived from
// the forest seed, so the result does not depend on goroutine scheduling.
func (f *IsolationForest) Fit(data [][]float64) {
	if len(data) == 0 {
		return
	}

	size := f.subsampleSize
	if size > len(data) {
		size = len(data)
	}
	f.avgPathLength = averagePathLength(size)
	maxHeight := int(math.Ceil(math.Log2(float64(size))))

	var wg sync.WaitGroup
	for i := 0; i < f.numTrees; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			r := rand.New(rand.NewSource(f.seed + int64(idx)))
			tree := &isolationTree{maxHeight: maxHeight}
			tree.fit(subsample(data, size, r), 0, r)
			f.trees[idx] = tree
		}(i)
	}
	wg.Wait()
}

func subsample(data [][]float64, size int, r *rand.Rand) [][]float64 {
	n := len(data)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + r.Intn(n-i)
		indices[i], indices[j] = indices[j], indices[i]
	}

	sample := make([][]float64, size)
	for i := 0; i < size; i++ {
		sample[i] = data[indices[i]]
	}
	return sample
}

// Score returns s(x, n) = 2^(-E(h(x))/c(n)).
func (f *IsolationForest) Score(x []float64) float64 {
	if f.avgPathLength == 0 {
		return 0.5
	}

	total := 0.0
	for _, tree := range f.trees {
		if tree != nil {
			total += tree.pathLength(x, 0)
		}
	}
	avg := total / float64(f.numTrees)
	return math.Pow(2, -avg/f.avgPathLength)
}

func (f *IsolationForest) NumTrees() int {
	return f.numTrees
}

type isolationTree struct {
	maxHeight    int
	splitFeature int
	splitValue   float64
	left, right  *isolationTree
	size         int
	leaf         bool
}

func (t *isolationTree) fit(data [][]float64, depth int, r *rand.Rand) {
	t.size = len(data)
	if len(data) <= 1 || depth >= t.maxHeight || len(data[0]) == 0 {
		t.leaf = true
		return
	}

	t.splitFeature = r.Intn(len(data[0]))

	lo, hi := data[0][t.splitFeature], data[0][t.splitFeature]
	for _, row := range data[1:] {
		v := row[t.splitFeature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		t.leaf = true
		return
	}

	t.splitValue = lo + r.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range data {
		if row[t.splitFeature] < t.splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		t.leaf = true
		return
	}

	t.left = &isolationTree{maxHeight: t.maxHeight}
	t.right = &isolationTree{maxHeight: t.maxHeight}
	t.left.fit(left, depth+1, r)
	t.right.fit(right, depth+1, r)
}

func (t *isolationTree) pathLength(x []float64, depth int) float64 {
	if t.leaf {
		return float64(depth) + averagePathLength(t.size)
	}
	if len(x) <= t.splitFeature {
		return float64(depth)
	}
	if x[t.splitFeature] < t.splitValue {
		return t.left.pathLength(x, depth+1)
	}
	return t.right.pathLength(x, depth+1)
}

// averagePathLength is c(n), the mean unsuccessful search length in a BST.
func averagePathLength(n int) float64 {
	switch {
	case n > 2:
		return 2.0*(math.Log(float64(n-1))+eulerGamma) - 2.0*float64(n-1)/float64(n)
	case n == 2:
		return 1.0
	default:
		return 0
	}
}
