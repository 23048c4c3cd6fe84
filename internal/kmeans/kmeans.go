// Package kmeans implements flat K-means with Elkan's triangle-inequality
// pruning, used both to train the coarse (K1) clustering and, recursively,
// to split an oversized cluster into fixed-size disk buckets.
package kmeans

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/vecdb/bbann/internal/quantization"
)

// Config controls a single K-means training run.
type Config struct {
	K             int
	MaxIterations int
	Seed          int64
	// NormalizeCentroids renormalizes updated centroids to unit length
	// after each iteration, used for the angular/IP variant of the metric.
	NormalizeCentroids bool
	// ReseedEmptyClusters replaces a centroid that lost all of its members
	// with the furthest point from its own centroid, instead of leaving a
	// stale centroid in place.
	ReseedEmptyClusters bool
}

// DefaultConfig returns sane defaults for bucket-level and coarse-level
// clustering alike.
func DefaultConfig(k int) Config {
	return Config{
		K:                   k,
		MaxIterations:       25,
		Seed:                42,
		ReseedEmptyClusters: true,
	}
}

// Result holds the outcome of a training run.
type Result struct {
	Centroids   [][]float32
	Assignments []int
}

// Train clusters vectors into cfg.K groups using Elkan-bounded Lloyd
// iterations, seeded with k-means++.
func Train(vectors [][]float32, cfg Config) (*Result, error) {
	n := len(vectors)
	if n == 0 {
		return nil, fmt.Errorf("kmeans: no input vectors")
	}
	if cfg.K <= 0 {
		return nil, fmt.Errorf("kmeans: k must be positive, got %d", cfg.K)
	}
	if cfg.K > n {
		cfg.K = n
	}
	dim := len(vectors[0])

	seeded, err := quantization.KMeansPlusPlus(vectors, cfg.K, &quantization.QuantizationConfig{
		NumIterations:  0,
		DistanceMetric: quantization.EuclideanDistance,
		RandomSeed:     cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("kmeans: seeding: %w", err)
	}
	centroids := seeded

	e := &elkan{
		vectors:   vectors,
		centroids: centroids,
		dim:       dim,
		k:         cfg.K,
		assign:    make([]int, n),
		upper:     make([]float32, n),
		lower:     make([][]float32, n),
	}
	for i := range e.lower {
		e.lower[i] = make([]float32, cfg.K)
	}
	e.initialAssign()

	rng := rand.New(rand.NewSource(cfg.Seed))
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		e.updateCentroidDistances()
		changed := e.assignStep()
		moved := e.updateCentroids(cfg.NormalizeCentroids)
		if cfg.ReseedEmptyClusters {
			e.reseedEmpty(rng)
		}
		e.recomputeBounds(moved)
		if !changed && iter > 0 {
			break
		}
	}

	return &Result{Centroids: e.centroids, Assignments: e.assign}, nil
}

// elkan holds the running state of Elkan's pruned Lloyd iteration.
type elkan struct {
	vectors   [][]float32
	centroids [][]float32
	dim       int
	k         int

	assign []int
	// upper[i] bounds the true distance from point i to its assigned
	// centroid from above.
	upper []float32
	// lower[i][c] bounds the true distance from point i to centroid c
	// from below.
	lower [][]float32

	centroidDist [][]float32 // centroidDist[c1][c2]
	nearestOther []float32   // nearestOther[c] = min_{c'!=c} centroidDist[c][c']
}

func dist(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

func (e *elkan) initialAssign() {
	for i, v := range e.vectors {
		best, bestDist := 0, float32(math.MaxFloat32)
		for c, ct := range e.centroids {
			d := dist(v, ct)
			e.lower[i][c] = d
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		e.assign[i] = best
		e.upper[i] = bestDist
	}
}

func (e *elkan) updateCentroidDistances() {
	k := e.k
	if e.centroidDist == nil {
		e.centroidDist = make([][]float32, k)
		for i := range e.centroidDist {
			e.centroidDist[i] = make([]float32, k)
		}
		e.nearestOther = make([]float32, k)
	}
	for c1 := 0; c1 < k; c1++ {
		nearest := float32(math.MaxFloat32)
		for c2 := 0; c2 < k; c2++ {
			if c1 == c2 {
				continue
			}
			d := dist(e.centroids[c1], e.centroids[c2])
			e.centroidDist[c1][c2] = d
			if d < nearest {
				nearest = d
			}
		}
		e.nearestOther[c1] = nearest
	}
}

// assignStep reassigns each point using the standard Elkan pruning rules;
// returns true if any point changed its assigned cluster.
func (e *elkan) assignStep() bool {
	changed := false
	for i, v := range e.vectors {
		a := e.assign[i]
		if e.upper[i] <= 0.5*e.nearestOther[a] {
			continue
		}
		recomputed := false
		for c := 0; c < e.k; c++ {
			if c == a {
				continue
			}
			if e.upper[i] <= e.lower[i][c] {
				continue
			}
			if e.upper[i] <= 0.5*e.centroidDist[a][c] {
				continue
			}
			if !recomputed {
				e.upper[i] = dist(v, e.centroids[a])
				e.lower[i][a] = e.upper[i]
				recomputed = true
				if e.upper[i] <= e.lower[i][c] || e.upper[i] <= 0.5*e.centroidDist[a][c] {
					continue
				}
			}
			d := dist(v, e.centroids[c])
			e.lower[i][c] = d
			if d < e.upper[i] {
				a = c
				e.upper[i] = d
			}
		}
		if a != e.assign[i] {
			e.assign[i] = a
			changed = true
		}
	}
	return changed
}

// updateCentroids recomputes each centroid as the mean of its assigned
// points and returns the distance each centroid moved, used to relax
// bounds rather than recompute them from scratch.
func (e *elkan) updateCentroids(normalize bool) []float32 {
	sums := make([][]float32, e.k)
	counts := make([]int, e.k)
	for c := range sums {
		sums[c] = make([]float32, e.dim)
	}
	for i, v := range e.vectors {
		c := e.assign[i]
		counts[c]++
		for d := 0; d < e.dim; d++ {
			sums[c][d] += v[d]
		}
	}

	moved := make([]float32, e.k)
	for c := 0; c < e.k; c++ {
		if counts[c] == 0 {
			continue
		}
		newCentroid := make([]float32, e.dim)
		inv := 1.0 / float32(counts[c])
		for d := 0; d < e.dim; d++ {
			newCentroid[d] = sums[c][d] * inv
		}
		if normalize {
			norm := dist(newCentroid, make([]float32, e.dim))
			if norm > 0 {
				for d := range newCentroid {
					newCentroid[d] /= norm
				}
			}
		}
		moved[c] = dist(e.centroids[c], newCentroid)
		e.centroids[c] = newCentroid
	}
	return moved
}

// reseedEmpty replaces any centroid with zero members with the point
// currently furthest from its own assigned centroid (by upper bound),
// skipping points whose cluster has only one member and breaking ties
// toward the lowest point index.
func (e *elkan) reseedEmpty(rng *rand.Rand) {
	counts := make([]int, e.k)
	for _, c := range e.assign {
		counts[c]++
	}
	for c := 0; c < e.k; c++ {
		if counts[c] > 0 {
			continue
		}
		worst, worstDist := -1, float32(-1)
		for i := range e.vectors {
			a := e.assign[i]
			if counts[a] <= 1 {
				continue
			}
			d := e.upper[i]
			if d > worstDist {
				worst, worstDist = i, d
			}
		}
		if worst < 0 {
			worst = rng.Intn(len(e.vectors))
		}
		newCentroid := make([]float32, e.dim)
		copy(newCentroid, e.vectors[worst])
		e.centroids[c] = newCentroid
		counts[e.assign[worst]]--
		e.assign[worst] = c
		counts[c]++
	}
}

// recomputeBounds relaxes upper and lower bounds by the per-centroid
// movement computed this iteration, the core trick that lets Elkan's
// method skip most distance recomputations in later iterations.
func (e *elkan) recomputeBounds(moved []float32) {
	maxMove := float32(0)
	for _, m := range moved {
		if m > maxMove {
			maxMove = m
		}
	}
	for i := range e.vectors {
		e.upper[i] += moved[e.assign[i]]
		for c := 0; c < e.k; c++ {
			e.lower[i][c] -= maxMove
			if e.lower[i][c] < 0 {
				e.lower[i][c] = 0
			}
		}
	}
}
