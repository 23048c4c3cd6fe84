package bucket

import (
	"fmt"

	"github.com/vecdb/bbann/internal/ids"
	"github.com/vecdb/bbann/internal/kernel"
	"github.com/vecdb/bbann/internal/kmeans"
)

// RecursiveConfig controls the recursive bucket split.
type RecursiveConfig struct {
	// SplitK is the branching factor at each recursion level (the
	// original's hierarchical_clusters always splits two ways).
	SplitK int
	Seed   int64
}

// DefaultRecursiveConfig matches the original's k=2 recursive split.
func DefaultRecursiveConfig() RecursiveConfig {
	return RecursiveConfig{SplitK: 2, Seed: 42}
}

// leafBucket is one group of local vector indices destined for a single
// fixed-size disk block.
type leafBucket struct {
	indices []int
}

// Split partitions vectors (indices 0..len(vectors)-1) into leaf buckets
// each containing at most capacity entries, recursively k-means splitting
// any group that overflows.
func Split(vectors [][]float32, capacity int, cfg RecursiveConfig) ([][]int, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("bucket: capacity must be positive, got %d", capacity)
	}
	all := make([]int, len(vectors))
	for i := range all {
		all[i] = i
	}
	leaves := recursiveSplit(vectors, all, capacity, cfg)
	out := make([][]int, len(leaves))
	for i, l := range leaves {
		out[i] = l.indices
	}
	return out, nil
}

func recursiveSplit(vectors [][]float32, idxs []int, capacity int, cfg RecursiveConfig) []leafBucket {
	if len(idxs) <= capacity {
		return []leafBucket{{indices: idxs}}
	}

	sub := make([][]float32, len(idxs))
	for i, idx := range idxs {
		sub[i] = vectors[idx]
	}

	k := cfg.SplitK
	if k > len(idxs) {
		k = len(idxs)
	}
	res, err := kmeans.Train(sub, kmeans.Config{K: k, MaxIterations: 10, Seed: cfg.Seed, ReseedEmptyClusters: true})
	if err != nil || k <= 1 {
		return chunk(idxs, capacity)
	}

	groups := make([][]int, k)
	for i, a := range res.Assignments {
		groups[a] = append(groups[a], idxs[i])
	}

	var out []leafBucket
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		if len(g) == len(idxs) {
			// K-means failed to separate the group (e.g. duplicate
			// points); fall back to naive chunking to guarantee progress.
			out = append(out, chunk(g, capacity)...)
			continue
		}
		out = append(out, recursiveSplit(vectors, g, capacity, cfg)...)
	}
	return out
}

// chunk splits idxs into capacity-sized runs with no clustering, the
// fallback used when k-means cannot further separate a group.
func chunk(idxs []int, capacity int) []leafBucket {
	var out []leafBucket
	for len(idxs) > 0 {
		n := capacity
		if n > len(idxs) {
			n = len(idxs)
		}
		out = append(out, leafBucket{indices: idxs[:n]})
		idxs = idxs[n:]
	}
	return out
}

// ClusterCentroid is the centroid of one finished leaf bucket, used both
// to populate the proximity graph and to report build statistics.
type ClusterCentroid struct {
	Label    uint64
	Centroid []float32
	Size     int
}

// WriteClusterBuckets writes every leaf bucket of one coarse cluster to its
// block store file and returns the centroid of each written bucket, ready
// for insertion into the proximity graph. The bucket centroid is the
// arithmetic mean of its members for L2, or that mean renormalised to the
// members' average norm for IP, per the recursive builder's contract.
func WriteClusterBuckets(path string, cid uint32, vectors [][]float32, globalIDs []uint32, leaves [][]int, blockSize, dim int, metric kernel.Metric) ([]ClusterCentroid, error) {
	w, err := NewWriter[float32](path, blockSize, dim)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	centroids := make([]ClusterCentroid, len(leaves))
	for bid, leaf := range leaves {
		block := Block[float32]{
			Vectors:   make([][]float32, len(leaf)),
			GlobalIDs: make([]uint32, len(leaf)),
		}
		centroid := make([]float32, dim)
		var normSum float32
		for i, idx := range leaf {
			block.Vectors[i] = vectors[idx]
			block.GlobalIDs[i] = globalIDs[idx]
			for d := 0; d < dim; d++ {
				centroid[d] += vectors[idx][d]
			}
			normSum += kernel.NormL2(vectors[idx])
		}
		for d := range centroid {
			centroid[d] /= float32(len(leaf))
		}
		if metric == kernel.IP {
			avgNorm := normSum / float32(len(leaf))
			if n := kernel.NormL2(centroid); n > 0 {
				scale := avgNorm / n
				for d := range centroid {
					centroid[d] *= scale
				}
			}
		}
		if err := w.WriteBlock(block); err != nil {
			return nil, fmt.Errorf("bucket: write block %d of cluster %d: %w", bid, cid, err)
		}
		centroids[bid] = ClusterCentroid{
			Label:    ids.Compose(cid, uint32(bid), 0),
			Centroid: centroid,
			Size:     len(leaf),
		}
	}
	return centroids, nil
}
