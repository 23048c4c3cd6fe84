package graph

import (
	"github.com/vecdb/bbann/internal/ids"
	"github.com/vecdb/bbann/internal/kernel"
)

// CentroidSource describes one finished bucket: its label and centroid,
// plus the member vectors eligible to become extremal samples.
type CentroidSource struct {
	Cid, Bid uint32
	Centroid []float32
	Members  [][]float32
}

// BuildFromCentroids inserts one point per bucket centroid plus, when
// sample > 1, (sample-1) extremal member samples per bucket: for L2 the
// members furthest from the centroid, for IP the members nearest to it
// (pickFurther in the original). Each extremal sample is inserted under
// compose(cid, bid, k) for k in [1, sample), following the original's
// build_graph indexing scheme, so a graph hit on any sample still
// resolves to the owning bucket via internal/ids.Parse.
func BuildFromCentroids(g *Graph, sources []CentroidSource, sample int) error {
	pickFurther := g.metric == kernel.L2

	for _, src := range sources {
		label := ids.Compose(src.Cid, src.Bid, 0)
		if err := g.AddPoint(src.Centroid, label); err != nil {
			return err
		}
		if sample <= 1 {
			continue
		}
		bucketSample := sample - 1
		if bucketSample > len(src.Members) {
			bucketSample = len(src.Members)
		}
		picked := pickExtremalSamples(src.Centroid, src.Members, bucketSample, pickFurther)
		for k, idx := range picked {
			sampleLabel := ids.Compose(src.Cid, src.Bid, uint32(k+1))
			if err := g.AddPoint(src.Members[idx], sampleLabel); err != nil {
				return err
			}
		}
	}
	return nil
}

// pickExtremalSamples greedily selects count member indices without
// replacement: the furthest from centroid when pickFurther, else the
// nearest, matching the original's picked/indices selection loop.
func pickExtremalSamples(centroid []float32, members [][]float32, count int, pickFurther bool) []int {
	if count <= 0 {
		return nil
	}
	distances := make([]float32, len(members))
	for i, m := range members {
		distances[i] = kernel.L2Sqr(m, centroid)
	}

	chosen := make(map[int]bool, count)
	out := make([]int, 0, count)
	for j := 0; j < count; j++ {
		picked := -1
		for k := range members {
			if chosen[k] {
				continue
			}
			if picked == -1 {
				picked = k
				continue
			}
			if pickFurther {
				if distances[k] > distances[picked] {
					picked = k
				}
			} else if distances[k] < distances[picked] {
				picked = k
			}
		}
		if picked == -1 {
			break
		}
		chosen[picked] = true
		out = append(out, picked)
	}
	return out
}
