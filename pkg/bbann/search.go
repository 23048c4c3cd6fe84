package bbann

import (
	"fmt"
	"time"

	"github.com/vecdb/bbann/internal/fetch"
	"github.com/vecdb/bbann/internal/kernel"
)

// KNN answers a batch of top-k queries: it probes the proximity graph for
// nprobe candidate buckets per query, coalesces the whole batch's reads
// through the fetch engine, and returns duplicate-free per-query results,
// nearest first. Distances are reported in the caller's native metric
// polarity (IP distances are un-negated before being returned), so L2
// distances come out ascending and IP scores descending.
func (h *Handle) KNN(queries [][]float32, topk, nprobe, ef int) ([][]uint32, [][]float32, error) {
	start := time.Now()
	if len(queries) == 0 {
		return nil, nil, nil
	}
	if topk <= 0 {
		return nil, nil, fmt.Errorf("bbann: topk must be positive, got %d", topk)
	}

	fetchQueries := make([]fetch.Query, len(queries))
	for i, q := range queries {
		if len(q) != h.dim {
			return nil, nil, fmt.Errorf("bbann: query %d has dim %d, want %d", i, len(q), h.dim)
		}
		locs, err := h.probeLocations(q, nprobe, ef)
		if err != nil {
			return nil, nil, err
		}
		fetchQueries[i] = fetch.Query{Vector: q, Locations: locs}
	}

	results, err := h.engine.Search(fetchQueries, topk)
	if err != nil {
		return nil, nil, fmt.Errorf("bbann: fetch search: %w", err)
	}

	ids := make([][]uint32, len(results))
	dists := make([][]float32, len(results))
	total := 0
	for i, r := range results {
		ids[i] = r.IDs
		dists[i] = unpolarize(h.metric, r.Dists)
		total += len(r.IDs)
	}
	h.recordSearch("knn", start, total)
	return ids, dists, nil
}

// Range answers a batch of radius queries, returning the union of results
// as a CSR-style triple: ids and dists are concatenated across queries in
// order, and limits[i]..limits[i+1] bounds query i's slice (limits[0]=0,
// limits[len(queries)]=len(ids)). A query with no neighbors inside its
// radius is not an error; it simply contributes an empty slice.
//
// Unlike KNN, dists are reported in the engine's internal min-heap
// polarity (IP left negated) rather than the caller's native metric: the
// threshold comparison dists[i] <= radius*radiusFactor must hold
// uniformly across metrics, which only the shared smaller-is-closer
// polarity guarantees.
func (h *Handle) Range(queries [][]float32, radius float64, radiusFactor float64, probeCount, ef int) ([]uint32, []float32, []int, error) {
	if len(queries) == 0 {
		return nil, nil, []int{0}, nil
	}
	if radiusFactor <= 0 {
		radiusFactor = 1.0
	}
	threshold := float32(radius * radiusFactor)

	start := time.Now()
	var ids []uint32
	var dists []float32
	limits := make([]int, len(queries)+1)

	for i, q := range queries {
		if len(q) != h.dim {
			return nil, nil, nil, fmt.Errorf("bbann: query %d has dim %d, want %d", i, len(q), h.dim)
		}
		locs, err := h.probeLocations(q, probeCount, ef)
		if err != nil {
			return nil, nil, nil, err
		}
		// Range search scans every entry in the probed buckets against the
		// radius directly, via the fetch engine's unbounded SearchRadius:
		// a bounded top-k heap would drop valid matches once a probed
		// bucket holds more in-radius entries than the heap's capacity.
		fq := []fetch.Query{{Vector: q, Locations: locs}}
		results, err := h.engine.SearchRadius(fq, threshold)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("bbann: fetch search: %w", err)
		}
		r := results[0]
		ids = append(ids, r.IDs...)
		dists = append(dists, r.Dists...)
		limits[i+1] = len(ids)
	}

	h.recordSearch("range", start, len(ids))
	return ids, dists, limits, nil
}

func unpolarize(metric kernel.Metric, dists []float32) []float32 {
	out := make([]float32, len(dists))
	for i, d := range dists {
		out[i] = unpolarizeOne(metric, d)
	}
	return out
}

func unpolarizeOne(metric kernel.Metric, d float32) float32 {
	if metric == kernel.IP {
		return -d
	}
	return d
}
