package bbann

import (
	"fmt"
	"time"

	"github.com/vecdb/bbann/internal/fetch"
	"github.com/vecdb/bbann/internal/graph"
	"github.com/vecdb/bbann/internal/ids"
	"github.com/vecdb/bbann/internal/kernel"
	"github.com/vecdb/bbann/pkg/observability"
)

// Handle is a loaded, search-ready bbann index: the proximity graph kept
// resident in memory plus the fetch engine fronting the on-disk bucket
// files. A Handle is safe for concurrent KNN/Range calls once Load
// returns.
type Handle struct {
	g      *graph.Graph
	engine *fetch.Engine
	metric kernel.Metric
	dim    int

	metrics *observability.Metrics
}

// LoadOptions controls fetch-engine sizing when loading an index; the
// zero value uses the engine's own defaults.
type LoadOptions struct {
	Direct        bool
	SubmitWorkers int
	WaitWorkers   int
	QueueDepth    int
	Metrics       *observability.Metrics
}

// Load opens a bbann index previously produced by Build: it deserializes
// the proximity graph and opens (lazily, per coarse cluster) the fetch
// engine's file descriptors under prefix.
func Load(prefix string, metric kernel.Metric, opts LoadOptions) (*Handle, error) {
	g, err := graph.Load(prefix + "hnsw-index.bin")
	if err != nil {
		return nil, fmt.Errorf("bbann: load graph: %w", err)
	}

	meta, err := readBuildMeta(prefix)
	if err != nil {
		return nil, err
	}
	if byteMetric(meta.Metric) != metric {
		return nil, fmt.Errorf("bbann: index at %s was built with a different metric", prefix)
	}
	dim := int(meta.Dim)

	engine := fetch.NewEngine(prefix, fetch.Config{
		BlockSize:     int(meta.BlockSize),
		Dim:           dim,
		Metric:        metric,
		Direct:        opts.Direct,
		SubmitWorkers: opts.SubmitWorkers,
		WaitWorkers:   opts.WaitWorkers,
		QueueDepth:    opts.QueueDepth,
	})

	return &Handle{g: g, engine: engine, metric: metric, dim: dim, metrics: opts.Metrics}, nil
}

// Close releases the fetch engine's open file descriptors.
func (h *Handle) Close() error {
	return h.engine.Close()
}

// Info is a lightweight snapshot of a loaded index, cheap enough to
// serve on every health/stats request.
type Info struct {
	Dimensions  int
	Metric      string
	GraphPoints int
}

// Info reports the loaded index's static shape.
func (h *Handle) Info() Info {
	metricName := "L2"
	if h.metric == kernel.IP {
		metricName = "IP"
	}
	return Info{Dimensions: h.dim, Metric: metricName, GraphPoints: h.g.Size()}
}

// probeLocations runs one graph search per query and decodes the nprobe
// nearest labels into deduplicated fetch-engine locations, in ascending
// graph-distance order.
func (h *Handle) probeLocations(query []float32, nprobe, ef int) ([]fetch.Location, error) {
	results, err := h.g.SearchKNN(query, nprobe, ef)
	if err != nil {
		return nil, fmt.Errorf("bbann: graph probe: %w", err)
	}
	seen := make(map[fetch.Location]bool, len(results))
	locs := make([]fetch.Location, 0, len(results))
	for _, r := range results {
		cid, bid, _ := ids.Parse(r.Label)
		loc := fetch.Location{Cid: cid, Bid: bid}
		if seen[loc] {
			continue
		}
		seen[loc] = true
		locs = append(locs, loc)
	}
	return locs, nil
}

func (h *Handle) recordSearch(mode string, start time.Time, resultSize int) {
	if h.metrics != nil {
		h.metrics.RecordSearch(mode, time.Since(start), resultSize)
	}
}
