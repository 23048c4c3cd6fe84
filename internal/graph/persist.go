package graph

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/vecdb/bbann/internal/kernel"
)

// snapshot is the gob-serializable view of a Graph. The metric is
// persisted; the random source is not, and a fresh rand source is seeded
// on Load, since the graph never mutates again after it is loaded for
// search.
type snapshot struct {
	M              int
	EfConstruction int
	Metric         kernel.Metric
	MaxLayer       int
	Dimension      int
	EntryPointID   uint64
	HasEntryPoint  bool
	Nodes          []Node
}

// Save writes the graph to path using encoding/gob. bbann's build-once,
// load-many-times usage requires a graph that survives process restarts.
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := snapshot{
		M:              g.m,
		EfConstruction: g.efConstruction,
		Metric:         g.metric,
		MaxLayer:       g.maxLayer,
		Dimension:      g.dimension,
		Nodes:          make([]Node, 0, len(g.nodes)),
	}
	if g.entryPoint != nil {
		snap.HasEntryPoint = true
		snap.EntryPointID = g.entryPoint.ID
	}
	for _, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, *n)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graph: create %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("graph: encode %s: %w", path, err)
	}
	return nil
}

// Load reads a graph previously written by Save.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graph: open %s: %w", path, err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("graph: decode %s: %w", path, err)
	}

	g := New(Config{M: snap.M, EfConstruction: snap.EfConstruction, Metric: snap.Metric})
	g.maxLayer = snap.MaxLayer
	g.dimension = snap.Dimension
	g.nodes = make(map[uint64]*Node, len(snap.Nodes))
	for i := range snap.Nodes {
		n := snap.Nodes[i]
		g.nodes[n.ID] = &n
	}
	if snap.HasEntryPoint {
		g.entryPoint = g.nodes[snap.EntryPointID]
	}
	return g, nil
}
