package graph

import (
	"path/filepath"
	"testing"

	"github.com/vecdb/bbann/internal/ids"
	"github.com/vecdb/bbann/internal/kernel"
)

func buildEightPointGraph(t *testing.T) *Graph {
	t.Helper()
	g := New(Config{M: 8, EfConstruction: 32, Metric: kernel.L2, Seed: 7})
	points := [][]float32{
		{0, 0}, {0, 1}, {1, 0}, {1, 1},
		{50, 50}, {50, 51}, {51, 50}, {51, 51},
	}
	for i, p := range points {
		label := ids.Compose(uint32(i), 0, 0)
		if err := g.AddPoint(p, label); err != nil {
			t.Fatalf("AddPoint(%d): %v", i, err)
		}
	}
	return g
}

func TestSearchKNNFindsNearestCluster(t *testing.T) {
	g := buildEightPointGraph(t)

	results, err := g.SearchKNN([]float32{0.5, 0.5}, 4, 32)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	for _, r := range results {
		cid, _, _ := ids.Parse(r.Label)
		if cid > 3 {
			t.Fatalf("result %+v belongs to the far cluster, want the near one", r)
		}
	}
}

func TestAddPointRejectsDuplicateLabel(t *testing.T) {
	g := New(DefaultConfig())
	label := ids.Compose(1, 2, 0)
	if err := g.AddPoint([]float32{1, 2, 3}, label); err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	if err := g.AddPoint([]float32{4, 5, 6}, label); err == nil {
		t.Fatal("expected error on duplicate label")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := buildEightPointGraph(t)
	path := filepath.Join(t.TempDir(), "graph.gob")
	if err := g.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Size() != g.Size() {
		t.Fatalf("loaded size = %d, want %d", loaded.Size(), g.Size())
	}

	results, err := loaded.SearchKNN([]float32{50.5, 50.5}, 4, 32)
	if err != nil {
		t.Fatalf("SearchKNN after load: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	for _, r := range results {
		cid, _, _ := ids.Parse(r.Label)
		if cid < 4 {
			t.Fatalf("result %+v belongs to the near cluster after reload, want the far one", r)
		}
	}
}

func TestBuildFromCentroidsAddsExtremalSamples(t *testing.T) {
	g := New(Config{M: 8, EfConstruction: 32, Metric: kernel.L2, Seed: 3})
	sources := []CentroidSource{
		{
			Cid:      0,
			Bid:      0,
			Centroid: []float32{0, 0},
			Members:  [][]float32{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
		},
	}
	if err := BuildFromCentroids(g, sources, 3); err != nil {
		t.Fatalf("BuildFromCentroids: %v", err)
	}
	// 1 centroid + 2 extremal samples.
	if g.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", g.Size())
	}
}
