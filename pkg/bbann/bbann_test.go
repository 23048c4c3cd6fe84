package bbann

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/vecdb/bbann/internal/binfile"
	"github.com/vecdb/bbann/internal/kernel"
)

// TestTinyDeterministicBuildAndSearch reproduces spec.md's concrete
// scenario 1: n=8, dim=2, K1=2, block_size=128, L2, two well-separated
// four-point corners. Querying (0.1,0.1) with topk=1, nprobe=1 must
// return id=0 at distance 0.02 (within 1e-6).
func TestTinyDeterministicBuildAndSearch(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.bin")
	prefix := filepath.Join(dir, "index") + string(filepath.Separator)

	data := []float32{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		10, 10,
		10, 11,
		11, 10,
		11, 11,
	}
	if err := binfile.WriteFloat32(corpus, 8, 2, data); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}

	opts := DefaultBuildOptions()
	opts.K1 = 2
	opts.BlockSize = 128
	opts.K1SampleRate = 1.0
	opts.BucketSample = 1

	stats, err := Build(corpus, prefix, opts, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Clusters != 2 {
		t.Fatalf("Clusters = %d, want 2", stats.Clusters)
	}
	if stats.Buckets != 2 {
		t.Fatalf("Buckets = %d, want 2", stats.Buckets)
	}
	if stats.Vectors != 8 {
		t.Fatalf("Vectors = %d, want 8", stats.Vectors)
	}

	h, err := Load(prefix, kernel.L2, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer h.Close()

	ids, dists, err := h.KNN([][]float32{{0.1, 0.1}}, 1, 1, 16)
	if err != nil {
		t.Fatalf("KNN: %v", err)
	}
	if len(ids) != 1 || len(ids[0]) != 1 {
		t.Fatalf("ids = %v, want one result for one query", ids)
	}
	if ids[0][0] != 0 {
		t.Fatalf("nearest id = %d, want 0", ids[0][0])
	}
	if math.Abs(float64(dists[0][0])-0.02) > 1e-6 {
		t.Fatalf("distance = %v, want 0.02 (+/-1e-6)", dists[0][0])
	}
}

// TestRangeSearchEmptyRadiusIsNotAnError covers scenario 3: radius=0
// against a non-duplicate query contributes a zero-length slice, not an
// error.
func TestRangeSearchEmptyRadiusIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.bin")
	prefix := filepath.Join(dir, "index") + string(filepath.Separator)

	data := []float32{0, 0, 0, 1, 1, 0, 1, 1, 10, 10, 10, 11, 11, 10, 11, 11}
	if err := binfile.WriteFloat32(corpus, 8, 2, data); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}

	opts := DefaultBuildOptions()
	opts.K1 = 2
	opts.BlockSize = 128
	opts.K1SampleRate = 1.0

	if _, err := Build(corpus, prefix, opts, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	h, err := Load(prefix, kernel.L2, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer h.Close()

	ids, dists, limits, err := h.Range([][]float32{{5, 5}}, 0, 1, 2, 16)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if limits[0] != 0 || limits[len(limits)-1] != len(ids) || len(ids) != len(dists) {
		t.Fatalf("limits = %v, ids = %v, dists = %v", limits, ids, dists)
	}
	if limits[1]-limits[0] != 0 {
		t.Fatalf("query 0 match count = %d, want 0", limits[1]-limits[0])
	}
}
