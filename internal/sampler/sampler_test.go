package sampler

import (
	"path/filepath"
	"testing"

	"github.com/vecdb/bbann/internal/binfile"
)

func TestReservoirFloat32SampleSizeAndShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.bin")

	data := make([]float32, 20*4)
	for i := range data {
		data[i] = float32(i)
	}
	if err := binfile.WriteFloat32(path, 20, 4, data); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}

	sample, dim, err := ReservoirFloat32(path, 5, 42)
	if err != nil {
		t.Fatalf("ReservoirFloat32: %v", err)
	}
	if dim != 4 {
		t.Fatalf("dim = %d, want 4", dim)
	}
	if len(sample) != 5*4 {
		t.Fatalf("len(sample) = %d, want %d", len(sample), 5*4)
	}
}

func TestReservoirFloat32RejectsOversizedSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.bin")
	if err := binfile.WriteFloat32(path, 3, 2, []float32{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}
	if _, _, err := ReservoirFloat32(path, 10, 1); err == nil {
		t.Fatal("expected error when sample_num exceeds row count")
	}
}

func TestSampleCount(t *testing.T) {
	if got := SampleCount(1000, 0.01, 20); got != 20 {
		t.Fatalf("SampleCount(1000,0.01,20) = %d, want 20", got)
	}
	if got := SampleCount(100000, 0.01, 20); got != 1000 {
		t.Fatalf("SampleCount(100000,0.01,20) = %d, want 1000", got)
	}
	if got := SampleCount(5, 0.01, 20); got != 5 {
		t.Fatalf("SampleCount(5,0.01,20) = %d, want 5 (clamped to corpus size)", got)
	}
}
