package kmeans

import "testing"

func TestTrainSeparatesObviousClusters(t *testing.T) {
	vectors := [][]float32{
		{0, 0}, {0, 1}, {1, 0}, {1, 1},
		{50, 50}, {50, 51}, {51, 50}, {51, 51},
	}
	cfg := DefaultConfig(2)
	cfg.MaxIterations = 10

	res, err := Train(vectors, cfg)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.Centroids) != 2 {
		t.Fatalf("len(Centroids) = %d, want 2", len(res.Centroids))
	}
	if len(res.Assignments) != len(vectors) {
		t.Fatalf("len(Assignments) = %d, want %d", len(res.Assignments), len(vectors))
	}

	firstGroup := res.Assignments[0]
	for i := 0; i < 4; i++ {
		if res.Assignments[i] != firstGroup {
			t.Fatalf("point %d not grouped with the low cluster: %v", i, res.Assignments)
		}
	}
	secondGroup := res.Assignments[4]
	if secondGroup == firstGroup {
		t.Fatalf("high cluster grouped with low cluster")
	}
	for i := 4; i < 8; i++ {
		if res.Assignments[i] != secondGroup {
			t.Fatalf("point %d not grouped with the high cluster: %v", i, res.Assignments)
		}
	}
}

func TestTrainClampsKToInputSize(t *testing.T) {
	vectors := [][]float32{{0, 0}, {1, 1}}
	cfg := DefaultConfig(10)
	res, err := Train(vectors, cfg)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.Centroids) != 2 {
		t.Fatalf("len(Centroids) = %d, want 2 (clamped)", len(res.Centroids))
	}
}

func TestTrainRejectsEmptyInput(t *testing.T) {
	if _, err := Train(nil, DefaultConfig(2)); err == nil {
		t.Fatal("expected error for empty input")
	}
}
