package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/vecdb/bbann/internal/binfile"
	"github.com/vecdb/bbann/internal/kernel"
	"github.com/vecdb/bbann/pkg/api/rest"
	"github.com/vecdb/bbann/pkg/api/rest/middleware"
	"github.com/vecdb/bbann/pkg/bbann"
)

// buildTestIndex builds a tiny, deterministic 8-vector index (the same
// corpus as pkg/bbann's scenario-1 test) and returns a loaded handle.
func buildTestIndex(t *testing.T) *bbann.Handle {
	t.Helper()
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

	opts := bbann.DefaultBuildOptions()
	opts.K1 = 2
	opts.BlockSize = 128
	opts.K1SampleRate = 1.0

	if _, err := bbann.Build(corpus, prefix, opts, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	h, err := bbann.Load(prefix, kernel.L2, bbann.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	index := buildTestIndex(t)

	restConfig := rest.Config{
		Host:   "localhost",
		Port:   0,
		Auth:   middleware.AuthConfig{Enabled: false},
		Search: bbann.DefaultSearchOptions(),
	}
	srv, err := rest.NewServer(restConfig, index)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/health")
	if err != nil {
		t.Fatalf("GET /v1/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET /v1/stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var info bbann.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Dimensions != 2 {
		t.Fatalf("Dimensions = %d, want 2", info.Dimensions)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"vectors": [][]float32{{0.1, 0.1}},
		"topk":    1,
		"nprobe":  1,
	})
	resp, err := http.Post(ts.URL+"/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result struct {
		IDs   [][]uint32  `json:"ids"`
		Dists [][]float32 `json:"dists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.IDs) != 1 || len(result.IDs[0]) != 1 {
		t.Fatalf("ids = %v, want one result for one query", result.IDs)
	}
	if result.IDs[0][0] != 0 {
		t.Fatalf("nearest id = %d, want 0", result.IDs[0][0])
	}
}

func TestRangeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"vectors":     [][]float32{{5, 5}},
		"radius":      0,
		"probe_count": 2,
	})
	resp, err := http.Post(ts.URL+"/v1/range", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/range: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result struct {
		IDs    []uint32  `json:"ids"`
		Dists  []float32 `json:"dists"`
		Limits []int     `json:"limits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Limits[0] != 0 || result.Limits[len(result.Limits)-1] != len(result.IDs) {
		t.Fatalf("limits = %v, ids = %v", result.Limits, result.IDs)
	}
}
