package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vecdb/bbann/pkg/bbann"
)

// Handler serves the HTTP surface directly over a loaded bbann.Handle:
// search runs in-process, since bbann is a read-only, load-once index
// rather than a mutable database service reached through a separate
// backend.
type Handler struct {
	index *bbann.Handle
	opts  bbann.SearchOptions
}

// NewHandler creates a new REST API handler over a loaded index.
func NewHandler(index *bbann.Handle, opts bbann.SearchOptions) *Handler {
	return &Handler{index: index, opts: opts}
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// GetStats handles GET /v1/stats: the loaded index's static shape
// (dimension, metric, graph size). Per-build bucket statistics are
// reported by the build CLI, not the search server, since they are only
// known at build time.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.index.Info(), http.StatusOK)
}

// searchRequest is the shared wire shape for both top-k and range search.
type searchRequest struct {
	Vectors      [][]float32 `json:"vectors"`
	TopK         int         `json:"topk,omitempty"`
	NProbe       int         `json:"nprobe,omitempty"`
	EfSearch     int         `json:"ef_search,omitempty"`
	Radius       float64     `json:"radius,omitempty"`
	RadiusFactor float64     `json:"radius_factor,omitempty"`
	ProbeCount   int         `json:"probe_count,omitempty"`
}

type knnResponse struct {
	IDs   [][]uint32  `json:"ids"`
	Dists [][]float32 `json:"dists"`
}

type rangeResponse struct {
	IDs    []uint32  `json:"ids"`
	Dists  []float32 `json:"dists"`
	Limits []int     `json:"limits"`
}

// Search handles POST /v1/search: top-k nearest-neighbor search. A
// request with topk=-1 dispatches to the range-search path instead,
// matching the original's documented option (spec.md's recognised
// search options: "topk (-1 selects range search)").
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.TopK == -1 {
		h.runRange(w, req)
		return
	}

	nprobe := orDefault(req.NProbe, h.opts.NProbe)
	ef := orDefault(req.EfSearch, h.opts.EfSearch)
	topk := req.TopK
	if topk <= 0 {
		topk = 10
	}

	ids, dists, err := h.index.KNN(req.Vectors, topk, nprobe, ef)
	if err != nil {
		writeError(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, knnResponse{IDs: ids, Dists: dists}, http.StatusOK)
}

// RangeSearch handles POST /v1/range.
func (h *Handler) RangeSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	h.runRange(w, req)
}

func (h *Handler) runRange(w http.ResponseWriter, req searchRequest) {
	radiusFactor := req.RadiusFactor
	if radiusFactor <= 0 {
		radiusFactor = h.opts.RadiusFactor
	}
	probeCount := orDefault(req.ProbeCount, h.opts.RangeSearchProbeCount)
	ef := orDefault(req.EfSearch, h.opts.EfSearch)

	ids, dists, limits, err := h.index.Range(req.Vectors, req.Radius, radiusFactor, probeCount, ef)
	if err != nil {
		writeError(w, fmt.Sprintf("range search failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rangeResponse{IDs: ids, Dists: dists, Limits: limits}, http.StatusOK)
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ParseIntQuery parses an integer query parameter.
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
