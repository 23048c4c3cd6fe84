// Package graph is the in-memory proximity graph over bucket centroids
// (and their extremal samples) used to route a query to a short list of
// candidate buckets. It builds a hierarchical navigable small world graph
// with greedy layered search, accepting a caller-chosen label per point
// (the composite bucket id from internal/ids) instead of an
// auto-incrementing counter, and supports gob-based persistence.
package graph

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/vecdb/bbann/internal/kernel"
)

// Config configures a new Graph.
type Config struct {
	M              int
	EfConstruction int
	Metric         kernel.Metric
	Seed           int64
}

// DefaultConfig returns the original's default hnswM=32, hnswefC=500.
func DefaultConfig() Config {
	return Config{M: 32, EfConstruction: 500, Metric: kernel.L2, Seed: 1}
}

// Graph is a single-writer-then-many-readers HNSW index. Build inserts all
// points sequentially; search is safe for concurrent readers once
// construction is finished.
type Graph struct {
	m              int
	m0             int
	efConstruction int
	ml             float64
	metric         kernel.Metric

	nodes      map[uint64]*Node
	entryPoint *Node
	maxLayer   int
	dimension  int

	mu   sync.RWMutex
	rand *rand.Rand
}

// New creates an empty graph.
func New(cfg Config) *Graph {
	if cfg.M == 0 {
		cfg.M = 32
	}
	if cfg.EfConstruction == 0 {
		cfg.EfConstruction = 500
	}
	return &Graph{
		m:              cfg.M,
		m0:             cfg.M * 2,
		efConstruction: cfg.EfConstruction,
		ml:             1.0 / math.Log(float64(cfg.M)),
		metric:         cfg.Metric,
		nodes:          make(map[uint64]*Node),
		maxLayer:       -1,
		rand:           rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (g *Graph) distance(a, b []float32) float32 {
	return kernel.Distance(g.metric, a, b)
}

func (g *Graph) randomLevel() int {
	r := g.rand.Float64()
	return int(math.Floor(-math.Log(r) * g.ml))
}

// Size returns the number of points in the graph.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// GetNode retrieves a node by label.
func (g *Graph) GetNode(label uint64) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[label]
}

// AddPoint inserts vector under label into the graph. Labels must be
// unique; the graph is built once per bbann index and never mutated
// afterward.
func (g *Graph) AddPoint(vector []float32, label uint64) error {
	if len(vector) == 0 {
		return fmt.Errorf("graph: cannot insert empty vector")
	}

	g.mu.Lock()
	if g.dimension == 0 {
		g.dimension = len(vector)
	} else if len(vector) != g.dimension {
		g.mu.Unlock()
		return fmt.Errorf("graph: vector dimension mismatch: expected %d, got %d", g.dimension, len(vector))
	}
	if _, exists := g.nodes[label]; exists {
		g.mu.Unlock()
		return fmt.Errorf("graph: label %d already present", label)
	}

	level := g.randomLevel()
	node := newNode(label, vector, level)

	if g.entryPoint == nil {
		g.nodes[label] = node
		g.entryPoint = node
		g.maxLayer = level
		g.mu.Unlock()
		return nil
	}

	entryPoint := g.entryPoint
	currentMaxLayer := g.maxLayer
	g.mu.Unlock()

	ep := entryPoint
	currentDist := g.distance(vector, ep.Vector)
	for lc := currentMaxLayer; lc > level; lc-- {
		changed := true
		for changed {
			changed = false
			for _, neighborID := range ep.getNeighbors(lc) {
				neighbor := g.GetNode(neighborID)
				if neighbor == nil {
					continue
				}
				if d := g.distance(vector, neighbor.Vector); d < currentDist {
					currentDist = d
					ep = neighbor
					changed = true
				}
			}
		}
	}

	for lc := minInt(level, currentMaxLayer); lc >= 0; lc-- {
		candidates := g.searchLayer(vector, ep, g.efConstruction, lc)
		m := g.m
		if lc == 0 {
			m = g.m0
		}
		neighbors := selectNeighbors(candidates, m)
		for _, nb := range neighbors {
			neighborNode := g.GetNode(nb)
			if neighborNode == nil {
				continue
			}
			node.addNeighbor(lc, nb)
			neighborNode.addNeighbor(lc, label)
			g.pruneNeighbors(neighborNode, lc)
		}
		if len(candidates) > 0 {
			ep = g.GetNode(candidates[0].id)
		}
	}

	g.mu.Lock()
	g.nodes[label] = node
	if level > g.maxLayer {
		g.maxLayer = level
		g.entryPoint = node
	}
	g.mu.Unlock()
	return nil
}

// searchLayer performs the layered greedy expansion shared by insertion and
// query search.
func (g *Graph) searchLayer(query []float32, entryPoint *Node, ef int, layer int) []heapItem {
	visited := make(map[uint64]bool)
	candidates := &minHeap{}
	results := &maxHeap{}

	dist := g.distance(query, entryPoint.Vector)
	heap.Push(candidates, heapItem{id: entryPoint.ID, distance: dist})
	heap.Push(results, heapItem{id: entryPoint.ID, distance: dist})
	visited[entryPoint.ID] = true

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(heapItem)
		if current.distance > results.Peek().(heapItem).distance {
			break
		}
		currentNode := g.GetNode(current.id)
		if currentNode == nil {
			continue
		}
		for _, neighborID := range currentNode.getNeighbors(layer) {
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true
			neighborNode := g.GetNode(neighborID)
			if neighborNode == nil {
				continue
			}
			neighborDist := g.distance(query, neighborNode.Vector)
			if neighborDist < results.Peek().(heapItem).distance || results.Len() < ef {
				heap.Push(candidates, heapItem{id: neighborID, distance: neighborDist})
				heap.Push(results, heapItem{id: neighborID, distance: neighborDist})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	resultSlice := make([]heapItem, results.Len())
	for i := len(resultSlice) - 1; i >= 0; i-- {
		resultSlice[i] = heap.Pop(results).(heapItem)
	}
	return resultSlice
}

func selectNeighbors(candidates []heapItem, m int) []uint64 {
	if len(candidates) <= m {
		out := make([]uint64, len(candidates))
		for i, c := range candidates {
			out[i] = c.id
		}
		return out
	}
	out := make([]uint64, m)
	for i := 0; i < m; i++ {
		out[i] = candidates[i].id
	}
	return out
}

func (g *Graph) pruneNeighbors(node *Node, layer int) {
	m := g.m
	if layer == 0 {
		m = g.m0
	}
	neighbors := node.getNeighbors(layer)
	if len(neighbors) <= m {
		return
	}

	type nd struct {
		id   uint64
		dist float32
	}
	distances := make([]nd, 0, len(neighbors))
	for _, id := range neighbors {
		other := g.GetNode(id)
		if other == nil {
			continue
		}
		distances = append(distances, nd{id: id, dist: g.distance(node.Vector, other.Vector)})
	}

	selected := make([]uint64, 0, m)
	for len(selected) < m && len(distances) > 0 {
		minIdx := 0
		for i := 1; i < len(distances); i++ {
			if distances[i].dist < distances[minIdx].dist {
				minIdx = i
			}
		}
		selected = append(selected, distances[minIdx].id)
		distances = append(distances[:minIdx], distances[minIdx+1:]...)
	}
	node.setNeighbors(layer, selected)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Result is one search hit: a label and its distance to the query, in the
// same polarity as the graph's configured metric (IP already negated).
type Result struct {
	Label    uint64
	Distance float32
}

// SearchKNN returns the k labels nearest to query, expanding ef candidates
// at the base layer.
func (g *Graph) SearchKNN(query []float32, k, ef int) ([]Result, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("graph: query vector cannot be empty")
	}
	g.mu.RLock()
	if g.dimension == 0 || g.entryPoint == nil {
		g.mu.RUnlock()
		return nil, fmt.Errorf("graph: index is empty")
	}
	if len(query) != g.dimension {
		g.mu.RUnlock()
		return nil, fmt.Errorf("graph: query dimension mismatch: expected %d, got %d", g.dimension, len(query))
	}
	entryPoint := g.entryPoint
	maxLayer := g.maxLayer
	g.mu.RUnlock()

	if ef < k {
		ef = k
	}

	ep := entryPoint
	currentDist := g.distance(query, ep.Vector)
	for lc := maxLayer; lc > 0; lc-- {
		changed := true
		for changed {
			changed = false
			for _, neighborID := range ep.getNeighbors(lc) {
				neighbor := g.GetNode(neighborID)
				if neighbor == nil {
					continue
				}
				if d := g.distance(query, neighbor.Vector); d < currentDist {
					currentDist = d
					ep = neighbor
					changed = true
				}
			}
		}
	}

	candidates := g.searchLayer(query, ep, ef, 0)
	results := make([]Result, 0, k)
	for i := 0; i < len(candidates) && i < k; i++ {
		results = append(results, Result{Label: candidates[i].id, Distance: candidates[i].distance})
	}
	return results, nil
}

type heapItem struct {
	id       uint64
	distance float32
}

type minHeap []heapItem

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].distance < h[j].distance }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type maxHeap []heapItem

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].distance > h[j].distance }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
func (h *maxHeap) Peek() interface{} {
	if len(*h) == 0 {
		return heapItem{distance: float32(math.Inf(1))}
	}
	return (*h)[0]
}
func (h *minHeap) Peek() interface{} {
	if len(*h) == 0 {
		return heapItem{distance: float32(math.Inf(1))}
	}
	return (*h)[0]
}
