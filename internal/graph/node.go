package graph

// Node is a vector in the HNSW graph with multi-layer connections. id is
// not an auto-assigned counter: it is the caller-supplied composite label
// (see internal/ids), which lets the fetch engine treat a graph search
// hit as a directly addressable bucket location with no secondary lookup
// table.
type Node struct {
	ID     uint64
	Vector []float32
	Level  int

	// Neighbors[layer] holds neighbor labels at that layer; layer 0 is the
	// base layer containing every node.
	Neighbors [][]uint64
}

func newNode(id uint64, vector []float32, level int) *Node {
	neighbors := make([][]uint64, level+1)
	for i := range neighbors {
		neighbors[i] = make([]uint64, 0)
	}
	return &Node{ID: id, Vector: vector, Level: level, Neighbors: neighbors}
}

func (n *Node) addNeighbor(layer int, id uint64) {
	if layer < 0 || layer > n.Level {
		return
	}
	for _, existing := range n.Neighbors[layer] {
		if existing == id {
			return
		}
	}
	n.Neighbors[layer] = append(n.Neighbors[layer], id)
}

func (n *Node) setNeighbors(layer int, ids []uint64) {
	if layer < 0 || layer > n.Level {
		return
	}
	cp := make([]uint64, len(ids))
	copy(cp, ids)
	n.Neighbors[layer] = cp
}

func (n *Node) getNeighbors(layer int) []uint64 {
	if layer < 0 || layer > n.Level {
		return nil
	}
	return n.Neighbors[layer]
}
