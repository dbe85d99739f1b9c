package graph

import (
	"iter"

	"github.com/azybler/campusnav/pkg/geo"
)

// NodeID is an opaque node key. Map data uses the decimal OSM node id.
type NodeID string

// Node is a routable point (an intersection or way vertex).
type Node struct {
	ID       NodeID
	Lat      float64
	Lon      float64
	Name     string // optional
	Landmark string // optional landmark tag, e.g. "Library"
}

// Attributes are the safety inputs consumed by the learner cost model.
// The zero value is the documented default: a quiet, simple road with
// no blind spot.
type Attributes struct {
	CrowdLevel             float64 // 0 = quiet .. 1 = busiest
	BlindSpot              bool
	IntersectionComplexity float64 // 0 = simple .. 1 = most complex
}

// Edge is a directed road segment.
type Edge struct {
	From       NodeID
	To         NodeID
	BaseWeight float64 // meters
	Attrs      Attributes

	Street  string // street name, may be empty
	Highway string // OSM highway class, may be empty
	Tip     string // safety tip shown in learner mode, may be empty
}

// Graph is an immutable directed graph in CSR (Compressed Sparse Row) form.
// Outgoing edges of every node keep their insertion order. A Graph is only
// created through Builder.Build or ReadBinary and is safe for concurrent
// readers.
type Graph struct {
	nodes    []Node
	index    map[NodeID]uint32
	firstOut []uint32 // len: NumNodes + 1; firstOut[i]..firstOut[i+1] are edges from node i
	head     []uint32 // len: NumEdges; target node index for each edge
	edges    []Edge   // len: NumEdges
	bounds   geo.Bounds
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() uint32 { return uint32(len(g.nodes)) }

// NumEdges returns the directed edge count.
func (g *Graph) NumEdges() uint32 { return uint32(len(g.edges)) }

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.index[id]
	return ok
}

// Index returns the dense index of id.
func (g *Graph) Index(id NodeID) (uint32, bool) {
	u, ok := g.index[id]
	return u, ok
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, error) {
	u, ok := g.index[id]
	if !ok {
		return Node{}, unknownNode(id)
	}
	return g.nodes[u], nil
}

// NodeAt returns the node at dense index u.
func (g *Graph) NodeAt(u uint32) Node { return g.nodes[u] }

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.firstOut[u], g.firstOut[u+1]
}

// Head returns the target node index of edge e.
func (g *Graph) Head(e uint32) uint32 { return g.head[e] }

// EdgeAt returns edge e. The pointee is shared and must not be modified.
func (g *Graph) EdgeAt(e uint32) *Edge { return &g.edges[e] }

// Edge looks up the edge from -> to.
func (g *Graph) Edge(from, to NodeID) (Edge, bool) {
	u, ok := g.index[from]
	if !ok {
		return Edge{}, false
	}
	v, ok := g.index[to]
	if !ok {
		return Edge{}, false
	}
	start, end := g.EdgesFrom(u)
	for e := start; e < end; e++ {
		if g.head[e] == v {
			return g.edges[e], true
		}
	}
	return Edge{}, false
}

// Neighbors returns the outgoing (neighbor, edge) pairs of id in insertion
// order. The sequence is finite and can be ranged over any number of times.
func (g *Graph) Neighbors(id NodeID) (iter.Seq2[NodeID, Edge], error) {
	u, ok := g.index[id]
	if !ok {
		return nil, unknownNode(id)
	}
	start, end := g.EdgesFrom(u)
	return func(yield func(NodeID, Edge) bool) {
		for e := start; e < end; e++ {
			if !yield(g.edges[e].To, g.edges[e]) {
				return
			}
		}
	}, nil
}

// Nodes iterates over all nodes in index order.
func (g *Graph) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range g.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Bounds returns the rectangle covering every node.
func (g *Graph) Bounds() geo.Bounds { return g.bounds }
