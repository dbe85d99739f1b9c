package graph

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/paulmach/osm"

	"github.com/azybler/campusnav/pkg/geo"
	osmparser "github.com/azybler/campusnav/pkg/osm"
)

type edgeKey struct{ from, to uint32 }

// Builder accumulates nodes and edges and freezes them into a Graph.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes []Node
	index map[NodeID]uint32
	out   [][]Edge        // outgoing edges per node, insertion order
	slot  map[edgeKey]int // position of an edge within out[from]
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		index: make(map[NodeID]uint32),
		slot:  make(map[edgeKey]int),
	}
}

// HasNode reports whether id was added.
func (b *Builder) HasNode(id NodeID) bool {
	_, ok := b.index[id]
	return ok
}

// AddNode adds n. A node id can be added only once.
func (b *Builder) AddNode(n Node) error {
	if _, ok := b.index[n.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
	}
	b.index[n.ID] = uint32(len(b.nodes))
	b.nodes = append(b.nodes, n)
	b.out = append(b.out, nil)
	return nil
}

// AddEdge adds the directed edge e. Both endpoints must already exist.
// Adding a second edge for the same ordered pair replaces the first one in
// place, so it keeps the original position in the adjacency order.
func (b *Builder) AddEdge(e Edge) error {
	u, ok := b.index[e.From]
	if !ok {
		return unknownNode(e.From)
	}
	v, ok := b.index[e.To]
	if !ok {
		return unknownNode(e.To)
	}
	if err := CheckWeight(e.BaseWeight); err != nil {
		return fmt.Errorf("edge %q -> %q: %w", e.From, e.To, err)
	}

	key := edgeKey{u, v}
	if i, ok := b.slot[key]; ok {
		b.out[u][i] = e
		return nil
	}
	b.slot[key] = len(b.out[u])
	b.out[u] = append(b.out[u], e)
	return nil
}

// Build freezes the current contents into an immutable CSR Graph. The
// builder stays usable; later additions do not affect returned graphs.
func (b *Builder) Build() *Graph {
	numNodes := uint32(len(b.nodes))

	firstOut := make([]uint32, numNodes+1)
	for u, es := range b.out {
		firstOut[u+1] = firstOut[u] + uint32(len(es))
	}

	numEdges := firstOut[numNodes]
	head := make([]uint32, 0, numEdges)
	edges := make([]Edge, 0, numEdges)
	for _, es := range b.out {
		for _, e := range es {
			head = append(head, b.index[e.To])
			edges = append(edges, e)
		}
	}

	bounds := geo.EmptyBounds()
	for _, n := range b.nodes {
		bounds = bounds.Extend(n.Lat, n.Lon)
	}

	return &Graph{
		nodes:    slices.Clone(b.nodes),
		index:    maps.Clone(b.index),
		firstOut: firstOut,
		head:     head,
		edges:    edges,
		bounds:   bounds,
	}
}

// OSMNodeID converts an OSM node id into the graph key.
func OSMNodeID(id osm.NodeID) NodeID {
	return NodeID(strconv.FormatInt(int64(id), 10))
}

// complexityForDegree maps the number of distinct roads meeting at a node
// onto 0..1. Plain way vertices (degree <= 2) score 0, six or more roads
// score 1.
func complexityForDegree(degree int) float64 {
	return min(1, float64(max(0, degree-2))/4)
}

// FromParseResult creates a Graph from parsed OSM edges. Nodes are added
// in first-reference order and edges in way order.
func FromParseResult(result *osmparser.ParseResult) (*Graph, error) {
	// Distinct undirected neighbours per node drive intersection complexity.
	neighbours := make(map[osm.NodeID]map[osm.NodeID]struct{})
	link := func(a, c osm.NodeID) {
		set, ok := neighbours[a]
		if !ok {
			set = make(map[osm.NodeID]struct{})
			neighbours[a] = set
		}
		set[c] = struct{}{}
	}
	for _, e := range result.Edges {
		link(e.FromNodeID, e.ToNodeID)
		link(e.ToNodeID, e.FromNodeID)
	}

	b := NewBuilder()
	addNode := func(id osm.NodeID) error {
		nid := OSMNodeID(id)
		if b.HasNode(nid) {
			return nil
		}
		return b.AddNode(Node{ID: nid, Lat: result.NodeLat[id], Lon: result.NodeLon[id]})
	}

	for _, e := range result.Edges {
		if err := addNode(e.FromNodeID); err != nil {
			return nil, err
		}
		if err := addNode(e.ToNodeID); err != nil {
			return nil, err
		}
	}

	for _, e := range result.Edges {
		err := b.AddEdge(Edge{
			From:       OSMNodeID(e.FromNodeID),
			To:         OSMNodeID(e.ToNodeID),
			BaseWeight: e.Length,
			Attrs: Attributes{
				CrowdLevel:             e.CrowdLevel,
				BlindSpot:              e.BlindSpot,
				IntersectionComplexity: complexityForDegree(len(neighbours[e.ToNodeID])),
			},
			Street:  e.Name,
			Highway: e.Highway,
			Tip:     e.Tip,
		})
		if err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}
