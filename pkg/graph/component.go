package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // max rank stays tiny for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the node indices belonging to the largest
// weakly connected component (treating the directed graph as undirected),
// in ascending order. Ties go to the component holding the lowest index.
func LargestComponent(g *Graph) []uint32 {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for u := range n {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, g.Head(e))
		}
	}

	bestRoot, bestSize := uint32(0), uint32(0)
	for i := range n {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot, bestSize = root, uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := range n {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent creates a new graph containing only the specified nodes
// and the edges between them. Relative node and adjacency order is kept.
func FilterToComponent(g *Graph, nodes []uint32) *Graph {
	keep := make(map[uint32]struct{}, len(nodes))
	b := NewBuilder()
	for _, u := range nodes {
		keep[u] = struct{}{}
		// Indices come from g, so ids are unique.
		_ = b.AddNode(g.NodeAt(u))
	}

	for _, u := range nodes {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			if _, ok := keep[g.Head(e)]; !ok {
				continue
			}
			// Endpoints and weight were validated when g was built.
			_ = b.AddEdge(*g.EdgeAt(e))
		}
	}
	return b.Build()
}
