package routing

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/azybler/campusnav/pkg/cost"
	"github.com/azybler/campusnav/pkg/graph"
)

const noEdge = math.MaxUint32

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap. Entries with equal
// distance pop in push order.
type MinHeap struct {
	items []PQItem
	seq   uint64
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node uint32
	Dist float64
	Seq  uint64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node uint32, dist float64) {
	h.items = append(h.items, PQItem{Node: node, Dist: dist, Seq: h.seq})
	h.seq++
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
	h.seq = 0
}

func (h *MinHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Seq < b.Seq
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// QueryState holds per-query search state. It is sized for one graph and
// reset in time proportional to the nodes a query touched.
type QueryState struct {
	Dist    []float64
	Pred    []uint32 // predecessor edge index (noEdge = none)
	Settled []bool
	Touched []uint32
	PQ      MinHeap
}

// NewQueryState creates a new QueryState for a graph with n nodes.
func NewQueryState(n uint32) *QueryState {
	dist := make([]float64, n)
	pred := make([]uint32, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = noEdge
	}
	return &QueryState{
		Dist:    dist,
		Pred:    pred,
		Settled: make([]bool, n),
		Touched: make([]uint32, 0, 1024),
		PQ:      MinHeap{items: make([]PQItem, 0, 256)},
	}
}

// Reset clears only the touched entries for fast reuse.
func (qs *QueryState) Reset() {
	for _, node := range qs.Touched {
		qs.Dist[node] = math.Inf(1)
		qs.Pred[node] = noEdge
		qs.Settled[node] = false
	}
	qs.Touched = qs.Touched[:0]
	qs.PQ.Reset()
}

func (qs *QueryState) touch(node uint32, dist float64, pred uint32) {
	if math.IsInf(qs.Dist[node], 1) {
		qs.Touched = append(qs.Touched, node)
	}
	qs.Dist[node] = dist
	qs.Pred[node] = pred
}

// Leg is one traversed edge of a Route.
type Leg struct {
	From     graph.NodeID
	To       graph.NodeID
	Weight   float64 // weight under the route's mode
	Distance float64 // base weight in meters
	Edge     graph.Edge
}

// Route is the result of a shortest-path query.
type Route struct {
	Nodes         []graph.NodeID
	Legs          []Leg
	TotalWeight   float64
	TotalDistance float64
	Mode          cost.Mode
}

// Pathfinder runs Dijkstra over an immutable graph. It is safe for
// concurrent use; each query gets its own QueryState from a pool.
type Pathfinder struct {
	g     *graph.Graph
	model cost.Model
	pool  sync.Pool
}

// NewPathfinder creates a Pathfinder over g using model for edge weights.
func NewPathfinder(g *graph.Graph, model cost.Model) *Pathfinder {
	p := &Pathfinder{g: g, model: model}
	p.pool.New = func() any { return NewQueryState(g.NumNodes()) }
	return p
}

// Graph returns the graph being searched.
func (p *Pathfinder) Graph() *graph.Graph { return p.g }

// ShortestPath returns the minimum-weight route from start to end under
// mode. Among equal-weight routes the one discovered first wins, where
// discovery order follows adjacency insertion order.
func (p *Pathfinder) ShortestPath(ctx context.Context, start, end graph.NodeID, mode cost.Mode) (*Route, error) {
	s, ok := p.g.Index(start)
	if !ok {
		return nil, fmt.Errorf("%w: start %q", graph.ErrUnknownNode, start)
	}
	t, ok := p.g.Index(end)
	if !ok {
		return nil, fmt.Errorf("%w: end %q", graph.ErrUnknownNode, end)
	}
	if s == t {
		return &Route{Nodes: []graph.NodeID{start}, Mode: mode}, nil
	}

	qs := p.pool.Get().(*QueryState)
	defer func() {
		qs.Reset()
		p.pool.Put(qs)
	}()

	found, err := p.search(ctx, qs, s, t, mode)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %q to %q", ErrNoRoute, start, end)
	}
	return p.reconstruct(qs, s, t, mode)
}

func (p *Pathfinder) search(ctx context.Context, qs *QueryState, s, t uint32, mode cost.Mode) (bool, error) {
	qs.touch(s, 0, noEdge)
	qs.PQ.Push(s, 0)

	for qs.PQ.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		item := qs.PQ.Pop()
		u := item.Node
		if qs.Settled[u] {
			continue // stale entry
		}
		qs.Settled[u] = true
		if u == t {
			return true, nil
		}

		d := item.Dist
		start, end := p.g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := p.g.Head(e)
			if qs.Settled[v] {
				continue
			}
			w, err := p.weight(e, mode)
			if err != nil {
				return false, err
			}
			if nd := d + w; nd < qs.Dist[v] {
				qs.touch(v, nd, e)
				qs.PQ.Push(v, nd)
			}
		}
	}
	return false, nil
}

func (p *Pathfinder) weight(e uint32, mode cost.Mode) (float64, error) {
	w, err := p.model.Weight(p.g.EdgeAt(e), mode)
	if err != nil {
		return 0, fmt.Errorf("cost model: %w", err)
	}
	if err := graph.CheckWeight(w); err != nil {
		return 0, fmt.Errorf("cost model: %w", err)
	}
	return w, nil
}

// reconstruct walks predecessor edges from t back to s. Leg weights are
// recomputed in path order so the total is the sum the caller sees.
func (p *Pathfinder) reconstruct(qs *QueryState, s, t uint32, mode cost.Mode) (*Route, error) {
	var edges []uint32
	for v := t; v != s; {
		e := qs.Pred[v]
		edges = append(edges, e)
		u, _ := p.g.Index(p.g.EdgeAt(e).From)
		v = u
	}

	route := &Route{
		Nodes: make([]graph.NodeID, 0, len(edges)+1),
		Legs:  make([]Leg, 0, len(edges)),
		Mode:  mode,
	}
	route.Nodes = append(route.Nodes, p.g.NodeAt(s).ID)
	for i := len(edges) - 1; i >= 0; i-- {
		e := edges[i]
		w, err := p.weight(e, mode)
		if err != nil {
			return nil, err
		}
		edge := *p.g.EdgeAt(e)
		route.Legs = append(route.Legs, Leg{
			From:     edge.From,
			To:       edge.To,
			Weight:   w,
			Distance: edge.BaseWeight,
			Edge:     edge,
		})
		route.Nodes = append(route.Nodes, edge.To)
		route.TotalWeight += w
		route.TotalDistance += edge.BaseWeight
	}
	return route, nil
}
