package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/azybler/campusnav/pkg/cost"
	"github.com/azybler/campusnav/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("no route found")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Snapped describes where a query point joined the network.
type Snapped struct {
	Query          LatLng
	Node           graph.Node
	DistanceMeters float64 // from the query point to the nearest road
}

// RouteResult is the output of a route query.
type RouteResult struct {
	Route    *Route
	Start    Snapped
	End      Snapped
	Tips     []string
	Alerts   []string
	Geometry []LatLng
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng, mode cost.Mode) (*RouteResult, error)
}

// Engine implements Router by snapping coordinates onto the graph and
// running a Pathfinder between the snapped nodes.
type Engine struct {
	pf      *Pathfinder
	snapper *Snapper
}

// NewEngine creates a routing engine over g. maxSnapMeters bounds how far a
// query point may lie from the nearest road.
func NewEngine(g *graph.Graph, model cost.Model, maxSnapMeters float64) *Engine {
	return &Engine{
		pf:      NewPathfinder(g, model),
		snapper: NewSnapper(g, maxSnapMeters),
	}
}

// Graph returns the routing graph.
func (e *Engine) Graph() *graph.Graph { return e.pf.Graph() }

// Pathfinder returns the underlying node-to-node search.
func (e *Engine) Pathfinder() *Pathfinder { return e.pf }

// Snap returns the graph node nearest to p.
func (e *Engine) Snap(p LatLng) (Snapped, error) {
	snap, err := e.snapper.Snap(p.Lat, p.Lng)
	if err != nil {
		return Snapped{}, err
	}
	return Snapped{
		Query:          p,
		Node:           e.Graph().NodeAt(snap.Node()),
		DistanceMeters: snap.Dist,
	}, nil
}

// Route computes the best route between two points under mode.
func (e *Engine) Route(ctx context.Context, start, end LatLng, mode cost.Mode) (*RouteResult, error) {
	startSnap, err := e.Snap(start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	endSnap, err := e.Snap(end)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}

	res, err := e.RouteNodes(ctx, startSnap.Node.ID, endSnap.Node.ID, mode)
	if err != nil {
		return nil, err
	}
	res.Start, res.End = startSnap, endSnap
	return res, nil
}

// RouteNodes computes the best route between two graph nodes under mode.
func (e *Engine) RouteNodes(ctx context.Context, start, end graph.NodeID, mode cost.Mode) (*RouteResult, error) {
	route, err := e.pf.ShortestPath(ctx, start, end, mode)
	if err != nil {
		return nil, err
	}

	g := e.Graph()
	geometry := make([]LatLng, 0, len(route.Nodes))
	for _, id := range route.Nodes {
		n, err := g.Node(id)
		if err != nil {
			return nil, err
		}
		geometry = append(geometry, LatLng{Lat: n.Lat, Lng: n.Lon})
	}

	res := &RouteResult{
		Route:    route,
		Tips:     route.Tips(),
		Alerts:   route.BlindSpotAlerts(),
		Geometry: geometry,
	}
	if len(route.Nodes) > 0 {
		first, _ := g.Node(route.Nodes[0])
		last, _ := g.Node(route.Nodes[len(route.Nodes)-1])
		res.Start = Snapped{Query: LatLng{Lat: first.Lat, Lng: first.Lon}, Node: first}
		res.End = Snapped{Query: LatLng{Lat: last.Lat, Lng: last.Lon}, Node: last}
	}
	return res, nil
}
