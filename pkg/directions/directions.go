// Package directions turns routes into summaries and turn-by-turn steps.
package directions

import (
	"slices"

	"github.com/azybler/campusnav/pkg/geo"
	"github.com/azybler/campusnav/pkg/graph"
	"github.com/azybler/campusnav/pkg/landmark"
	"github.com/azybler/campusnav/pkg/routing"
)

const (
	// AverageSpeedMPH is the assumed driving speed for time estimates.
	AverageSpeedMPH = 30.0
	// MaxSteps is how many waypoints the step list shows.
	MaxSteps = 8
	// MaxTips and MaxAlerts cap the safety items listed before "... and N more".
	MaxTips   = 4
	MaxAlerts = 2
)

// Miles converts meters to miles.
func Miles(meters float64) float64 { return geo.MetersToMiles(meters) }

// Summary is the headline of a route.
type Summary struct {
	DistanceMeters float64
	DistanceKm     float64
	DistanceMiles  float64
	Minutes        float64
	Turns          int
	Nodes          int
}

// Summarize computes distance, travel time at AverageSpeedMPH and turns.
// Routes with fewer than two nodes summarize to zero.
func Summarize(r *routing.Route) Summary {
	if r == nil || len(r.Nodes) < 2 {
		return Summary{}
	}
	miles := Miles(r.TotalDistance)
	return Summary{
		DistanceMeters: r.TotalDistance,
		DistanceKm:     r.TotalDistance / 1000,
		DistanceMiles:  miles,
		Minutes:        miles / AverageSpeedMPH * 60,
		Turns:          r.Turns(),
		Nodes:          len(r.Nodes),
	}
}

// StepKind is the action shown for a waypoint.
type StepKind int

const (
	Start StepKind = iota
	Turn
	Continue
	Arrive
)

func (k StepKind) String() string {
	switch k {
	case Start:
		return "Start at"
	case Turn:
		return "Turn onto"
	case Continue:
		return "Continue to"
	case Arrive:
		return "Arrive at"
	}
	return "Unknown"
}

// Step is one waypoint of the direction list.
type Step struct {
	Kind          StepKind
	Node          graph.Node
	Location      string
	Nearby        []string // landmark names, closest first
	ProceedMeters float64  // distance to the next step; 0 on the last one
}

// Formatter describes routes over one graph.
type Formatter struct {
	g         *graph.Graph
	landmarks *landmark.Index
	areaName  string
}

// New creates a formatter. landmarks may be nil.
func New(g *graph.Graph, landmarks *landmark.Index, areaName string) *Formatter {
	return &Formatter{g: g, landmarks: landmarks, areaName: areaName}
}

// Streets returns up to two distinct street names leaving node id, in edge
// order.
func (f *Formatter) Streets(id graph.NodeID) []string {
	neighbors, err := f.g.Neighbors(id)
	if err != nil {
		return nil
	}
	var streets []string
	for _, e := range neighbors {
		if e.Street == "" || slices.Contains(streets, e.Street) {
			continue
		}
		streets = append(streets, e.Street)
		if len(streets) == 2 {
			break
		}
	}
	return streets
}

// Steps lists the first MaxSteps waypoints of r. The last listed waypoint is
// always an arrival, even when the route continues past it.
func (f *Formatter) Steps(r *routing.Route) []Step {
	if r == nil || len(r.Nodes) == 0 {
		return nil
	}
	shown := min(MaxSteps, len(r.Nodes))
	steps := make([]Step, 0, shown)
	for i, id := range r.Nodes[:shown] {
		n, err := f.g.Node(id)
		if err != nil {
			n = graph.Node{ID: id}
		}
		streets := f.Streets(id)
		nearby := f.landmarks.Nearby(n.Lat, n.Lon)

		s := Step{
			Node:     n,
			Location: f.landmarks.DescribeLocation(n.Lat, n.Lon, streets),
			Nearby:   landmarkNames(nearby),
		}
		switch {
		case i == 0:
			s.Kind = Start
		case i == len(r.Nodes)-1 || i == shown-1:
			s.Kind = Arrive
		case len(nearby) > 0 || len(streets) > 0:
			s.Kind = Turn
		default:
			s.Kind = Continue
		}
		if i < shown-1 && i < len(r.Legs) {
			s.ProceedMeters = r.Legs[i].Distance
		}
		steps = append(steps, s)
	}
	return steps
}

func landmarkNames(nearby []landmark.Nearby) []string {
	if len(nearby) == 0 {
		return nil
	}
	names := make([]string, len(nearby))
	for i, lm := range nearby {
		names[i] = lm.Name
	}
	return names
}

// Place describes an arbitrary point for endpoint summaries.
type Place struct {
	Description string
	Nearby      []string
}

// Place describes the point by its closest landmark.
func (f *Formatter) Place(lat, lon float64) Place {
	return Place{
		Description: f.landmarks.DescribePlace(lat, lon),
		Nearby:      landmarkNames(f.landmarks.Nearby(lat, lon)),
	}
}

// Describe returns the location description of a graph node.
func (f *Formatter) Describe(n graph.Node) string {
	return f.landmarks.DescribeLocation(n.Lat, n.Lon, f.Streets(n.ID))
}

// AreaOverview summarizes the loaded map.
type AreaOverview struct {
	Name      string
	MinLat    float64
	MinLon    float64
	MaxLat    float64
	MaxLon    float64
	Waypoints int
	Segments  int // undirected road segments
	Landmarks int
}

// Overview summarizes the graph and landmark index.
func (f *Formatter) Overview() AreaOverview {
	o := AreaOverview{
		Name:      f.areaName,
		Waypoints: int(f.g.NumNodes()),
		Landmarks: f.landmarks.Len(),
	}
	if b := f.g.Bounds(); !b.IsEmpty() {
		o.MinLat, o.MinLon = b.Min()
		o.MaxLat, o.MaxLon = b.Max()
	}

	type pair struct{ a, b uint32 }
	seen := make(map[pair]struct{}, f.g.NumEdges())
	for u := range f.g.NumNodes() {
		start, end := f.g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := f.g.Head(e)
			seen[pair{min(u, v), max(u, v)}] = struct{}{}
		}
	}
	o.Segments = len(seen)
	return o
}
