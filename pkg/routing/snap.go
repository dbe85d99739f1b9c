package routing

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/campusnav/pkg/geo"
	"github.com/azybler/campusnav/pkg/graph"
)

// DefaultMaxSnapMeters is the snap radius used when none is configured.
const DefaultMaxSnapMeters = 500.0

const metersPerDegreeLat = 111_320.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	EdgeIdx uint32  // index into the graph's edge arrays
	NodeU   uint32  // source node of the edge
	NodeV   uint32  // target node of the edge
	Ratio   float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist    float64 // distance in meters from query point to snapped point
}

// Node returns the edge endpoint closer to the snapped point.
func (r SnapResult) Node() uint32 {
	if r.Ratio <= 0.5 {
		return r.NodeU
	}
	return r.NodeV
}

// Snapper provides nearest-road snapping over an R-tree of edge bounding
// boxes.
type Snapper struct {
	tree    rtree.RTreeG[uint32] // edge index
	source  []uint32             // source node per edge
	g       *graph.Graph
	maxDist float64
}

// NewSnapper indexes every edge of g. Points farther than maxDistMeters
// from all edges fail to snap; a non-positive value selects
// DefaultMaxSnapMeters.
func NewSnapper(g *graph.Graph, maxDistMeters float64) *Snapper {
	if maxDistMeters <= 0 {
		maxDistMeters = DefaultMaxSnapMeters
	}
	s := &Snapper{
		source:  make([]uint32, g.NumEdges()),
		g:       g,
		maxDist: maxDistMeters,
	}
	for u := range g.NumNodes() {
		uNode := g.NodeAt(u)
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			s.source[e] = u
			vNode := g.NodeAt(g.Head(e))
			s.tree.Insert(
				[2]float64{math.Min(uNode.Lon, vNode.Lon), math.Min(uNode.Lat, vNode.Lat)},
				[2]float64{math.Max(uNode.Lon, vNode.Lon), math.Max(uNode.Lat, vNode.Lat)},
				e,
			)
		}
	}
	return s
}

// MaxDistance returns the snap radius in meters.
func (s *Snapper) MaxDistance() float64 { return s.maxDist }

// Snap finds the nearest road segment to the given lat/lng. Ties go to the
// lower edge index so results do not depend on tree layout.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	dLat := s.maxDist / metersPerDegreeLat
	dLng := s.maxDist / (metersPerDegreeLat * math.Max(math.Cos(lat*math.Pi/180), 1e-6))

	bestDist := math.Inf(1)
	var best SnapResult

	s.tree.Search(
		[2]float64{lng - dLng, lat - dLat},
		[2]float64{lng + dLng, lat + dLat},
		func(_, _ [2]float64, e uint32) bool {
			u := s.source[e]
			v := s.g.Head(e)
			uNode, vNode := s.g.NodeAt(u), s.g.NodeAt(v)

			dist, ratio := geo.PointToSegmentDist(lat, lng, uNode.Lat, uNode.Lon, vNode.Lat, vNode.Lon)
			if dist < bestDist || (dist == bestDist && e < best.EdgeIdx) {
				bestDist = dist
				best = SnapResult{EdgeIdx: e, NodeU: u, NodeV: v, Ratio: ratio, Dist: dist}
			}
			return true
		},
	)

	if bestDist > s.maxDist {
		return SnapResult{}, fmt.Errorf("%w: (%.6f, %.6f) is more than %.0f m from the network",
			ErrPointTooFar, lat, lng, s.maxDist)
	}
	return best, nil
}
