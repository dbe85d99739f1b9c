// Package landmark indexes named places so route steps can be described
// relative to them.
package landmark

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/tidwall/rtree"

	"github.com/azybler/campusnav/pkg/geo"
	osmparser "github.com/azybler/campusnav/pkg/osm"
)

const (
	// DefaultRadiusMeters is how far a landmark may be from a point and
	// still count as nearby.
	DefaultRadiusMeters = 500.0
	// DefaultLimit caps the landmarks returned per point.
	DefaultLimit = 2

	metersPerDegreeLat = 111_320.0
)

// Landmark is a named place.
type Landmark struct {
	Name string  `json:"name"`
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// campus lists well-known University of Kentucky places.
var campus = []Landmark{
	{Name: "Memorial Coliseum", Type: "Building", Lat: 38.0297, Lon: -84.5001},
	{Name: "William T. Young Library", Type: "Library", Lat: 38.0337, Lon: -84.5057},
	{Name: "Kroger Field", Type: "Stadium", Lat: 38.0225, Lon: -84.5051},
	{Name: "Gatton Student Center", Type: "Building", Lat: 38.0389, Lon: -84.5041},
	{Name: "UK HealthCare", Type: "Hospital", Lat: 38.0312, Lon: -84.5081},
}

// Campus returns the predefined campus landmarks.
func Campus() []Landmark { return slices.Clone(campus) }

// FromPOIs converts parsed map POIs.
func FromPOIs(pois []osmparser.POI) []Landmark {
	out := make([]Landmark, len(pois))
	for i, p := range pois {
		out[i] = Landmark{Name: p.Name, Type: p.Type, Lat: p.Lat, Lon: p.Lon}
	}
	return out
}

// priority ranks major landmark types ahead of everything else.
func priority(typ string) int {
	switch typ {
	case "Building", "Stadium", "Hospital", "Library":
		return 1
	}
	return 2
}

// Nearby is a landmark found near a query point.
type Nearby struct {
	Landmark
	DistanceMeters float64
}

// Index answers nearby-landmark queries. It is immutable after creation.
type Index struct {
	tree  rtree.RTreeG[int]
	items []Landmark
}

// NewIndex indexes the given landmark sets. A landmark whose coordinates
// match an earlier one (to six decimals) is dropped.
func NewIndex(sets ...[]Landmark) *Index {
	ix := &Index{}
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, lm := range set {
			key := fmt.Sprintf("%.6f,%.6f", lm.Lat, lm.Lon)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pt := [2]float64{lm.Lon, lm.Lat}
			ix.tree.Insert(pt, pt, len(ix.items))
			ix.items = append(ix.items, lm)
		}
	}
	return ix
}

// ForArea builds an index of the campus landmarks inside bounds plus the
// given map landmarks.
func ForArea(bounds geo.Bounds, mapped []Landmark) *Index {
	var local []Landmark
	for _, lm := range campus {
		if bounds.Covers(lm.Lat, lm.Lon) {
			local = append(local, lm)
		}
	}
	return NewIndex(local, mapped)
}

// Len returns the number of indexed landmarks. A nil Index is empty.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.items)
}

// All returns every indexed landmark in insertion order.
func (ix *Index) All() []Landmark {
	if ix == nil {
		return nil
	}
	return slices.Clone(ix.items)
}

// Nearby returns up to DefaultLimit landmarks within DefaultRadiusMeters.
func (ix *Index) Nearby(lat, lon float64) []Nearby {
	return ix.Within(lat, lon, DefaultRadiusMeters, DefaultLimit)
}

// Within returns up to limit landmarks within radius meters of the point,
// closest first. Equal distances prefer major landmark types, then shorter
// names. A non-positive limit returns all matches.
func (ix *Index) Within(lat, lon, radius float64, limit int) []Nearby {
	if ix == nil {
		return nil
	}
	dLat := radius / metersPerDegreeLat
	dLon := radius / (metersPerDegreeLat * math.Max(math.Cos(lat*math.Pi/180), 1e-6))

	var found []Nearby
	ix.tree.Search(
		[2]float64{lon - dLon, lat - dLat},
		[2]float64{lon + dLon, lat + dLat},
		func(_, _ [2]float64, i int) bool {
			lm := ix.items[i]
			if d := geo.Haversine(lat, lon, lm.Lat, lm.Lon); d <= radius {
				found = append(found, Nearby{Landmark: lm, DistanceMeters: d})
			}
			return true
		},
	)

	slices.SortFunc(found, compareNearby)
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}

func compareNearby(a, b Nearby) int {
	return cmp.Or(
		cmp.Compare(a.DistanceMeters, b.DistanceMeters),
		cmp.Compare(priority(a.Type), priority(b.Type)),
		cmp.Compare(len(a.Name), len(b.Name)),
		cmp.Compare(a.Name, b.Name),
	)
}

// DescribePlace names a point by its closest landmark, for endpoint
// summaries.
func (ix *Index) DescribePlace(lat, lon float64) string {
	nearby := ix.Nearby(lat, lon)
	if len(nearby) == 0 {
		return fmt.Sprintf("Coordinates (%.4f, %.4f)", lat, lon)
	}
	closest := nearby[0]
	if closest.DistanceMeters < 100 {
		return fmt.Sprintf("Near %s (%s)", closest.Name, closest.Type)
	}
	return fmt.Sprintf("About %dm from %s (%s)", int(closest.DistanceMeters), closest.Name, closest.Type)
}

// DescribeLocation describes a waypoint by its closest landmark and the
// streets meeting there, e.g. "near Kroger Field (Stadium) - intersection
// of Rose Street and Euclid Avenue".
func (ix *Index) DescribeLocation(lat, lon float64, streets []string) string {
	var parts []string
	if nearby := ix.Nearby(lat, lon); len(nearby) > 0 {
		closest := nearby[0]
		var rel string
		switch d := closest.DistanceMeters; {
		case d < 50:
			rel = "very close to"
		case d > 200:
			rel = fmt.Sprintf("about %dm from", int(d))
		default:
			rel = "near"
		}
		parts = append(parts, fmt.Sprintf("%s %s (%s)", rel, closest.Name, closest.Type))
	}
	switch {
	case len(streets) > 1:
		parts = append(parts, fmt.Sprintf("intersection of %s and %s", streets[0], streets[1]))
	case len(streets) == 1:
		parts = append(parts, "on "+streets[0])
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Coordinates (%.4f, %.4f)", lat, lon)
	}
	return strings.Join(parts, " - ")
}
