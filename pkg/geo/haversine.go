// Package geo holds the distance helpers used for snapping, landmark
// lookups and area checks.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	earthRadiusMeters = 6_371_000.0
	metersPerMile     = 1609.344

	// metersPerDegree is the length of one degree of latitude.
	metersPerDegree = math.Pi / 180 * earthRadiusMeters
)

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	from := s2.LatLngFromDegrees(lat1, lon1)
	to := s2.LatLngFromDegrees(lat2, lon2)
	return from.Distance(to).Radians() * earthRadiusMeters
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(m float64) float64 {
	return m / metersPerMile
}

// planar is a point on a local flat projection, in degrees of latitude.
// Longitudes are scaled by cos(lat) of the reference latitude.
type planar struct{ x, y float64 }

func project(lat, lon, cosLat float64) planar {
	return planar{x: lon * cosLat, y: lat}
}

func (p planar) sub(q planar) planar { return planar{p.x - q.x, p.y - q.y} }

func (p planar) dot(q planar) float64 { return p.x*q.x + p.y*q.y }

func (p planar) meters() float64 { return math.Hypot(p.x, p.y) * metersPerDegree }

func cosMidLat(lat1, lat2 float64) float64 {
	return math.Cos((lat1 + lat2) / 2 * math.Pi / 180)
}

// EquirectangularDist returns an approximate distance in meters.
// Good to well under 0.1% over campus-sized areas; use it for ranking
// candidates, not for edge weights.
func EquirectangularDist(lat1, lon1, lat2, lon2 float64) float64 {
	c := cosMidLat(lat1, lat2)
	return project(lat2, lon2, c).sub(project(lat1, lon1, c)).meters()
}

// PointToSegmentDist returns the distance in meters from P to segment AB
// and the position of the closest point along AB, clamped to [0, 1].
func PointToSegmentDist(pLat, pLon, aLat, aLon, bLat, bLon float64) (dist float64, ratio float64) {
	c := cosMidLat(aLat, bLat)
	a := project(aLat, aLon, c)
	ab := project(bLat, bLon, c).sub(a)
	ap := project(pLat, pLon, c).sub(a)

	// A zero-length segment is compared in degrees; the projected length
	// can carry float noise.
	lenSq := ab.dot(ab)
	if (aLat == bLat && aLon == bLon) || lenSq == 0 {
		return ap.meters(), 0
	}

	t := min(1, max(0, ap.dot(ab)/lenSq))
	closest := planar{x: ab.x * t, y: ab.y * t}
	return ap.sub(closest).meters(), t
}
