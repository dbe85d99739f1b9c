package geo

import "github.com/golang/geo/s2"

// areaMarginDegrees is how far outside the loaded network a point may lie
// and still count as inside the area.
const areaMarginDegrees = 0.01

// Bounds is the lat/lng rectangle covered by a set of points.
type Bounds struct {
	rect s2.Rect
}

// EmptyBounds returns bounds containing no points.
func EmptyBounds() Bounds {
	return Bounds{rect: s2.EmptyRect()}
}

// Extend grows the bounds to include the point.
func (b Bounds) Extend(lat, lng float64) Bounds {
	return Bounds{rect: b.rect.AddPoint(s2.LatLngFromDegrees(lat, lng))}
}

// IsEmpty reports whether no point was ever added.
func (b Bounds) IsEmpty() bool {
	return b.rect.IsEmpty()
}

// Min returns the south-west corner in degrees.
func (b Bounds) Min() (lat, lng float64) {
	lo := b.rect.Lo()
	return lo.Lat.Degrees(), lo.Lng.Degrees()
}

// Max returns the north-east corner in degrees.
func (b Bounds) Max() (lat, lng float64) {
	hi := b.rect.Hi()
	return hi.Lat.Degrees(), hi.Lng.Degrees()
}

// Covers reports whether the point lies inside the bounds widened by the
// area margin. Empty bounds cover nothing.
func (b Bounds) Covers(lat, lng float64) bool {
	if b.rect.IsEmpty() {
		return false
	}
	margin := s2.LatLngFromDegrees(areaMarginDegrees, areaMarginDegrees)
	area := s2.Rect{
		Lat: b.rect.Lat.Expanded(margin.Lat.Radians()),
		Lng: b.rect.Lng.Expanded(margin.Lng.Radians()),
	}
	return area.ContainsLatLng(s2.LatLngFromDegrees(lat, lng))
}
