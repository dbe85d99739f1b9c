package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "Memorial Coliseum to Kroger Field",
			lat1: 38.0297, lon1: -84.5001,
			lat2: 38.0225, lon2: -84.5051,
			wantMeters:       912,
			tolerancePercent: 2,
		},
		{
			name: "Same point",
			lat1: 38.0307, lon1: -84.5041,
			lat2: 38.0307, lon2: -84.5041,
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name: "London to Paris",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 48.8566, lon2: 2.3522,
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
		{
			name: "Short distance (~100m)",
			lat1: 38.0300, lon1: -84.5041,
			lat2: 38.0309, lon2: -84.5041,
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	// Gatton Student Center and William T. Young Library.
	there := Haversine(38.0389, -84.5041, 38.0337, -84.5057)
	back := Haversine(38.0337, -84.5057, 38.0389, -84.5041)
	if math.Abs(there-back) > 1e-9 {
		t.Errorf("Haversine not symmetric: %f vs %f", there, back)
	}
	if there < 550 || there > 650 {
		t.Errorf("Gatton to Young Library = %f m, want ~595 m", there)
	}
}

func TestEquirectangularDist(t *testing.T) {
	lat1, lon1 := 38.0382, -84.4992
	lat2, lon2 := 38.0249, -84.5074

	h := Haversine(lat1, lon1, lat2, lon2)
	e := EquirectangularDist(lat1, lon1, lat2, lon2)

	diffPercent := math.Abs(h-e) / h * 100
	if diffPercent > 0.5 {
		t.Errorf("EquirectangularDist differs from Haversine by %.2f%% (haversine=%f, equirect=%f)", diffPercent, h, e)
	}
}

func TestMetersToMiles(t *testing.T) {
	if got := MetersToMiles(1609.344); math.Abs(got-1) > 1e-12 {
		t.Errorf("MetersToMiles(1609.344) = %f, want 1", got)
	}
	if got := MetersToMiles(0); got != 0 {
		t.Errorf("MetersToMiles(0) = %f, want 0", got)
	}
}

func TestPointToSegmentDist(t *testing.T) {
	tests := []struct {
		name       string
		pLat, pLon float64
		aLat, aLon float64
		bLat, bLon float64
		wantRatio  float64
		maxDistM   float64
	}{
		{
			name: "Point at start of segment",
			pLat: 38.0300, pLon: -84.5000,
			aLat: 38.0300, aLon: -84.5000,
			bLat: 38.0400, bLon: -84.5000,
			wantRatio: 0.0,
			maxDistM:  1,
		},
		{
			name: "Point at end of segment",
			pLat: 38.0400, pLon: -84.5000,
			aLat: 38.0300, aLon: -84.5000,
			bLat: 38.0400, bLon: -84.5000,
			wantRatio: 1.0,
			maxDistM:  1,
		},
		{
			name: "Point at midpoint perpendicular",
			pLat: 38.0350, pLon: -84.4990,
			aLat: 38.0300, aLon: -84.5000,
			bLat: 38.0400, bLon: -84.5000,
			wantRatio: 0.5,
			maxDistM:  100, // ~88 m at this latitude
		},
		{
			name: "Degenerate segment (A == B)",
			pLat: 38.0300, pLon: -84.4990,
			aLat: 38.0300, aLon: -84.5000,
			bLat: 38.0300, bLon: -84.5000,
			wantRatio: 0.0,
			maxDistM:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ratio := PointToSegmentDist(tt.pLat, tt.pLon, tt.aLat, tt.aLon, tt.bLat, tt.bLon)
			if dist > tt.maxDistM {
				t.Errorf("dist = %f m, want <= %f m", dist, tt.maxDistM)
			}
			if math.Abs(ratio-tt.wantRatio) > 0.05 {
				t.Errorf("ratio = %f, want ~%f", ratio, tt.wantRatio)
			}
		})
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(38.0382, -84.4992, 38.0249, -84.5074)
	}
}
