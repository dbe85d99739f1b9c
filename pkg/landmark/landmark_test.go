package landmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/campusnav/pkg/geo"
	osmparser "github.com/azybler/campusnav/pkg/osm"
)

func TestNearbyOrdering(t *testing.T) {
	ix := NewIndex([]Landmark{
		{Name: "Corner Cafe", Type: "Cafe", Lat: 38.0300, Lon: -84.5000},
		{Name: "Hall", Type: "Building", Lat: 38.0300, Lon: -84.5000 + 1e-5},
		{Name: "Far Away", Type: "Building", Lat: 38.0600, Lon: -84.5000},
		{Name: "Library", Type: "Library", Lat: 38.0310, Lon: -84.5000},
	})
	require.Equal(t, 4, ix.Len())

	all := ix.Within(38.0300, -84.5000, DefaultRadiusMeters, 0)
	require.Len(t, all, 3)
	assert.Equal(t, "Corner Cafe", all[0].Name)
	assert.Equal(t, "Hall", all[1].Name)
	assert.Equal(t, "Library", all[2].Name)
	assert.InDelta(t, 111, all[2].DistanceMeters, 2)

	got := ix.Nearby(38.0300, -84.5000)
	assert.Len(t, got, DefaultLimit)
}

func TestNearbyTieBreak(t *testing.T) {
	dup := NewIndex(
		[]Landmark{{Name: "Bank", Type: "Bank", Lat: 38.03, Lon: -84.50}},
		[]Landmark{{Name: "Other", Type: "Building", Lat: 38.03, Lon: -84.50}},
	)
	require.Equal(t, 1, dup.Len(), "duplicate coordinates collapse to the first landmark")

	at := func(name, typ string, d float64) Nearby {
		return Nearby{Landmark: Landmark{Name: name, Type: typ}, DistanceMeters: d}
	}
	tests := []struct {
		name string
		a, b Nearby
	}{
		{"closer first", at("Bank", "Bank", 10), at("Hall", "Building", 20)},
		{"major type first", at("Long Building Name", "Building", 10), at("Bank", "Bank", 10)},
		{"shorter name first", at("Hall", "Building", 10), at("Student Hall", "Building", 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Negative(t, compareNearby(tt.a, tt.b))
			assert.Positive(t, compareNearby(tt.b, tt.a))
		})
	}
}

func TestForArea(t *testing.T) {
	// North of campus: only Gatton falls inside the area margin.
	bounds := geo.EmptyBounds().Extend(38.048, -84.504)
	pois := []osmparser.POI{{ID: 9, Name: "Common Grounds", Type: "Cafe", Lat: 38.050, Lon: -84.500}}

	ix := ForArea(bounds, FromPOIs(pois))
	names := make(map[string]bool)
	for _, lm := range ix.All() {
		names[lm.Name] = true
	}
	assert.True(t, names["Gatton Student Center"])
	assert.True(t, names["Common Grounds"])
	assert.False(t, names["Memorial Coliseum"])
	assert.False(t, names["Kroger Field"])
	assert.Equal(t, 2, ix.Len())

	assert.Empty(t, ForArea(geo.EmptyBounds(), nil).All())
	assert.Len(t, Campus(), 5)
}

func TestDescribePlace(t *testing.T) {
	ix := NewIndex(Campus())

	assert.Equal(t, "Near Memorial Coliseum (Building)", ix.DescribePlace(38.0297, -84.5001))
	assert.Regexp(t, `^About \d+m from Memorial Coliseum \(Building\)$`, ix.DescribePlace(38.0285, -84.4990))
	assert.Equal(t, "Coordinates (38.1000, -84.6000)", ix.DescribePlace(38.1, -84.6))
}

func TestDescribeLocation(t *testing.T) {
	ix := NewIndex(Campus())

	tests := []struct {
		name     string
		lat, lon float64
		streets  []string
		want     string
	}{
		{"very close with intersection", 38.0225, -84.5051, []string{"Rose Street", "Euclid Avenue"},
			"very close to Kroger Field (Stadium) - intersection of Rose Street and Euclid Avenue"},
		{"near on one street", 38.0225 + 0.001, -84.5051, []string{"Rose Street"},
			"near Kroger Field (Stadium) - on Rose Street"},
		{"streets only", 38.1, -84.6, []string{"Main Street", "Broadway"},
			"intersection of Main Street and Broadway"},
		{"nothing known", 38.1, -84.6, nil, "Coordinates (38.1000, -84.6000)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ix.DescribeLocation(tt.lat, tt.lon, tt.streets))
		})
	}

	far := ix.DescribeLocation(38.0225+0.003, -84.5051, nil)
	assert.Regexp(t, `^about \d+m from Kroger Field \(Stadium\)$`, far)
}

func TestNilIndex(t *testing.T) {
	var ix *Index
	assert.Zero(t, ix.Len())
	assert.Empty(t, ix.All())
	assert.Empty(t, ix.Nearby(38.03, -84.50))
	assert.Equal(t, "on Rose Street", ix.DescribeLocation(38.03, -84.50, []string{"Rose Street"}))
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landmarks.json")
	want := append(Campus(), Landmark{Name: "Common Grounds", Type: "Cafe", Lat: 38.05, Lon: -84.50})

	require.NoError(t, WriteFile(path, want))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, os.WriteFile(path, []byte(`{"version": 9}`), 0o644))
	_, err = ReadFile(path)
	assert.ErrorContains(t, err, "version 9")

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
