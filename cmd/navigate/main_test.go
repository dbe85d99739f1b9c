package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/campusnav/pkg/geocode"
)

type stubGeocoder map[string]geocode.Result

func (s stubGeocoder) Geocode(_ context.Context, address string) (geocode.Result, error) {
	if r, ok := s[address]; ok {
		return r, nil
	}
	return geocode.Result{}, geocode.ErrNotFound
}

// setup writes a twelve-node north-south street and a config pointing at
// it. Defaults sit at both ends of the street.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<osm version=\"0.6\">\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "  <node id=\"%d\" lat=\"%.4f\" lon=\"-84.5000\"/>\n", i, 38.0300+float64(i)*0.0005)
	}
	b.WriteString("  <way id=\"1\">\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "    <nd ref=\"%d\"/>\n", i)
	}
	b.WriteString("    <tag k=\"highway\" v=\"residential\"/>\n    <tag k=\"name\" v=\"Hilltop Avenue\"/>\n  </way>\n</osm>\n")
	mapPath := filepath.Join(dir, "campus.osm")
	require.NoError(t, os.WriteFile(mapPath, []byte(b.String()), 0o644))

	cfg := fmt.Sprintf(`map:
  file: %q
  graph_cache: ""
  landmarks_cache: ""
  area_name: Test Campus
routing:
  max_snap_meters: 50
log:
  level: error
defaults:
  start: "38.0305,-84.5000"
  end: "38.0360,-84.5000"
`, mapPath)
	cfgPath := filepath.Join(dir, "campusnav.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func navigate(t *testing.T, stdin string, gc geocode.Geocoder, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr, gc)
	return code, stdout.String(), stderr.String()
}

func TestNavigateCoordinates(t *testing.T) {
	cfg := setup(t)
	code, out, errOut := navigate(t, "", nil,
		"--config", cfg, "--from", "38.0306,-84.5000", "--to", "38.0349,-84.5000", "--polyline")

	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "AREA OVERVIEW:")
	assert.Contains(t, out, "Location: Test Campus")
	assert.Contains(t, out, "STARTING POINT:")
	assert.Contains(t, out, "Navigation mode: Normal Mode (fastest route)")
	assert.Contains(t, out, "Route Found!")
	assert.Contains(t, out, "Start at ")
	assert.Contains(t, out, "Normal Mode - Fastest Route")
	assert.Contains(t, out, "\nPolyline: ")
	assert.Empty(t, errOut)
}

func TestNavigateLearner(t *testing.T) {
	cfg := setup(t)
	code, out, _ := navigate(t, "", nil,
		"--config", cfg, "--from", "38.0306,-84.5000", "--to", "38.0349,-84.5000", "--learner")

	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Navigation mode: Learner Mode (safer route)")
	assert.Contains(t, out, "Learner Mode Safety Information:")
	assert.NotContains(t, out, "Polyline:")
}

func TestNavigateFallbacks(t *testing.T) {
	cfg := setup(t)

	tests := []struct {
		name string
		from string
		note string
	}{
		{"malformed address", "somewhere nice", "Could not resolve starting location"},
		{"not found", "1 Nowhere Rd, Lexington, KY", "Could not resolve starting location"},
		{"outside area", "40.0,-80.0", "is outside the map area"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := navigate(t, "", stubGeocoder{},
				"--config", cfg, "--from", tt.from, "--to", "38.0349,-84.5000")
			require.Equal(t, exitOK, code, errOut)
			assert.Contains(t, errOut, tt.note)
			assert.Contains(t, errOut, "(38.030500, -84.500000)")
			assert.Contains(t, out, "Coordinates: (38.030500, -84.500000)")
		})
	}
}

func TestNavigateGeocodedAddress(t *testing.T) {
	cfg := setup(t)
	gc := stubGeocoder{"120 Hilltop Ave, Lexington, KY 40506": {Lat: 38.0331, Lon: -84.5, DisplayName: "Hilltop Avenue"}}

	code, out, errOut := navigate(t, "", gc,
		"--config", cfg, "--from", "120 Hilltop Ave, Lexington, KY 40506", "--to", "38.0349,-84.5000")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Coordinates: (38.033100, -84.500000)")
	assert.Empty(t, errOut)
}

func TestNavigateInteractive(t *testing.T) {
	cfg := setup(t)
	code, out, errOut := navigate(t, "\n38.0349,-84.5000\ny\n", stubGeocoder{}, "--config", cfg)

	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Starting location: ")
	assert.Contains(t, out, "Destination: ")
	assert.Contains(t, out, "Use learner mode? (y/N): ")
	assert.Contains(t, out, "Learner Mode Safety Information:")
	assert.Contains(t, errOut, "Using default starting location (38.030500, -84.500000).")
}

func TestNavigateErrors(t *testing.T) {
	cfg := setup(t)

	code, _, errOut := navigate(t, "", nil,
		"--config", cfg, "--from", "38.0330,-84.4980", "--to", "38.0349,-84.5000")
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "too far from any road")

	code, _, errOut = navigate(t, "", nil, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--from", "1,1", "--to", "2,2")
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "read config")

	code, _, _ = navigate(t, "", nil, "--bogus")
	assert.Equal(t, exitError, code)
}
