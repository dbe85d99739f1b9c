package mapdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/azybler/campusnav/pkg/config"
	"github.com/azybler/campusnav/pkg/landmark"
	osmparser "github.com/azybler/campusnav/pkg/osm"
)

// writeMap writes an OSM XML file with one residential street of n nodes,
// a two-node island and a cafe.
func writeMap(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<osm version=\"0.6\">\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "  <node id=\"%d\" lat=\"%.4f\" lon=\"-84.5000\"/>\n", i, 38.0300+float64(i)*0.0005)
	}
	b.WriteString(`  <node id="100" lat="38.0600" lon="-84.4000"/>
  <node id="101" lat="38.0610" lon="-84.4000"/>
  <node id="200" lat="38.0320" lon="-84.5003">
    <tag k="amenity" v="cafe"/>
    <tag k="name" v="Common Grounds"/>
  </node>
  <way id="1">
`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "    <nd ref=\"%d\"/>\n", i)
	}
	b.WriteString(`    <tag k="highway" v="residential"/>
    <tag k="name" v="Hilltop Avenue"/>
  </way>
  <way id="2">
    <nd ref="100"/><nd ref="101"/>
    <tag k="highway" v="service"/>
  </way>
</osm>
`)
	path := filepath.Join(t.TempDir(), "campus.osm")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestParseKeepsLargestComponent(t *testing.T) {
	d, err := Parse(context.Background(), writeMap(t, 12), osmparser.ParseOptions{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.EqualValues(t, 12, d.Graph.NumNodes())
	assert.EqualValues(t, 22, d.Graph.NumEdges(), "11 two-way segments")
	assert.False(t, d.Graph.HasNode("100"))
	assert.Equal(t, []landmark.Landmark{{Name: "Common Grounds", Type: "Cafe", Lat: 38.0320, Lon: -84.5003}}, d.Landmarks)

	names := make(map[string]bool)
	for _, lm := range d.Index().All() {
		names[lm.Name] = true
	}
	assert.True(t, names["Common Grounds"])
	assert.True(t, names["Memorial Coliseum"], "campus landmarks near the map are added")
}

func TestSaveAndReadCache(t *testing.T) {
	d, err := Parse(context.Background(), writeMap(t, 12), osmparser.ParseOptions{}, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	graphPath := filepath.Join(dir, "campus.graph")
	landmarksPath := filepath.Join(dir, "campus.landmarks.json")
	require.NoError(t, Save(d, graphPath, landmarksPath))

	got, err := ReadCache(graphPath, landmarksPath)
	require.NoError(t, err)
	assert.Equal(t, d.Graph.NumNodes(), got.Graph.NumNodes())
	assert.Equal(t, d.Graph.NumEdges(), got.Graph.NumEdges())
	assert.Equal(t, d.Landmarks, got.Landmarks)

	noLandmarks, err := ReadCache(graphPath, filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, noLandmarks.Landmarks)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	mapFile := writeMap(t, 12)
	dir := t.TempDir()
	cfg := config.MapConfig{
		File:           mapFile,
		GraphCache:     filepath.Join(dir, "campus.graph"),
		LandmarksCache: filepath.Join(dir, "campus.landmarks.json"),
	}

	// No cache yet: parse the map file.
	d, err := Load(ctx, cfg, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 12, d.Graph.NumNodes())

	// With a cache the map file is not touched.
	require.NoError(t, Save(d, cfg.GraphCache, cfg.LandmarksCache))
	cfg.File = filepath.Join(dir, "deleted.osm")
	cached, err := Load(ctx, cfg, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 12, cached.Graph.NumNodes())
	assert.Len(t, cached.Landmarks, 1)
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, config.MapConfig{File: writeMap(t, 5)}, nil)
	assert.ErrorIs(t, err, ErrTooSmall)

	_, err = Load(ctx, config.MapConfig{File: filepath.Join(t.TempDir(), "campus.osm")}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(ctx, config.MapConfig{File: "campus.geojson"}, nil)
	assert.ErrorIs(t, err, osmparser.ErrUnsupportedFormat)
}
