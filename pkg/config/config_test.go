package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/campusnav/pkg/cost"
	osmparser "github.com/azybler/campusnav/pkg/osm"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/campus.graph", cfg.Map.GraphCache)
	assert.False(t, cfg.Map.RespectOneway)
	assert.True(t, cfg.Map.ParseBBox().IsZero())
	assert.Equal(t, 500.0, cfg.Routing.MaxSnapMeters)
	assert.Equal(t, 5*time.Second, cfg.Routing.Timeout)
	assert.Equal(t, cost.DefaultPolicy(), cfg.Policy)
	assert.Equal(t, 2, cfg.Geocode.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Geocode.Backoff)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Positive(t, cfg.Server.MaxConcurrent)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultStart, cfg.Defaults.Start)
	assert.Equal(t, DefaultEnd, cfg.Defaults.End)
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data"), 0o755))
	writeFile(t, filepath.Join(dir, "data"), "campusnav.yaml", "log:\n  level: debug\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yaml", `
map:
  file: maps/lexington.osm.bz2
  respect_oneway: true
  bbox: [38.02, -84.51, 38.04, -84.49]
policy:
  crowd_weight: 1.5
server:
  addr: ":9090"
  request_timeout: 2s
  cors_origins: ["https://campus.example"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "maps/lexington.osm.bz2", cfg.Map.File)
	assert.Equal(t, osmparser.ParseOptions{
		BBox:          osmparser.BBox{MinLat: 38.02, MinLng: -84.51, MaxLat: 38.04, MaxLng: -84.49},
		RespectOneway: true,
	}, cfg.Map.ParseOptions())
	assert.Equal(t, 1.5, cfg.Policy.CrowdWeight)
	assert.Equal(t, 2.0, cfg.Policy.BlindSpotWeight, "unset keys keep defaults")
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://campus.example"}, cfg.Server.CORSOrigins)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAMPUSNAV_POLICY_BLIND_SPOT_WEIGHT", "4")
	t.Setenv("CAMPUSNAV_SERVER_ADDR", ":7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.Policy.BlindSpotWeight)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	bad := writeFile(t, dir, "bad.yaml", "policy:\n  crowd_weight: -1\n")
	_, err = Load(bad)
	assert.ErrorIs(t, err, cost.ErrInvalidPolicy)

	bbox := writeFile(t, dir, "bbox.yaml", "map:\n  bbox: [1, 2, 3]\n")
	_, err = Load(bbox)
	assert.ErrorContains(t, err, "map.bbox")

	inverted := writeFile(t, dir, "inverted.yaml", "map:\n  bbox: [38.04, -84.49, 38.02, -84.51]\n")
	_, err = Load(inverted)
	assert.ErrorContains(t, err, "min corner")

	snap := writeFile(t, dir, "snap.yaml", "routing:\n  max_snap_meters: 0\n")
	_, err = Load(snap)
	assert.ErrorContains(t, err, "max_snap_meters")
}
