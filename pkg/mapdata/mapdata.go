// Package mapdata loads the routing graph and map landmarks, either from
// the preprocessed caches or straight from an OSM file.
package mapdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/azybler/campusnav/pkg/config"
	"github.com/azybler/campusnav/pkg/graph"
	"github.com/azybler/campusnav/pkg/landmark"
	osmparser "github.com/azybler/campusnav/pkg/osm"
)

// MinNodes is the smallest network worth routing on.
const MinNodes = 10

// ErrTooSmall is returned when the loaded network has fewer than MinNodes
// nodes.
var ErrTooSmall = errors.New("not enough road data")

// Data is a loaded map.
type Data struct {
	Graph     *graph.Graph
	Landmarks []landmark.Landmark // named map POIs, campus landmarks excluded
}

// Index returns the landmark index for the map area.
func (d *Data) Index() *landmark.Index {
	return landmark.ForArea(d.Graph.Bounds(), d.Landmarks)
}

// Parse reads an OSM file, builds the graph and keeps its largest connected
// component.
func Parse(ctx context.Context, path string, opts osmparser.ParseOptions, log *zap.Logger) (*Data, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	res, err := osmparser.ParseFile(ctx, path, log, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	g, err := graph.FromParseResult(res)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	log.Info("graph built",
		zap.Uint32("nodes", g.NumNodes()),
		zap.Uint32("edges", g.NumEdges()))

	component := graph.LargestComponent(g)
	if n := g.NumNodes(); n > 0 {
		log.Info("largest component",
			zap.Int("nodes", len(component)),
			zap.Float64("percent", float64(len(component))/float64(n)*100))
	}
	g = graph.FilterToComponent(g, component)

	log.Info("map loaded",
		zap.Uint32("nodes", g.NumNodes()),
		zap.Uint32("edges", g.NumEdges()),
		zap.Int("pois", len(res.POIs)),
		zap.Duration("elapsed", time.Since(start)))
	return &Data{Graph: g, Landmarks: landmark.FromPOIs(res.POIs)}, nil
}

// Save writes the graph cache and, when landmarksPath is set, the landmark
// cache.
func Save(d *Data, graphPath, landmarksPath string) error {
	if err := graph.WriteBinary(graphPath, d.Graph); err != nil {
		return fmt.Errorf("write graph cache: %w", err)
	}
	if landmarksPath == "" {
		return nil
	}
	if err := landmark.WriteFile(landmarksPath, d.Landmarks); err != nil {
		return fmt.Errorf("write landmark cache: %w", err)
	}
	return nil
}

// ReadCache loads the preprocessed caches. A missing landmark cache yields
// no map landmarks.
func ReadCache(graphPath, landmarksPath string) (*Data, error) {
	g, err := graph.ReadBinary(graphPath)
	if err != nil {
		return nil, fmt.Errorf("read graph cache: %w", err)
	}
	d := &Data{Graph: g}
	if landmarksPath == "" {
		return d, nil
	}
	d.Landmarks, err = landmark.ReadFile(landmarksPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read landmark cache: %w", err)
	}
	return d, nil
}

// Load prefers the graph cache and falls back to parsing the map file.
func Load(ctx context.Context, cfg config.MapConfig, log *zap.Logger) (*Data, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		d   *Data
		err error
	)
	if cfg.GraphCache != "" && exists(cfg.GraphCache) {
		log.Info("loading graph cache", zap.String("path", cfg.GraphCache))
		d, err = ReadCache(cfg.GraphCache, cfg.LandmarksCache)
	} else {
		log.Info("parsing map file", zap.String("path", cfg.File))
		d, err = Parse(ctx, cfg.File, cfg.ParseOptions(), log)
	}
	if err != nil {
		return nil, err
	}

	if n := d.Graph.NumNodes(); n < MinNodes {
		return nil, fmt.Errorf("%w: %d nodes", ErrTooSmall, n)
	}
	return d, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
