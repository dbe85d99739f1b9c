package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/azybler/campusnav/pkg/config"
	"github.com/azybler/campusnav/pkg/logger"
	"github.com/azybler/campusnav/pkg/mapdata"
)

func main() {
	configPath := flag.String("config", "", "Path to campusnav.yaml (default: ./campusnav.yaml or ./data/campusnav.yaml)")
	input := flag.String("input", "", "Path to .osm, .osm.bz2 or .osm.pbf file (default: map.file)")
	output := flag.String("output", "", "Output graph cache path (default: map.graph_cache)")
	landmarks := flag.String("landmarks", "", "Output landmark cache path (default: map.landmarks_cache)")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 38.01,-84.52,38.05,-84.49)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preprocess: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preprocess: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *input != "" {
		cfg.Map.File = *input
	}
	if *output != "" {
		cfg.Map.GraphCache = *output
	}
	if *landmarks != "" {
		cfg.Map.LandmarksCache = *landmarks
	}
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatal("invalid bbox (expected minLat,minLng,maxLat,maxLng)", zap.String("bbox", *bbox), zap.Error(err))
		}
		cfg.Map.BBox = []float64{minLat, minLng, maxLat, maxLng}
		if err := cfg.Validate(); err != nil {
			log.Fatal("invalid bbox", zap.Error(err))
		}
	}
	if cfg.Map.File == "" || cfg.Map.GraphCache == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess [--config campusnav.yaml] --input <file.osm.pbf> [--output campus.graph] [--landmarks campus.landmarks.json] [--bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if bb := cfg.Map.ParseBBox(); !bb.IsZero() {
		log.Info("using bounding box filter",
			zap.Float64("min_lat", bb.MinLat), zap.Float64("max_lat", bb.MaxLat),
			zap.Float64("min_lng", bb.MinLng), zap.Float64("max_lng", bb.MaxLng))
	}

	d, err := mapdata.Parse(ctx, cfg.Map.File, cfg.Map.ParseOptions(), log)
	if err != nil {
		log.Fatal("failed to parse map", zap.Error(err))
	}
	if n := d.Graph.NumNodes(); n < mapdata.MinNodes {
		log.Fatal("map too small", zap.Uint32("nodes", n), zap.Error(mapdata.ErrTooSmall))
	}

	log.Info("writing caches",
		zap.String("graph", cfg.Map.GraphCache),
		zap.String("landmarks", cfg.Map.LandmarksCache))
	if err := mapdata.Save(d, cfg.Map.GraphCache, cfg.Map.LandmarksCache); err != nil {
		log.Fatal("failed to write caches", zap.Error(err))
	}

	var size int64
	if info, err := os.Stat(cfg.Map.GraphCache); err == nil {
		size = info.Size()
	}
	log.Info("done",
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
		zap.String("output", cfg.Map.GraphCache),
		zap.Float64("size_mb", float64(size)/(1024*1024)),
		zap.Int("landmarks", len(d.Landmarks)))
}
