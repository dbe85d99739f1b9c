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

	"github.com/azybler/campusnav/pkg/api"
	"github.com/azybler/campusnav/pkg/config"
	"github.com/azybler/campusnav/pkg/cost"
	"github.com/azybler/campusnav/pkg/directions"
	"github.com/azybler/campusnav/pkg/logger"
	"github.com/azybler/campusnav/pkg/mapdata"
	"github.com/azybler/campusnav/pkg/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to campusnav.yaml (default: ./campusnav.yaml or ./data/campusnav.yaml)")
	addr := flag.String("addr", "", "Listen address (default: server.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	d, err := mapdata.Load(ctx, cfg.Map, log)
	if err != nil {
		log.Fatal("failed to load map", zap.Error(err))
	}

	model, err := cost.NewModel(cfg.Policy)
	if err != nil {
		log.Fatal("invalid policy", zap.Error(err))
	}
	engine := routing.NewEngine(d.Graph, model, cfg.Routing.MaxSnapMeters)

	index := d.Index()
	overview := directions.New(d.Graph, index, cfg.Map.AreaName).Overview()
	stats := api.StatsResponse{
		NumNodes:     d.Graph.NumNodes(),
		NumEdges:     d.Graph.NumEdges(),
		NumSegments:  overview.Segments,
		NumLandmarks: index.Len(),
	}
	log.Info("ready",
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
		zap.Uint32("nodes", stats.NumNodes),
		zap.Int("segments", stats.NumSegments),
		zap.Int("landmarks", stats.NumLandmarks))

	handlers := api.NewHandlers(engine, stats, log)
	srv := api.NewServer(cfg.Server, handlers, log)
	if err := api.Serve(ctx, srv, log, cfg.Server.ShutdownTimeout); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
