// Command navigate prints turn-by-turn campus directions between two
// addresses or coordinates.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/azybler/campusnav/pkg/config"
	"github.com/azybler/campusnav/pkg/cost"
	"github.com/azybler/campusnav/pkg/directions"
	"github.com/azybler/campusnav/pkg/geo"
	"github.com/azybler/campusnav/pkg/geocode"
	"github.com/azybler/campusnav/pkg/graph"
	"github.com/azybler/campusnav/pkg/logger"
	"github.com/azybler/campusnav/pkg/mapdata"
	"github.com/azybler/campusnav/pkg/routing"
)

const (
	exitOK      = 0
	exitError   = 1
	exitNoRoute = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	from, to   string
	learner    bool
	polyline   bool
}

func parseFlags(args []string, stderr io.Writer) (options, bool, error) {
	var opts options
	fs := flag.NewFlagSet("navigate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to campusnav.yaml (default: ./campusnav.yaml or ./data/campusnav.yaml)")
	fs.StringVar(&opts.from, "from", "", `Start as "lat,lon" or "number street, city, ST [zip]"`)
	fs.StringVar(&opts.to, "to", "", `Destination as "lat,lon" or "number street, city, ST [zip]"`)
	fs.BoolVar(&opts.learner, "learner", false, "Prefer safer roads for learner drivers")
	fs.BoolVar(&opts.polyline, "polyline", false, "Also print the route as an encoded polyline")
	if err := fs.Parse(args); err != nil {
		return opts, false, err
	}
	learnerSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "learner" {
			learnerSet = true
		}
	})
	return opts, learnerSet, nil
}

// run is main without the process exit. A nil geocoder means Nominatim as
// configured.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, gc geocode.Geocoder) int {
	opts, learnerSet, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "navigate: %v\n", err)
		return exitError
	}
	log, err := logger.New(cfg.Log.Level, true)
	if err != nil {
		fmt.Fprintf(stderr, "navigate: %v\n", err)
		return exitError
	}
	defer log.Sync()

	d, err := mapdata.Load(ctx, cfg.Map, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading map data: %v\n", err)
		return exitError
	}
	area := d.Graph.Bounds()
	f := directions.New(d.Graph, d.Index(), cfg.Map.AreaName)

	if err := f.RenderOverview(stdout); err != nil {
		return exitError
	}
	fmt.Fprintln(stdout)

	interactive := opts.from == "" || opts.to == ""
	if interactive {
		in := bufio.NewScanner(stdin)
		fmt.Fprintln(stdout, "Enter addresses as: street, city, state [ZIP code] (e.g. 500 Rose St, Lexington, KY 40508)")
		fmt.Fprintln(stdout, "or coordinates as: lat,lon. Leave blank for the default.")
		if opts.from == "" {
			opts.from = prompt(in, stdout, "Starting location")
		}
		if opts.to == "" {
			opts.to = prompt(in, stdout, "Destination")
		}
		if !learnerSet {
			answer := prompt(in, stdout, "Use learner mode? (y/N)")
			opts.learner = strings.HasPrefix(strings.ToLower(answer), "y")
		}
		fmt.Fprintln(stdout)
	}

	if gc == nil {
		gc = geocode.New(cfg.Geocode, area, log)
	}
	start, end, err := resolveEndpoints(ctx, gc, area, opts.from, opts.to, cfg.Defaults, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "navigate: %v\n", err)
		return exitError
	}

	mode := cost.Normal
	if opts.learner {
		mode = cost.Learner
	}
	model, err := cost.NewModel(cfg.Policy)
	if err != nil {
		fmt.Fprintf(stderr, "navigate: %v\n", err)
		return exitError
	}
	engine := routing.NewEngine(d.Graph, model, cfg.Routing.MaxSnapMeters)

	routeCtx := ctx
	if cfg.Routing.Timeout > 0 {
		var cancel context.CancelFunc
		routeCtx, cancel = context.WithTimeout(ctx, cfg.Routing.Timeout)
		defer cancel()
	}
	log.Debug("routing",
		zap.Float64("start_lat", start.Lat), zap.Float64("start_lng", start.Lng),
		zap.Float64("end_lat", end.Lat), zap.Float64("end_lng", end.Lng),
		zap.Stringer("mode", mode))
	res, err := engine.Route(routeCtx, start, end, mode)
	switch {
	case errors.Is(err, routing.ErrNoRoute):
		fmt.Fprintln(stderr, "No route found between these locations. The roads may not be connected; try points closer to campus.")
		return exitNoRoute
	case errors.Is(err, routing.ErrPointTooFar):
		fmt.Fprintf(stderr, "A location is too far from any road (more than %.0f m). Pick a point closer to campus.\n", cfg.Routing.MaxSnapMeters)
		return exitError
	case errors.Is(err, graph.ErrUnknownNode):
		fmt.Fprintf(stderr, "A location could not be matched to the road network: %v\n", err)
		return exitError
	case err != nil:
		fmt.Fprintf(stderr, "navigate: %v\n", err)
		return exitError
	}

	if err := f.RenderEndpoints(stdout, res); err != nil {
		return exitError
	}
	fmt.Fprintln(stdout)
	if err := f.Render(stdout, res); err != nil {
		return exitError
	}
	if opts.polyline {
		fmt.Fprintf(stdout, "\nPolyline: %s\n", directions.Polyline(res.Geometry))
	}
	return exitOK
}

func prompt(in *bufio.Scanner, out io.Writer, label string) string {
	fmt.Fprintf(out, "%s: ", label)
	if !in.Scan() {
		fmt.Fprintln(out)
		return ""
	}
	return strings.TrimSpace(in.Text())
}

// resolveEndpoints geocodes both inputs concurrently. Input that cannot be
// resolved to a point inside area falls back to the configured default.
func resolveEndpoints(ctx context.Context, gc geocode.Geocoder, area geo.Bounds, from, to string,
	defaults config.DefaultsConfig, stderr io.Writer) (start, end routing.LatLng, err error) {
	var (
		notes [2]string
		pts   [2]routing.LatLng
	)
	inputs := [2]string{from, to}
	fallbacks := [2]string{defaults.Start, defaults.End}
	labels := [2]string{"starting location", "destination"}

	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		g.Go(func() error {
			p, note, err := resolveOne(gctx, gc, area, inputs[i], fallbacks[i], labels[i])
			pts[i], notes[i] = p, note
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return routing.LatLng{}, routing.LatLng{}, err
	}
	for _, n := range notes {
		if n != "" {
			fmt.Fprintln(stderr, n)
		}
	}
	return pts[0], pts[1], nil
}

func resolveOne(ctx context.Context, gc geocode.Geocoder, area geo.Bounds, input, fallback, label string) (routing.LatLng, string, error) {
	res, err := geocode.Resolve(ctx, gc, input)
	if err == nil && !area.Covers(res.Lat, res.Lon) {
		err = geocode.ErrOutsideArea
	}
	if err == nil {
		return routing.LatLng{Lat: res.Lat, Lng: res.Lon}, "", nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return routing.LatLng{}, "", ctxErr
	}

	lat, lon, ok := geocode.ParseLatLng(fallback)
	if !ok {
		return routing.LatLng{}, "", fmt.Errorf("%s: %w (default %q is not lat,lon)", label, err, fallback)
	}
	var note string
	switch {
	case errors.Is(err, geocode.ErrEmptyAddress):
		note = fmt.Sprintf("Using default %s (%.6f, %.6f).", label, lat, lon)
	case errors.Is(err, geocode.ErrOutsideArea):
		note = fmt.Sprintf("The %s %q is outside the map area. Using default (%.6f, %.6f).", label, input, lat, lon)
	default:
		note = fmt.Sprintf("Could not resolve %s %q: %v. Using default (%.6f, %.6f).", label, input, err, lat, lon)
	}
	return routing.LatLng{Lat: lat, Lng: lon}, note, nil
}
