package osm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"

	"github.com/azybler/campusnav/pkg/geo"
)

// ErrUnsupportedFormat is returned for map files that are neither PBF nor
// OSM XML (optionally bzip2 compressed).
var ErrUnsupportedFormat = errors.New("unsupported map format")

// RawEdge represents a directed road segment parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Length     float64 // meters
	Highway    string
	Name       string
	MaxSpeed   string
	CrowdLevel float64
	BlindSpot  bool
	Tip        string
}

// POI is a named point of interest found among the map nodes.
type POI struct {
	ID   osm.NodeID
	Name string
	Type string
	Lat  float64
	Lon  float64
}

// ParseResult holds the output of parsing an OSM file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
	POIs    []POI
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
	Highway  string
	Name     string
	MaxSpeed string
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box

	// RespectOneway keeps oneway restrictions. When false every way is
	// routable in both directions.
	RespectOneway bool
}

// Pass identifies which of the two scans an Opener is asked for.
type Pass int

const (
	PassWays Pass = iota + 1
	PassNodes
)

// Opener returns a fresh scanner positioned at the start of the data.
// Parse calls it once per pass and closes each scanner it gets.
type Opener func(ctx context.Context, pass Pass) (osm.Scanner, error)

// fileScanner closes the underlying reader chain along with the scanner.
type fileScanner struct {
	osm.Scanner
	closers []io.Closer
}

func (s *fileScanner) Close() error {
	err := s.Scanner.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if cerr := s.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// FileOpener returns an Opener for the map file at path. The format is
// chosen by extension: .pbf, .osm / .xml, or either XML form with .bz2.
func FileOpener(path string) (Opener, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return func(ctx context.Context, pass Pass) (osm.Scanner, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			s := osmpbf.New(ctx, f, 1)
			s.SkipRelations = true
			if pass == PassWays {
				s.SkipNodes = true
			} else {
				s.SkipWays = true
			}
			return &fileScanner{Scanner: s, closers: []io.Closer{f}}, nil
		}, nil
	case strings.HasSuffix(lower, ".osm.bz2"), strings.HasSuffix(lower, ".xml.bz2"):
		return func(ctx context.Context, _ Pass) (osm.Scanner, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			zr, err := bzip2.NewReader(f, nil)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("bzip2 reader: %w", err)
			}
			return &fileScanner{Scanner: osmxml.New(ctx, zr), closers: []io.Closer{f, zr}}, nil
		}, nil
	case strings.HasSuffix(lower, ".osm"), strings.HasSuffix(lower, ".xml"):
		return func(ctx context.Context, _ Pass) (osm.Scanner, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			return &fileScanner{Scanner: osmxml.New(ctx, f), closers: []io.Closer{f}}, nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// ParseFile parses the map file at path.
func ParseFile(ctx context.Context, path string, log *zap.Logger, opts ParseOptions) (*ParseResult, error) {
	open, err := FileOpener(path)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, open, log, opts)
}

// Parse reads OSM data in two passes and returns directed edges for car
// routing. Pass 1 collects car-accessible ways, pass 2 collects coordinates
// for the nodes those ways reference plus named landmark nodes.
func Parse(ctx context.Context, open Opener, log *zap.Logger, opts ParseOptions) (*ParseResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	useBBox := !opts.BBox.IsZero()

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner, err := open(ctx, PassWays)
	if err != nil {
		return nil, fmt.Errorf("open pass 1: %w", err)
	}
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := true, true
		if opts.RespectOneway {
			fwd, bwd = directionFlags(w.Tags)
			if !fwd && !bwd {
				continue
			}
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			Forward:  fwd,
			Backward: bwd,
			Highway:  w.Tags.Find("highway"),
			Name:     wayName(w.Tags),
			MaxSpeed: w.Tags.Find("maxspeed"),
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Info("pass 1 complete",
		zap.Int("ways", len(ways)),
		zap.Int("referenced_nodes", len(referencedNodes)))

	// Pass 2: Scan nodes for coordinates and landmarks.
	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))
	var pois []POI

	scanner, err = open(ctx, PassNodes)
	if err != nil {
		return nil, fmt.Errorf("open pass 2: %w", err)
	}
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}

		if _, needed := referencedNodes[n.ID]; needed {
			nodeLat[n.ID] = n.Lat
			nodeLon[n.ID] = n.Lon
		}

		if typ := poiType(n.Tags); typ != "" {
			if useBBox && !opts.BBox.Contains(n.Lat, n.Lon) {
				continue
			}
			pois = append(pois, POI{ID: n.ID, Name: n.Tags.Find("name"), Type: typ, Lat: n.Lat, Lon: n.Lon})
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Info("pass 2 complete",
		zap.Int("node_coordinates", len(nodeLat)),
		zap.Int("pois", len(pois)))

	// Build edges from ways.
	var edges []RawEdge
	var skippedEdges int
	var bboxFiltered int

	for _, w := range ways {
		crowd := crowdLevel(w.Highway)
		blind := isBlindSpot(w.Highway)
		tip := safetyTip(w.Highway, w.Name, w.MaxSpeed)

		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]
			if fromID == toID {
				continue
			}

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]

			if !fromOk || !toOk {
				skippedEdges++
				continue
			}

			// Bounding box filter: skip edges with any endpoint outside.
			if useBBox && (!opts.BBox.Contains(fromLat, fromLon) || !opts.BBox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			edge := RawEdge{
				Length:     geo.Haversine(fromLat, fromLon, toLat, toLon),
				Highway:    w.Highway,
				Name:       w.Name,
				MaxSpeed:   w.MaxSpeed,
				CrowdLevel: crowd,
				BlindSpot:  blind,
				Tip:        tip,
			}
			if w.Forward {
				edge.FromNodeID, edge.ToNodeID = fromID, toID
				edges = append(edges, edge)
			}
			if w.Backward {
				edge.FromNodeID, edge.ToNodeID = toID, fromID
				edges = append(edges, edge)
			}
		}
	}

	if skippedEdges > 0 {
		log.Warn("skipped edges with missing node coordinates", zap.Int("count", skippedEdges))
	}
	if bboxFiltered > 0 {
		log.Info("filtered edges outside bounding box", zap.Int("count", bboxFiltered))
	}
	log.Info("built directed edges", zap.Int("edges", len(edges)))

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
		POIs:    pois,
	}, nil
}
