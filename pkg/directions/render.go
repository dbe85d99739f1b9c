package directions

import (
	"fmt"
	"io"
	"strings"

	"github.com/twpayne/go-polyline"

	"github.com/azybler/campusnav/pkg/cost"
	"github.com/azybler/campusnav/pkg/routing"
)

// Polyline encodes route geometry in the Google polyline format
// (precision 5).
func Polyline(geometry []routing.LatLng) string {
	coords := make([][]float64, len(geometry))
	for i, p := range geometry {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline is the inverse of Polyline.
func DecodePolyline(s string) ([]routing.LatLng, error) {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	out := make([]routing.LatLng, len(coords))
	for i, c := range coords {
		out[i] = routing.LatLng{Lat: c[0], Lng: c[1]}
	}
	return out, nil
}

// printer keeps the first write error so rendering code can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// RenderOverview writes the area overview.
func (f *Formatter) RenderOverview(w io.Writer) error {
	o := f.Overview()
	p := &printer{w: w}
	p.printf("AREA OVERVIEW:\n")
	if o.Name != "" {
		p.printf("   Location: %s\n", o.Name)
	}
	p.printf("   Coverage: %.4f to %.4f lat, %.4f to %.4f lon\n", o.MinLat, o.MaxLat, o.MinLon, o.MaxLon)
	p.printf("   Waypoints: %d\n", o.Waypoints)
	p.printf("   Road segments: %d\n", o.Segments)
	p.printf("   Landmarks: %d\n", o.Landmarks)
	return p.err
}

// RenderEndpoints writes where the query points are and which roads they
// snapped to.
func (f *Formatter) RenderEndpoints(w io.Writer, res *routing.RouteResult) error {
	p := &printer{w: w}
	endpoint := func(title, label string, s routing.Snapped) {
		place := f.Place(s.Query.Lat, s.Query.Lng)
		p.printf("%s:\n", title)
		p.printf("   Coordinates: (%.6f, %.6f)\n", s.Query.Lat, s.Query.Lng)
		p.printf("   %s: %s\n", label, place.Description)
		if len(place.Nearby) > 0 {
			p.printf("   Near: %s\n", strings.Join(place.Nearby, ", "))
		}
	}
	endpoint("STARTING POINT", "Location", res.Start)
	p.printf("\n")
	endpoint("DESTINATION", "Destination", res.End)

	p.printf("\nROUTE PLANNING:\n")
	p.printf("   Starting road: %s\n", f.Describe(res.Start.Node))
	p.printf("      Distance to starting road: %.2f miles\n", Miles(res.Start.DistanceMeters))
	p.printf("   Ending road: %s\n", f.Describe(res.End.Node))
	p.printf("      Distance to ending road: %.2f miles\n", Miles(res.End.DistanceMeters))
	p.printf("   Navigation mode: %s\n", modeDescription(res.Route.Mode))
	return p.err
}

func modeDescription(m cost.Mode) string {
	if m == cost.Learner {
		return "Learner Mode (safer route)"
	}
	return "Normal Mode (fastest route)"
}

// Render writes the summary, step list and safety information of a route.
func (f *Formatter) Render(w io.Writer, res *routing.RouteResult) error {
	p := &printer{w: w}
	s := Summarize(res.Route)
	p.printf("Route Found!\n")
	p.printf("Distance: %.2f miles (%.1f km)\n", s.DistanceMiles, s.DistanceKm)
	p.printf("Estimated Time: %.0f minutes\n", s.Minutes)
	p.printf("Turns: %d\n", s.Turns)

	p.printf("\nStep-by-Step Directions:\n")
	for _, step := range f.Steps(res.Route) {
		p.printf("    %s %s\n", step.Kind, step.Location)
		if len(step.Nearby) > 0 {
			p.printf("        Near: %s\n", strings.Join(step.Nearby, ", "))
		}
		if step.ProceedMeters > 0 {
			p.printf("        Proceed %.2f miles\n", Miles(step.ProceedMeters))
		}
	}

	if res.Route.Mode == cost.Learner {
		p.printf("\nLearner Mode Safety Information:\n")
		if len(res.Tips) > 0 {
			p.printf("Safety Tips (%d total):\n", len(res.Tips))
			listCapped(p, res.Tips, MaxTips, "tips")
		}
	} else {
		p.printf("\nNormal Mode - Fastest Route\n")
	}
	if len(res.Alerts) > 0 {
		p.printf("Blind Spot Alerts (%d total):\n", len(res.Alerts))
		listCapped(p, res.Alerts, MaxAlerts, "alerts")
	}
	return p.err
}

func listCapped(p *printer, items []string, limit int, noun string) {
	for i, item := range items[:min(limit, len(items))] {
		p.printf("    %d. %s\n", i+1, item)
	}
	if extra := len(items) - limit; extra > 0 {
		p.printf("    ... and %d more %s\n", extra, noun)
	}
}
