package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/azybler/campusnav/pkg/cost"
	"github.com/azybler/campusnav/pkg/directions"
	"github.com/azybler/campusnav/pkg/graph"
	"github.com/azybler/campusnav/pkg/routing"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router   routing.Router
	stats    StatsResponse
	log      *zap.Logger
	validate *validator.Validate
	trans    ut.Translator
}

// NewHandlers creates handlers with the given router.
func NewHandlers(router routing.Router, stats StatsResponse, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &Handlers{
		router:   router,
		stats:    stats,
		log:      log,
		validate: validate,
		trans:    trans,
	}
}

// HandleRoute handles GET /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()

	var (
		req routeQuery
		err error
	)
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"start_lat", &req.StartLat},
		{"start_lng", &req.StartLng},
		{"end_lat", &req.EndLat},
		{"end_lng", &req.EndLng},
	} {
		if *p.dst, err = parseCoord(q, p.name); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_coordinates", Field: p.name})
			return
		}
	}
	req.Mode = strings.ToLower(strings.TrimSpace(q.Get("mode")))

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Details: h.translate(err)})
		return
	}
	mode, err := cost.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Field: "mode"})
		return
	}

	result, err := h.router.Route(r.Context(),
		routing.LatLng{Lat: req.StartLat, Lng: req.StartLng},
		routing.LatLng{Lat: req.EndLat, Lng: req.EndLng},
		mode)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("route query failed", zap.Error(err))
		}
		writeError(w, status, ErrorResponse{Error: code})
		return
	}

	writeJSON(w, http.StatusOK, newRouteResponse(result))
}

// errorStatus maps routing errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, routing.ErrPointTooFar):
		return http.StatusUnprocessableEntity, "point_too_far_from_road"
	case errors.Is(err, routing.ErrNoRoute):
		return http.StatusNotFound, "no_route_found"
	case errors.Is(err, graph.ErrUnknownNode):
		return http.StatusNotFound, "unknown_node"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

func newRouteResponse(res *routing.RouteResult) RouteResponse {
	summary := directions.Summarize(res.Route)
	resp := RouteResponse{
		Mode:                res.Route.Mode.String(),
		TotalDistanceMeters: res.Route.TotalDistance,
		TotalWeight:         res.Route.TotalWeight,
		DistanceMiles:       summary.DistanceMiles,
		EstimatedMinutes:    summary.Minutes,
		Turns:               summary.Turns,
		Start:               newEndpoint(res.Start),
		End:                 newEndpoint(res.End),
		Nodes:               make([]string, len(res.Route.Nodes)),
		Polyline:            directions.Polyline(res.Geometry),
		Tips:                nonNil(res.Tips),
		Alerts:              nonNil(res.Alerts),
	}
	for i, id := range res.Route.Nodes {
		resp.Nodes[i] = string(id)
	}
	return resp
}

func newEndpoint(s routing.Snapped) EndpointJSON {
	return EndpointJSON{
		Query:          LatLngJSON{Lat: s.Query.Lat, Lng: s.Query.Lng},
		Node:           string(s.Node.ID),
		Location:       LatLngJSON{Lat: s.Node.Lat, Lng: s.Node.Lon},
		DistanceMeters: s.DistanceMeters,
	}
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, h.stats)
}

func (h *Handlers) translate(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, len(verrs))
	for i, fe := range verrs {
		out[i] = fe.Translate(h.trans)
	}
	return out
}

func parseCoord(q url.Values, name string) (float64, error) {
	v, err := strconv.ParseFloat(q.Get(name), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("coordinates must be finite numbers")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
