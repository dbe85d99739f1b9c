package api

// routeQuery holds the query parameters of GET /api/v1/route.
type routeQuery struct {
	StartLat float64 `query:"start_lat" validate:"min=-90,max=90"`
	StartLng float64 `query:"start_lng" validate:"min=-180,max=180"`
	EndLat   float64 `query:"end_lat" validate:"min=-90,max=90"`
	EndLng   float64 `query:"end_lng" validate:"min=-180,max=180"`
	Mode     string  `query:"mode" validate:"omitempty,oneof=normal learner"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EndpointJSON describes where a query point joined the road network.
type EndpointJSON struct {
	Query          LatLngJSON `json:"query"`
	Node           string     `json:"node"`
	Location       LatLngJSON `json:"location"`
	DistanceMeters float64    `json:"distance_meters"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	Mode                string       `json:"mode"`
	TotalDistanceMeters float64      `json:"total_distance_meters"`
	TotalWeight         float64      `json:"total_weight"`
	DistanceMiles       float64      `json:"distance_miles"`
	EstimatedMinutes    float64      `json:"estimated_minutes"`
	Turns               int          `json:"turns"`
	Start               EndpointJSON `json:"start"`
	End                 EndpointJSON `json:"end"`
	Nodes               []string     `json:"nodes"`
	Polyline            string       `json:"polyline"`
	Tips                []string     `json:"tips"`
	Alerts              []string     `json:"alerts"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Field   string   `json:"field,omitempty"`
	Details []string `json:"details,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes     uint32 `json:"num_nodes"`
	NumEdges     uint32 `json:"num_edges"`
	NumSegments  int    `json:"num_segments"`
	NumLandmarks int    `json:"num_landmarks"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
