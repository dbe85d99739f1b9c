package geocode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned for input that is neither coordinates nor
// a "number street, city, ST [zip]" address.
var ErrInvalidAddress = errors.New("invalid address format, use: street, city, state [ZIP code]")

var addressPattern = regexp.MustCompile(`^\d+\s+[\w\s]+,\s*[\w\s]+,\s*[A-Z]{2}(?:\s+\d{5})?$`)

// ValidAddress reports whether s looks like "1234 Rose St, Lexington, KY 40506".
func ValidAddress(s string) bool {
	return addressPattern.MatchString(strings.TrimSpace(s))
}

// ParseLatLng parses "lat,lon", optionally wrapped in parentheses.
func ParseLatLng(s string) (lat, lon float64, ok bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	latStr, lonStr, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// Resolve turns user input into a location. Coordinates are returned as
// given; anything else must be a well-formed address and is geocoded.
func Resolve(ctx context.Context, g Geocoder, input string) (Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}, ErrEmptyAddress
	}
	if lat, lon, ok := ParseLatLng(input); ok {
		return Result{Lat: lat, Lon: lon, DisplayName: fmt.Sprintf("(%.6f, %.6f)", lat, lon)}, nil
	}
	if !ValidAddress(input) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidAddress, input)
	}
	return g.Geocode(ctx, input)
}
