// Package geocode turns street addresses into coordinates through a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/azybler/campusnav/pkg/geo"
)

var (
	// ErrEmptyAddress is returned for blank input.
	ErrEmptyAddress = errors.New("empty address")
	// ErrNotFound is returned when the service has no match.
	ErrNotFound = errors.New("address not found")
	// ErrOutsideArea is returned when the match lies outside the loaded map.
	ErrOutsideArea = errors.New("address outside the map area")
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "campusnav"
)

// Config controls the client. Zero fields fall back to DefaultConfig.
type Config struct {
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Attempts      int           `mapstructure:"attempts"`
	Backoff       time.Duration `mapstructure:"backoff"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

// DefaultConfig matches Nominatim's usage policy of one request per second.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		UserAgent:     DefaultUserAgent,
		Timeout:       10 * time.Second,
		Attempts:      2,
		Backoff:       2 * time.Second,
		RatePerSecond: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Attempts <= 0 {
		c.Attempts = d.Attempts
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	return c
}

// Result is a geocoded address.
type Result struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder resolves a free-form address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// Client queries the search endpoint. It is safe for concurrent use;
// outbound requests are paced by a shared limiter.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	area    geo.Bounds
	log     *zap.Logger

	mu    sync.Mutex
	cache map[string]Result
}

// New creates a client. Matches outside area are rejected unless area is
// empty.
func New(cfg Config, area geo.Bounds, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		area:    area,
		log:     log.Named("geocode"),
		cache:   make(map[string]Result),
	}
}

// Geocode resolves address. Lookups are cached case-insensitively; misses
// and out-of-area matches are not cached.
func (c *Client) Geocode(ctx context.Context, address string) (Result, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return Result{}, ErrEmptyAddress
	}

	c.mu.Lock()
	res, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		c.log.Debug("cache hit", zap.String("address", address))
		return res, nil
	}

	var err error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		res, err = c.search(ctx, address)
		if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			break
		}
		c.log.Warn("geocoding attempt failed",
			zap.String("address", address),
			zap.Int("attempt", attempt),
			zap.Int("attempts", c.cfg.Attempts),
			zap.Error(err))
		if attempt < c.cfg.Attempts {
			if werr := sleep(ctx, c.cfg.Backoff); werr != nil {
				return Result{}, werr
			}
		}
	}
	if err != nil {
		return Result{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	if !c.area.IsEmpty() && !c.area.Covers(res.Lat, res.Lon) {
		return Result{}, fmt.Errorf("%w: %q resolved to (%.6f, %.6f)", ErrOutsideArea, address, res.Lat, res.Lon)
	}

	c.mu.Lock()
	c.cache[key] = res
	c.mu.Unlock()
	c.log.Info("geocoded",
		zap.String("address", address),
		zap.Float64("lat", res.Lat),
		zap.Float64("lon", res.Lon))
	return res, nil
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *Client) search(ctx context.Context, address string) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return Result{}, fmt.Errorf("base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/search"
	u.RawQuery = url.Values{
		"format": {"jsonv2"},
		"q":      {address},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("search returned %s", resp.Status)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Result{}, fmt.Errorf("decode search response: %w", err)
	}
	if len(places) == 0 {
		return Result{}, ErrNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse lon: %w", err)
	}
	return Result{Lat: lat, Lon: lon, DisplayName: places[0].DisplayName}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
