// Package config loads campusnav settings from an optional YAML file and
// CAMPUSNAV_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/azybler/campusnav/pkg/api"
	"github.com/azybler/campusnav/pkg/cost"
	"github.com/azybler/campusnav/pkg/geocode"
	osmparser "github.com/azybler/campusnav/pkg/osm"
)

const (
	EnvPrefix = "CAMPUSNAV"
	FileName  = "campusnav"

	// Fallback endpoints used when user input cannot be resolved: Rose
	// Street and UK Farm Road.
	DefaultStart = "38.038237,-84.499202"
	DefaultEnd   = "38.024878,-84.507439"
)

// MapConfig locates the map data.
type MapConfig struct {
	File           string    `mapstructure:"file"`
	GraphCache     string    `mapstructure:"graph_cache"`
	LandmarksCache string    `mapstructure:"landmarks_cache"`
	RespectOneway  bool      `mapstructure:"respect_oneway"`
	BBox           []float64 `mapstructure:"bbox"` // min_lat, min_lon, max_lat, max_lon
	AreaName       string    `mapstructure:"area_name"`
}

// RoutingConfig tunes query handling.
type RoutingConfig struct {
	MaxSnapMeters float64       `mapstructure:"max_snap_meters"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DefaultsConfig holds the fallback endpoints as "lat,lon".
type DefaultsConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// Config is the full application configuration.
type Config struct {
	Map      MapConfig        `mapstructure:"map"`
	Routing  RoutingConfig    `mapstructure:"routing"`
	Policy   cost.Policy      `mapstructure:"policy"`
	Geocode  geocode.Config   `mapstructure:"geocode"`
	Server   api.ServerConfig `mapstructure:"server"`
	Log      LogConfig        `mapstructure:"log"`
	Defaults DefaultsConfig   `mapstructure:"defaults"`
}

// setDefaults registers every key so env overrides work without a file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("map.file", "data/campus.osm.pbf")
	v.SetDefault("map.graph_cache", "data/campus.graph")
	v.SetDefault("map.landmarks_cache", "data/campus.landmarks.json")
	v.SetDefault("map.respect_oneway", false)
	v.SetDefault("map.bbox", []float64{})
	v.SetDefault("map.area_name", "University of Kentucky, Lexington, KY")

	v.SetDefault("routing.max_snap_meters", 500.0)
	v.SetDefault("routing.timeout", "5s")

	p := cost.DefaultPolicy()
	v.SetDefault("policy.crowd_weight", p.CrowdWeight)
	v.SetDefault("policy.blind_spot_weight", p.BlindSpotWeight)
	v.SetDefault("policy.complexity_weight", p.ComplexityWeight)

	g := geocode.DefaultConfig()
	v.SetDefault("geocode.base_url", g.BaseURL)
	v.SetDefault("geocode.user_agent", g.UserAgent)
	v.SetDefault("geocode.timeout", g.Timeout)
	v.SetDefault("geocode.attempts", g.Attempts)
	v.SetDefault("geocode.backoff", g.Backoff)
	v.SetDefault("geocode.rate_per_second", g.RatePerSecond)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.request_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_concurrent", runtime.NumCPU()*2)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)

	v.SetDefault("defaults.start", DefaultStart)
	v.SetDefault("defaults.end", DefaultEnd)
}

// Load reads configuration. An explicit path must exist; otherwise
// campusnav.yaml is looked up in . and ./data and is optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./data")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if n := len(c.Map.BBox); n != 0 && n != 4 {
		return fmt.Errorf("map.bbox: want 4 values (min_lat, min_lon, max_lat, max_lon), got %d", n)
	}
	if len(c.Map.BBox) == 4 {
		b := c.Map.BBox
		if b[0] > b[2] || b[1] > b[3] {
			return fmt.Errorf("map.bbox: min corner (%v, %v) above max corner (%v, %v)", b[0], b[1], b[2], b[3])
		}
	}
	if c.Routing.MaxSnapMeters <= 0 {
		return fmt.Errorf("routing.max_snap_meters must be positive, got %v", c.Routing.MaxSnapMeters)
	}
	if c.Server.MaxConcurrent <= 0 {
		return fmt.Errorf("server.max_concurrent must be positive, got %d", c.Server.MaxConcurrent)
	}
	return nil
}

// ParseBBox returns the configured bounding box, zero when unset.
func (m MapConfig) ParseBBox() osmparser.BBox {
	if len(m.BBox) != 4 {
		return osmparser.BBox{}
	}
	return osmparser.BBox{MinLat: m.BBox[0], MinLng: m.BBox[1], MaxLat: m.BBox[2], MaxLng: m.BBox[3]}
}

// ParseOptions builds parser options from the map section.
func (m MapConfig) ParseOptions() osmparser.ParseOptions {
	return osmparser.ParseOptions{BBox: m.ParseBBox(), RespectOneway: m.RespectOneway}
}
