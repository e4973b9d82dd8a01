package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix  = "DISPATCH_"
	PathEnvVar = "DISPATCH_CONFIG"
)

type Config struct {
	HTTP     HTTPConfig     `json:"http"`
	Log      LogConfig      `json:"log"`
	Distance DistanceConfig `json:"distance"`
	Store    StoreConfig    `json:"store"`
	Planning PlanningConfig `json:"planning"`
	HOS      HOSConfig      `json:"hos"`
}

type HTTPConfig struct {
	Addr              string        `json:"addr"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// DistanceConfig selects and tunes the external distance lookup service.
type DistanceConfig struct {
	Provider        string        `json:"provider"`
	GoogleAPIKey    string        `json:"google_api_key"`
	GoogleRateLimit int           `json:"google_rate_limit"`
	ORSAPIKey       string        `json:"ors_api_key"`
	ORSBaseURL      string        `json:"ors_base_url"`
	ORSCountry      string        `json:"ors_country"`
	Gazetteer       string        `json:"gazetteer"`
	RoadFactor      float64       `json:"road_factor"`
	SpeedKmh        float64       `json:"speed_kmh"`
	MaxDestinations int           `json:"max_destinations"`
	Workers         int           `json:"workers"`
	Timeout         time.Duration `json:"timeout"`
}

// StoreConfig selects the persistent tier behind the in-memory cache.
type StoreConfig struct {
	Backend  string        `json:"backend"`
	DSN      string        `json:"dsn"`
	Path     string        `json:"path"`
	Addr     string        `json:"addr"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
	SeedPath string        `json:"seed_path"`
}

type PlanningConfig struct {
	LoadedPctThreshold       float64       `json:"loaded_pct_threshold"`
	MaxChainLength           int           `json:"max_chain_length"`
	HardHourCap              float64       `json:"hard_hour_cap"`
	WarningHourCap           float64       `json:"warning_hour_cap"`
	AverageSpeedKmh          float64       `json:"average_speed_kmh"`
	LoadUnloadHours          float64       `json:"load_unload_hours"`
	UnknownDistancePolicy    string        `json:"unknown_distance_policy"`
	UnknownDistancePenaltyKm float64       `json:"unknown_distance_penalty_km"`
	SameCityZeroEmpty        bool          `json:"same_city_zero_empty"`
	MaxSearchNodes           int           `json:"max_search_nodes"`
	SearchTimeout            time.Duration `json:"search_timeout"`
	MaxDrivers               int           `json:"max_drivers"`
	Strategy                 string        `json:"strategy"`
}

type HOSConfig struct {
	DailyCap        float64 `json:"daily_cap"`
	CycleCap        float64 `json:"cycle_cap"`
	ResetHours      float64 `json:"reset_hours"`
	LoadUnloadHours float64 `json:"load_unload_hours"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// cold-cache planning waits on the external lookup service
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Distance: DistanceConfig{
			Provider:        "google",
			GoogleRateLimit: 10,
			ORSCountry:      "CA,US",
			RoadFactor:      1.25,
			SpeedKmh:        80,
			MaxDestinations: 10,
			Workers:         4,
			Timeout:         30 * time.Second,
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "data/dispatch.db",
			Addr:    "localhost:6379",
			TTL:     30 * 24 * time.Hour,
		},
		Planning: PlanningConfig{
			LoadedPctThreshold:       0.70,
			MaxChainLength:           4,
			HardHourCap:              70,
			WarningHourCap:           55,
			AverageSpeedKmh:          80,
			LoadUnloadHours:          1.5,
			UnknownDistancePolicy:    "exclude",
			UnknownDistancePenaltyKm: 500,
			MaxSearchNodes:           2_000_000,
			SearchTimeout:            10 * time.Second,
			Strategy:                 "lowest_overtime",
		},
		HOS: HOSConfig{
			DailyCap:        14,
			CycleCap:        70,
			ResetHours:      36,
			LoadUnloadHours: 3,
		},
	}
}

// Load layers defaults, the optional YAML or JSON file at path and DISPATCH_*
// environment variables, in that order. An empty path falls back to
// $DISPATCH_CONFIG; with neither set no file is read.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(PathEnvVar)
	}

	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("config: unsupported format %q", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// DISPATCH_PLANNING__MAX_CHAIN_LENGTH -> planning.max_chain_length
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyLegacyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyLegacyEnv honours the unprefixed key and database variables most
// deployments already export.
func (c *Config) applyLegacyEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = strings.TrimSpace(os.Getenv(key))
		}
	}
	fill(&c.Distance.GoogleAPIKey, "GOOGLE_MAPS_API_KEY")
	fill(&c.Distance.ORSAPIKey, "ORS_API_KEY")
	fill(&c.Store.DSN, "DATABASE_URL")
}

func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	switch c.Distance.Provider {
	case "google":
		if c.Distance.GoogleAPIKey == "" {
			add("distance.google_api_key is required for the google provider")
		}
	case "ors":
		if c.Distance.ORSAPIKey == "" {
			add("distance.ors_api_key is required for the ors provider")
		}
	case "greatcircle":
		if c.Distance.Gazetteer == "" {
			add("distance.gazetteer is required for the greatcircle provider")
		}
		if c.Distance.RoadFactor < 1 {
			add("distance.road_factor must be at least 1, got %v", c.Distance.RoadFactor)
		}
	default:
		add("distance.provider must be google, ors or greatcircle, got %q", c.Distance.Provider)
	}
	if c.Distance.MaxDestinations < 1 || c.Distance.MaxDestinations > 25 {
		add("distance.max_destinations must be within [1, 25], got %d", c.Distance.MaxDestinations)
	}
	if c.Distance.Workers < 1 {
		add("distance.workers must be positive, got %d", c.Distance.Workers)
	}

	switch c.Store.Backend {
	case "none":
	case "sqlite":
		if c.Store.Path == "" {
			add("store.path is required for the sqlite backend")
		}
	case "postgres":
		if c.Store.DSN == "" {
			add("store.dsn is required for the postgres backend")
		}
	case "redis":
		if c.Store.Addr == "" {
			add("store.addr is required for the redis backend")
		}
	default:
		add("store.backend must be none, sqlite, postgres or redis, got %q", c.Store.Backend)
	}

	p := c.Planning
	if p.LoadedPctThreshold < 0 || p.LoadedPctThreshold > 1 {
		add("planning.loaded_pct_threshold must be within [0, 1], got %v", p.LoadedPctThreshold)
	}
	if p.MaxChainLength < 1 {
		add("planning.max_chain_length must be positive, got %d", p.MaxChainLength)
	}
	if p.HardHourCap <= 0 {
		add("planning.hard_hour_cap must be positive, got %v", p.HardHourCap)
	}
	if p.WarningHourCap < 0 || p.WarningHourCap > p.HardHourCap {
		add("planning.warning_hour_cap must be within [0, hard_hour_cap], got %v", p.WarningHourCap)
	}
	if p.AverageSpeedKmh <= 0 {
		add("planning.average_speed_kmh must be positive, got %v", p.AverageSpeedKmh)
	}
	if p.LoadUnloadHours < 0 {
		add("planning.load_unload_hours must not be negative, got %v", p.LoadUnloadHours)
	}
	switch p.UnknownDistancePolicy {
	case "exclude", "zero":
	case "penalty":
		if p.UnknownDistancePenaltyKm <= 0 {
			add("planning.unknown_distance_penalty_km must be positive for the penalty policy")
		}
	default:
		add("planning.unknown_distance_policy must be exclude, penalty or zero, got %q", p.UnknownDistancePolicy)
	}
	if p.MaxSearchNodes < 0 {
		add("planning.max_search_nodes must not be negative, got %d", p.MaxSearchNodes)
	}

	h := c.HOS
	if h.DailyCap <= 0 || h.DailyCap > h.CycleCap {
		add("hos.daily_cap must be positive and not above hos.cycle_cap")
	}
	if h.ResetHours <= 0 {
		add("hos.reset_hours must be positive, got %v", h.ResetHours)
	}
	if h.LoadUnloadHours < 0 {
		add("hos.load_unload_hours must not be negative, got %v", h.LoadUnloadHours)
	}

	return errors.Join(errs...)
}
