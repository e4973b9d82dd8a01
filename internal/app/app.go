package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/adapters/distance"
	"freight-dispatch-service/internal/api"
	"freight-dispatch-service/internal/api/handlers"
	"freight-dispatch-service/internal/config"
	"freight-dispatch-service/internal/platform/telemetry"
	"freight-dispatch-service/internal/ports"
	"freight-dispatch-service/internal/services"
)

// App holds the wired engine for one process.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Registry   *prometheus.Registry
	Metrics    *telemetry.Collectors
	Stores     *Stores
	Dispatcher *services.Dispatcher
}

// New opens the persistent tier, builds the distance provider and wires
// the DistanceCache and Dispatcher on top of them.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.New(reg)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	stores, err := OpenStores(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := stores.Migrate(ctx); err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	provider, err := NewProvider(cfg.Distance, stores.Geocodes, log)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	opts := []services.CacheOption{
		services.WithMaxDestinations(cfg.Distance.MaxDestinations),
		services.WithWorkers(cfg.Distance.Workers),
		services.WithCacheLogger(log),
		services.WithCacheMetrics(metrics),
	}
	if stores.Distances != nil {
		opts = append(opts, services.WithStore(stores.Distances))
	}
	cache := services.NewDistanceCache(provider, opts...)

	dispatcher := services.NewDispatcher(cache, EnrichOptions(cfg.Planning), HOSOptions(cfg.HOS), log, metrics)

	log.Info().
		Str("provider", cfg.Distance.Provider).
		Str("store", cfg.Store.Backend).
		Msg("dispatch engine ready")

	return &App{
		Config:     cfg,
		Log:        log,
		Registry:   reg,
		Metrics:    metrics,
		Stores:     stores,
		Dispatcher: dispatcher,
	}, nil
}

// Handler returns the HTTP API for this app.
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.Deps{
		Dispatcher: a.Dispatcher,
		Defaults:   Defaults(a.Config.Planning),
		Log:        a.Log,
		Metrics:    a.Metrics,
		Gatherer:   a.Registry,
	})
}

func (a *App) Close() error { return a.Stores.Close() }

// NewProvider builds the external distance lookup adapter.
func NewProvider(cfg config.DistanceConfig, geocodes ports.GeocodeStore, log zerolog.Logger) (ports.DistanceMatrixProvider, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case "google":
		return distance.NewGoogleMatrixProvider(cfg.GoogleAPIKey,
			distance.WithGoogleHTTPClient(client),
			distance.WithGoogleRateLimit(cfg.GoogleRateLimit),
		)
	case "ors":
		opts := []distance.ORSOption{
			distance.WithORSHTTPClient(client),
			distance.WithORSCountry(cfg.ORSCountry),
			distance.WithORSLogger(log),
		}
		if cfg.ORSBaseURL != "" {
			opts = append(opts, distance.WithORSBaseURL(cfg.ORSBaseURL))
		}
		if geocodes != nil {
			opts = append(opts, distance.WithORSGeocodeStore(geocodes))
		}
		return distance.NewORSProvider(cfg.ORSAPIKey, opts...)
	case "greatcircle":
		gaz, err := distance.LoadGazetteer(cfg.Gazetteer)
		if err != nil {
			return nil, err
		}
		return distance.NewGreatCircleProvider(gaz, cfg.RoadFactor, cfg.SpeedKmh)
	}
	return nil, fmt.Errorf("unknown distance provider %q", cfg.Provider)
}

func EnrichOptions(p config.PlanningConfig) services.EnrichOptions {
	return services.EnrichOptions{
		Policy:            services.UnknownDistancePolicy(p.UnknownDistancePolicy),
		PenaltyKm:         p.UnknownDistancePenaltyKm,
		SameCityZeroEmpty: p.SameCityZeroEmpty,
	}
}

func HOSOptions(h config.HOSConfig) services.HOSOptions {
	return services.HOSOptions{
		DailyCap:        h.DailyCap,
		CycleCap:        h.CycleCap,
		ResetHours:      h.ResetHours,
		LoadUnloadHours: h.LoadUnloadHours,
	}
}

func Defaults(p config.PlanningConfig) handlers.Defaults {
	return handlers.Defaults{
		LoadedPctThreshold: p.LoadedPctThreshold,
		MaxChainLength:     p.MaxChainLength,
		MaxSearchNodes:     p.MaxSearchNodes,
		SearchTimeout:      p.SearchTimeout,
		HardHourCap:        p.HardHourCap,
		WarningHourCap:     p.WarningHourCap,
		AverageSpeedKmh:    p.AverageSpeedKmh,
		LoadUnloadHours:    p.LoadUnloadHours,
		MaxDrivers:         p.MaxDrivers,
		Strategy:           p.Strategy,
	}
}
