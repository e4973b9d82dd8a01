package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the Prometheus metrics emitted by the dispatch engine.
// A nil *Collectors is valid and records nothing.
type Collectors struct {
	distanceLookups *prometheus.CounterVec
	providerBatches *prometheus.CounterVec
	providerLatency prometheus.Histogram
	searchNodes     prometheus.Histogram
	routesFound     prometheus.Counter
	unassigned      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New registers the dispatch collectors on reg. If reg is nil the default
// registerer is used. Collectors that are already registered are reused.
func New(reg prometheus.Registerer) (*Collectors, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collectors{
		distanceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_distance_lookups_total",
			Help: "Distance pairs resolved, by tier and element status",
		}, []string{"source", "status"}),
		providerBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_distance_provider_batches_total",
			Help: "Batched calls to the distance provider",
		}, []string{"outcome"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_distance_provider_latency_seconds",
			Help:    "Latency of a single distance provider batch",
			Buckets: prometheus.DefBuckets,
		}),
		searchNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_route_search_nodes",
			Help:    "Search nodes explored per route enumeration",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		routesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_routes_found_total",
			Help: "Routes meeting the loaded percentage threshold",
		}),
		unassigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_unassigned_loads_total",
			Help: "Loads left unassigned by the fleet assigner",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "path", "status"}),
	}

	var err error
	if c.distanceLookups, err = register(reg, c.distanceLookups); err != nil {
		return nil, err
	}
	if c.providerBatches, err = register(reg, c.providerBatches); err != nil {
		return nil, err
	}
	if c.unassigned, err = register(reg, c.unassigned); err != nil {
		return nil, err
	}
	if c.httpRequests, err = register(reg, c.httpRequests); err != nil {
		return nil, err
	}
	if c.providerLatency, err = register(reg, c.providerLatency); err != nil {
		return nil, err
	}
	if c.searchNodes, err = register(reg, c.searchNodes); err != nil {
		return nil, err
	}
	if c.routesFound, err = register(reg, c.routesFound); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (c *Collectors) DistanceLookups(source, status string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.distanceLookups.WithLabelValues(source, status).Add(float64(n))
}

func (c *Collectors) ProviderBatch(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.providerBatches.WithLabelValues(outcome).Inc()
	c.providerLatency.Observe(elapsed.Seconds())
}

func (c *Collectors) RouteSearch(nodes int, routes int) {
	if c == nil {
		return
	}
	c.searchNodes.Observe(float64(nodes))
	c.routesFound.Add(float64(routes))
}

func (c *Collectors) Unassigned(reason string) {
	if c == nil {
		return
	}
	c.unassigned.WithLabelValues(reason).Inc()
}

func (c *Collectors) HTTPRequest(method, path string, status int) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
