package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/api/handlers"
	"freight-dispatch-service/internal/platform/telemetry"
	"freight-dispatch-service/internal/services"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Dispatcher *services.Dispatcher
	Defaults   handlers.Defaults
	Log        zerolog.Logger
	Metrics    *telemetry.Collectors
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Cache: d.Dispatcher.Cache()}
	routes := &handlers.RouteHandler{Dispatcher: d.Dispatcher, Defaults: d.Defaults}
	assignments := &handlers.AssignmentHandler{Dispatcher: d.Dispatcher, Defaults: d.Defaults}
	schedules := &handlers.ScheduleHandler{Dispatcher: d.Dispatcher}

	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/routes", routes.Plan)
	mux.HandleFunc("/routes/evaluate", routes.Evaluate)
	mux.HandleFunc("/assignments", assignments.Assign)
	mux.HandleFunc("/schedules", schedules.Simulate)
	if d.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	return requestIDMiddleware(d.Log, loggingMiddleware(d.Metrics, mux))
}
