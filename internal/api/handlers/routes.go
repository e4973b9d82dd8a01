package handlers

import (
	"net/http"

	"freight-dispatch-service/internal/api/dto"
	"freight-dispatch-service/internal/services"
)

type RouteHandler struct {
	Dispatcher *services.Dispatcher
	Defaults   Defaults
}

// Plan enumerates every qualifying single-vehicle route for the loads.
// An empty result is a 200 with no_routes_met_threshold set.
func (h *RouteHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.RoutesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	plan, err := h.Dispatcher.PlanRoutes(r.Context(), services.RoutePlanRequest{
		Loads:              dto.LoadsToDomain(req.Loads),
		Start:              req.StartLocation,
		End:                req.EndLocation,
		LoadedPctThreshold: orDefault(req.LoadedPctThreshold, h.Defaults.LoadedPctThreshold),
		MaxChainLength:     orDefault(req.MaxChainLength, h.Defaults.MaxChainLength),
		MaxNodes:           orDefault(req.MaxSearchNodes, h.Defaults.MaxSearchNodes),
		Limit:              req.Limit,
		SearchTimeout:      h.Defaults.SearchTimeout,
	})
	if err != nil {
		writeServiceError(w, r, "plan routes", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewRoutesResponse(plan))
}

// Evaluate scores one caller-chosen load order.
func (h *RouteHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.EvaluateRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ev, err := h.Dispatcher.EvaluateRoute(r.Context(), services.EvaluateRequest{
		Loads:              dto.LoadsToDomain(req.Loads),
		Start:              req.StartLocation,
		End:                req.EndLocation,
		LoadIDs:            req.LoadIDs,
		LoadedPctThreshold: orDefault(req.LoadedPctThreshold, h.Defaults.LoadedPctThreshold),
	})
	if err != nil {
		writeServiceError(w, r, "evaluate route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewEvaluateRouteResponse(ev))
}
