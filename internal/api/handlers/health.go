package handlers

import (
	"net/http"

	"freight-dispatch-service/internal/services"
)

type HealthHandler struct {
	Cache *services.DistanceCache
}

// Health reports liveness and the size of the in-memory distance cache.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	res := map[string]any{"status": "ok"}
	if h.Cache != nil {
		res["cached_distances"] = h.Cache.Len()
	}
	writeJSON(w, r, http.StatusOK, res)
}
