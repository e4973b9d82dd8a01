package handlers

import (
	"net/http"

	"freight-dispatch-service/internal/api/dto"
	"freight-dispatch-service/internal/services"
)

type ScheduleHandler struct {
	Dispatcher *services.Dispatcher
}

// Simulate lays one driver's plan out over calendar days.
func (h *ScheduleHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sim, err := req.ToService()
	if err != nil {
		writeServiceError(w, r, "schedule", err)
		return
	}

	res, err := h.Dispatcher.Schedule(r.Context(), sim)
	if err != nil {
		writeServiceError(w, r, "schedule", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewScheduleResponse(res))
}
