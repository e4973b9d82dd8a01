package handlers

import (
	"net/http"

	"freight-dispatch-service/internal/api/dto"
	"freight-dispatch-service/internal/services"
)

type AssignmentHandler struct {
	Dispatcher *services.Dispatcher
	Defaults   Defaults
}

// Assign packs the loads across drivers leaving from base_location.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.AssignmentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	from, err := dto.ParseDate("schedule_from", req.ScheduleFrom)
	if err != nil {
		writeServiceError(w, r, "assign", err)
		return
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = h.Defaults.Strategy
	}

	plan, err := h.Dispatcher.AssignFleet(r.Context(), services.FleetRequest{
		Loads:           dto.LoadsToDomain(req.Loads),
		Base:            req.BaseLocation,
		Drivers:         dto.DriversToSeeds(req.Drivers),
		HardHourCap:     orDefault(req.HardHourCap, h.Defaults.HardHourCap),
		WarningHourCap:  orDefault(req.WarningHourCap, h.Defaults.WarningHourCap),
		AverageSpeedKmh: orDefault(req.AverageSpeedKmh, h.Defaults.AverageSpeedKmh),
		LoadUnloadHours: orDefault(req.LoadUnloadHours, h.Defaults.LoadUnloadHours),
		MaxDrivers:      orDefault(req.MaxDrivers, h.Defaults.MaxDrivers),
		Strategy:        strategy,
		ScheduleFrom:    from,
	})
	if err != nil {
		writeServiceError(w, r, "assign", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewAssignmentsResponse(plan))
}
