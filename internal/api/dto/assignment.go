package dto

import (
	"freight-dispatch-service/internal/services"
)

type DriverRequest struct {
	Name            string  `json:"name"`
	HomeBase        string  `json:"home_base"`
	CurrentLocation string  `json:"current_location"`
	HoursUsed       float64 `json:"hours_used"`
}

type AssignmentsRequest struct {
	Loads           []LoadRequest   `json:"loads"`
	BaseLocation    string          `json:"base_location"`
	Drivers         []DriverRequest `json:"drivers"`
	HardHourCap     *float64        `json:"hard_hour_cap"`
	WarningHourCap  *float64        `json:"warning_hour_cap"`
	AverageSpeedKmh *float64        `json:"average_speed_kmh"`
	LoadUnloadHours *float64        `json:"load_unload_hours"`
	MaxDrivers      *int            `json:"max_drivers"`
	Strategy        string          `json:"strategy"`
	// ScheduleFrom (YYYY-MM-DD) also lays every driver's plan out over days.
	ScheduleFrom string `json:"schedule_from"`
}

func DriversToSeeds(in []DriverRequest) []services.DriverSeed {
	out := make([]services.DriverSeed, 0, len(in))
	for _, d := range in {
		out = append(out, services.DriverSeed(d))
	}
	return out
}

type DriverResponse struct {
	DriverID        int               `json:"driver_id"`
	Name            string            `json:"name"`
	HomeBase        string            `json:"home_base"`
	CurrentLocation string            `json:"current_location"`
	HoursUsed       float64           `json:"hours_used"`
	OverWarning     bool              `json:"over_warning"`
	HOSPct          float64           `json:"hos_pct"`
	HourlyRate      float64           `json:"hourly_rate"`
	Route           RouteResponse     `json:"route"`
	Gaps            []SegmentResponse `json:"gaps"`
}

type UnassignedResponse struct {
	LoadID int    `json:"load_id"`
	Reason string `json:"reason"`
}

type SummaryResponse struct {
	DriversUsed     int     `json:"drivers_used"`
	AssignedLoads   int     `json:"assigned_loads"`
	UnassignedLoads int     `json:"unassigned_loads"`
	LoadedKm        float64 `json:"loaded_km"`
	EmptyKm         float64 `json:"empty_km"`
	TotalKm         float64 `json:"total_km"`
	LoadedPct       float64 `json:"loaded_pct"`
	Revenue         float64 `json:"revenue"`
	RPM             float64 `json:"rpm"`
	TotalHours      float64 `json:"total_hours"`
	MeanHours       float64 `json:"mean_hours"`
	StdDevHours     float64 `json:"stddev_hours"`
	MaxHours        float64 `json:"max_hours"`
	MeanLoadedPct   float64 `json:"mean_loaded_pct"`
}

type AssignmentsResponse struct {
	Drivers    []DriverResponse     `json:"drivers"`
	Unassigned []UnassignedResponse `json:"unassigned"`
	Summary    SummaryResponse      `json:"summary"`
	Schedules  []ScheduleResponse   `json:"schedules,omitempty"`
	Loads      []LoadResponse       `json:"loads"`
	Warnings   []string             `json:"warnings"`
}

func NewAssignmentsResponse(p *services.FleetPlan) AssignmentsResponse {
	res := AssignmentsResponse{
		Drivers:    make([]DriverResponse, 0, len(p.Result.Drivers)),
		Unassigned: make([]UnassignedResponse, 0, len(p.Result.Unassigned)),
		Summary:    SummaryResponse(p.Result.Summary),
		Loads:      NewLoadResponses(p.Loads),
		Warnings:   nonNilStrings(p.Warnings),
	}
	for _, dp := range p.Result.Drivers {
		d := dp.Driver
		res.Drivers = append(res.Drivers, DriverResponse{
			DriverID:        d.ID,
			Name:            d.Name,
			HomeBase:        d.HomeBase,
			CurrentLocation: d.CurrentLocation,
			HoursUsed:       d.HoursUsed,
			OverWarning:     dp.OverWarning,
			HOSPct:          dp.HOSPct,
			HourlyRate:      dp.HourlyRate,
			Route:           NewRouteResponse(dp.Route),
			Gaps:            NewSegmentResponses(dp.Gaps),
		})
	}
	for _, u := range p.Result.Unassigned {
		res.Unassigned = append(res.Unassigned, UnassignedResponse(u))
	}
	for _, s := range p.Schedules {
		res.Schedules = append(res.Schedules, NewScheduleResponse(s))
	}
	return res
}
