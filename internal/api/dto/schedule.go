package dto

import (
	"fmt"
	"time"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/services"
)

const DateLayout = "2006-01-02"

type ScheduleItemRequest struct {
	LoadID     int     `json:"load_id"`
	DriveHours float64 `json:"drive_hours"`
	// Date is the earliest day the load may be worked.
	Date string `json:"date"`
}

type ScheduleRequest struct {
	DriverID       int                   `json:"driver_id"`
	StartDate      string                `json:"start_date"`
	Items          []ScheduleItemRequest `json:"items"`
	CycleHoursUsed float64               `json:"cycle_hours_used"`
	HoursUsedToday float64               `json:"hours_used_today"`
}

// ToService parses the request dates.
func (r ScheduleRequest) ToService() (services.SimulateRequest, error) {
	start, err := ParseDate("start_date", r.StartDate)
	if err != nil {
		return services.SimulateRequest{}, err
	}

	items := make([]services.PlanItem, 0, len(r.Items))
	for i, it := range r.Items {
		nb, err := ParseDate(fmt.Sprintf("items[%d].date", i), it.Date)
		if err != nil {
			return services.SimulateRequest{}, err
		}
		items = append(items, services.PlanItem{LoadID: it.LoadID, DriveHours: it.DriveHours, NotBefore: nb})
	}

	return services.SimulateRequest{
		DriverID:  r.DriverID,
		StartDate: start,
		Items:     items,
		State: services.DriverState{
			CycleHoursUsed: r.CycleHoursUsed,
			HoursUsedToday: r.HoursUsedToday,
		},
	}, nil
}

// ParseDate accepts "" (zero time) or YYYY-MM-DD.
func ParseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, domain.ParamError(field, "want YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

type DailyScheduleResponse struct {
	Date      string  `json:"date"`
	LoadIDs   []int   `json:"load_ids"`
	HoursUsed float64 `json:"hours_used"`
	Reset     bool    `json:"reset"`
	RestHours float64 `json:"rest_hours,omitempty"`
}

type ScheduleResponse struct {
	DriverID   int                     `json:"driver_id"`
	Schedule   []DailyScheduleResponse `json:"schedule"`
	TotalHours float64                 `json:"total_hours"`
	ResetDates []string                `json:"reset_dates"`
	EndDate    string                  `json:"end_date,omitempty"`
}

func NewScheduleResponse(r *services.SimulateResult) ScheduleResponse {
	res := ScheduleResponse{
		DriverID:   r.DriverID,
		Schedule:   make([]DailyScheduleResponse, 0, len(r.Schedule)),
		TotalHours: r.TotalHours,
		ResetDates: make([]string, 0, len(r.ResetDates)),
	}
	for _, d := range r.Schedule {
		res.Schedule = append(res.Schedule, DailyScheduleResponse{
			Date:      d.Date.Format(DateLayout),
			LoadIDs:   nonNilInts(d.LoadIDs),
			HoursUsed: d.HoursUsed,
			Reset:     d.Reset,
			RestHours: d.RestHours,
		})
	}
	for _, t := range r.ResetDates {
		res.ResetDates = append(res.ResetDates, t.Format(DateLayout))
	}
	if !r.EndDate.IsZero() {
		res.EndDate = r.EndDate.Format(DateLayout)
	}
	return res
}
