package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/obs"
)

// ErrLoadExceedsDailyCap rejects a load that cannot fit a fresh day. The
// cycle cap is never below the daily cap, so such a load is the only one
// that can never be scheduled.
var ErrLoadExceedsDailyCap = errors.New("load work hours exceed the daily cap")

type HOSOptions struct {
	DailyCap        float64
	CycleCap        float64
	ResetHours      float64
	LoadUnloadHours float64
}

// DefaultHOSOptions: 14h day, 70h cycle, 36h reset, 3h load/unload per stop.
func DefaultHOSOptions() HOSOptions {
	return HOSOptions{DailyCap: 14, CycleCap: 70, ResetHours: 36, LoadUnloadHours: 3}
}

func (o HOSOptions) Validate() error {
	switch {
	case o.DailyCap <= 0:
		return domain.ParamError("daily_cap", "must be positive, got %v", o.DailyCap)
	case o.CycleCap < o.DailyCap:
		return domain.ParamError("cycle_cap", "must be at least the daily cap, got %v", o.CycleCap)
	case o.ResetHours <= 0:
		return domain.ParamError("reset_hours", "must be positive, got %v", o.ResetHours)
	case o.LoadUnloadHours < 0:
		return domain.ParamError("load_unload_hours", "must not be negative, got %v", o.LoadUnloadHours)
	}
	return nil
}

// PlanItem is one load in a driver's ordered plan. A non-zero NotBefore
// keeps the load from being worked before that date.
type PlanItem struct {
	LoadID     int
	DriveHours float64
	NotBefore  time.Time
}

// DriverState seeds the simulation with hours already worked.
type DriverState struct {
	CycleHoursUsed float64
	HoursUsedToday float64
}

type SimulateRequest struct {
	DriverID int
	// StartDate defaults to the first item's NotBefore.
	StartDate time.Time
	Items     []PlanItem
	State     DriverState
}

type SimulateResult struct {
	DriverID   int
	Schedule   []domain.DailySchedule
	TotalHours float64
	// ResetDates holds the date of each reset entry: the day after the last
	// worked day, or the current day when nothing was worked on it yet. It is
	// not the worked day on which the cycle ran out.
	ResetDates []time.Time
	EndDate    time.Time
}

// HOSSimulator lays a driver's plan out over calendar days.
type HOSSimulator struct {
	opts HOSOptions
	log  zerolog.Logger
}

func NewHOSSimulator(opts HOSOptions, log zerolog.Logger) *HOSSimulator {
	return &HOSSimulator{opts: opts, log: log}
}

func (h *HOSSimulator) Options() HOSOptions { return h.opts }

// Simulate walks the plan day by day. A load that does not fit the rest of
// the day moves to the next day. A load that would push the cycle past its
// cap first triggers a reset: the current day is closed, a reset entry is
// emitted for the following day and work resumes once the reset has run
// its full length. Daily and cycle hours therefore never exceed their caps.
func (h *HOSSimulator) Simulate(ctx context.Context, req SimulateRequest) (_ *SimulateResult, err error) {
	defer obs.Time(ctx, "hos.Simulate")(&err)

	if err := h.validate(req); err != nil {
		return nil, err
	}

	start := req.StartDate
	if start.IsZero() && len(req.Items) > 0 {
		start = req.Items[0].NotBefore
	}
	if start.IsZero() {
		return nil, domain.ParamError("start_date", "required when the first item has no date")
	}

	sim := &hosRun{
		opts:      h.opts,
		day:       dateOf(start),
		dayHours:  req.State.HoursUsedToday,
		cycle:     req.State.CycleHoursUsed,
		resetDays: int(math.Ceil(h.opts.ResetHours / 24)),
	}

	for i := 0; i < len(req.Items); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sim.step(req.Items[i]) {
			i++
		}
	}
	sim.closeDay()

	res := &SimulateResult{
		DriverID:   req.DriverID,
		Schedule:   sim.schedule,
		TotalHours: round2(sim.total),
		ResetDates: sim.resets,
	}
	if n := len(sim.schedule); n > 0 {
		res.EndDate = sim.schedule[n-1].Date
	}

	h.log.Debug().
		Int("driver_id", req.DriverID).
		Int("days", len(res.Schedule)).
		Int("resets", len(res.ResetDates)).
		Float64("hours", res.TotalHours).
		Msg("hos schedule built")

	return res, nil
}

func (h *HOSSimulator) validate(req SimulateRequest) error {
	if err := h.opts.Validate(); err != nil {
		return err
	}
	if req.State.CycleHoursUsed < 0 || req.State.CycleHoursUsed > h.opts.CycleCap {
		return domain.ParamError("cycle_hours_used", "must be within [0, %v], got %v", h.opts.CycleCap, req.State.CycleHoursUsed)
	}
	if req.State.HoursUsedToday < 0 || req.State.HoursUsedToday > h.opts.DailyCap {
		return domain.ParamError("hours_used_today", "must be within [0, %v], got %v", h.opts.DailyCap, req.State.HoursUsedToday)
	}

	var errs []error
	for i, it := range req.Items {
		work := it.DriveHours + h.opts.LoadUnloadHours
		field := fmt.Sprintf("items[%d].drive_hours", i)
		switch {
		case it.DriveHours < 0:
			errs = append(errs, &domain.ValidationError{Field: field, Index: -1, Err: domain.ErrInvalidParameter})
		case work > h.opts.DailyCap+hoursEpsilon:
			errs = append(errs, &domain.ValidationError{Field: field, Index: -1, Err: fmt.Errorf("load %d: %w", it.LoadID, ErrLoadExceedsDailyCap)})
		}
	}
	return errors.Join(errs...)
}

// hosRun is the state machine of one simulation.
type hosRun struct {
	opts      HOSOptions
	resetDays int

	day      time.Time
	dayHours float64
	dayLoads []int
	cycle    float64
	total    float64

	schedule []domain.DailySchedule
	resets   []time.Time
}

// step tries to place one item and reports whether it was consumed.
func (r *hosRun) step(it PlanItem) bool {
	work := it.DriveHours + r.opts.LoadUnloadHours

	if !it.NotBefore.IsZero() {
		if nb := dateOf(it.NotBefore); nb.After(r.day) {
			r.closeDay()
			r.startDay(nb)
			return false
		}
	}

	if r.cycle+work > r.opts.CycleCap+hoursEpsilon {
		r.rest()
		return false
	}

	if r.dayHours+work > r.opts.DailyCap+hoursEpsilon {
		r.closeDay()
		r.startDay(r.day.AddDate(0, 0, 1))
		return false
	}

	r.dayHours += work
	r.cycle += work
	r.total += work
	r.dayLoads = append(r.dayLoads, it.LoadID)
	return true
}

// rest closes the current day and inserts a reset block.
func (r *hosRun) rest() {
	resetDay := r.day
	if r.dayHours > 0 {
		resetDay = r.day.AddDate(0, 0, 1)
	}
	r.closeDay()

	r.schedule = append(r.schedule, domain.DailySchedule{
		Date:      resetDay,
		LoadIDs:   []int{},
		Reset:     true,
		RestHours: r.opts.ResetHours,
	})
	r.resets = append(r.resets, resetDay)
	r.cycle = 0
	r.startDay(resetDay.AddDate(0, 0, r.resetDays))
}

// closeDay emits the current day if any load was worked on it.
func (r *hosRun) closeDay() {
	if len(r.dayLoads) == 0 {
		return
	}
	r.schedule = append(r.schedule, domain.DailySchedule{
		Date:      r.day,
		LoadIDs:   r.dayLoads,
		HoursUsed: round2(r.dayHours),
	})
	r.dayLoads = nil
}

func (r *hosRun) startDay(d time.Time) {
	r.day = d
	r.dayHours = 0
	r.dayLoads = nil
}

// PlanFromSegments turns an itinerary into HOS plan items. Empty km driven
// before a load is charged to that load; a trailing return is charged to
// the last load.
func PlanFromSegments(segments []domain.Segment, speedKmh float64) []PlanItem {
	var items []PlanItem
	pendingEmpty := 0.0
	for _, s := range segments {
		if s.Empty() {
			pendingEmpty += s.Km
			continue
		}
		items = append(items, PlanItem{
			LoadID:     s.LoadID,
			DriveHours: domain.DriveHours(pendingEmpty+s.Km, speedKmh),
		})
		pendingEmpty = 0
	}
	if len(items) > 0 && pendingEmpty > 0 {
		items[len(items)-1].DriveHours += domain.DriveHours(pendingEmpty, speedKmh)
	}
	return items
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
