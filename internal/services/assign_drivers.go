package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/obs"
	"freight-dispatch-service/internal/platform/telemetry"
)

const (
	ReasonUnknownDistance = "unknown_distance"
	ReasonExceedsHardCap  = "exceeds_hard_cap"
	ReasonFleetExhausted  = "fleet_exhausted"
)

const hoursEpsilon = 1e-9

// Candidate is one driver's projected outcome if it took the load.
type Candidate struct {
	Driver         *domain.Driver
	Order          int
	EmptyKm        float64
	LoadedKm       float64
	IncrementHours float64
	ProjectedHours float64
	ReturnKm       float64
	Overtime       float64
}

// CandidateEvaluator ranks feasible candidates for a load.
type CandidateEvaluator interface {
	Name() string
	// Better reports whether a should be chosen over b.
	Better(a, b Candidate) bool
}

// LowestOvertime prefers the driver that goes least past the warning cap,
// then the shortest empty move, then the earliest driver.
type LowestOvertime struct{}

func (LowestOvertime) Name() string { return "lowest_overtime" }

func (LowestOvertime) Better(a, b Candidate) bool {
	if a.Overtime != b.Overtime {
		return a.Overtime < b.Overtime
	}
	if a.EmptyKm != b.EmptyKm {
		return a.EmptyKm < b.EmptyKm
	}
	return a.Order < b.Order
}

// NearestFirst prefers the driver closest to the pickup.
type NearestFirst struct{}

func (NearestFirst) Name() string { return "nearest_first" }

func (NearestFirst) Better(a, b Candidate) bool {
	if a.EmptyKm != b.EmptyKm {
		return a.EmptyKm < b.EmptyKm
	}
	if a.Overtime != b.Overtime {
		return a.Overtime < b.Overtime
	}
	return a.Order < b.Order
}

func EvaluatorByName(name string) (CandidateEvaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lowest_overtime":
		return LowestOvertime{}, nil
	case "nearest_first":
		return NearestFirst{}, nil
	default:
		return nil, domain.ParamError("strategy", "unknown strategy %q", name)
	}
}

// DriverSeed describes a driver that already exists before planning.
// HomeBase defaults to the request base, CurrentLocation to HomeBase.
type DriverSeed struct {
	Name            string
	HomeBase        string
	CurrentLocation string
	HoursUsed       float64
}

type AssignRequest struct {
	// Enriched loads, processed in this order.
	Loads           []domain.Load
	Base            string
	Drivers         []DriverSeed
	HardHourCap     float64
	WarningHourCap  float64
	AverageSpeedKmh float64
	LoadUnloadHours float64
	// MaxDrivers caps the fleet size; 0 means unlimited.
	MaxDrivers int
}

func (r AssignRequest) Validate() error {
	switch {
	case domain.NormalizeCity(r.Base) == "":
		return domain.ParamError("base_location", "must not be empty")
	case r.HardHourCap <= 0:
		return domain.ParamError("hard_hour_cap", "must be positive, got %v", r.HardHourCap)
	case r.WarningHourCap < 0 || r.WarningHourCap > r.HardHourCap:
		return domain.ParamError("warning_hour_cap", "must be within [0, hard_hour_cap], got %v", r.WarningHourCap)
	case r.AverageSpeedKmh <= 0:
		return domain.ParamError("average_speed_kmh", "must be positive, got %v", r.AverageSpeedKmh)
	case r.LoadUnloadHours < 0:
		return domain.ParamError("load_unload_hours", "must not be negative, got %v", r.LoadUnloadHours)
	case r.MaxDrivers < 0:
		return domain.ParamError("max_drivers", "must not be negative, got %d", r.MaxDrivers)
	case r.MaxDrivers > 0 && len(r.Drivers) > r.MaxDrivers:
		return domain.ParamError("drivers", "%d drivers given but max_drivers is %d", len(r.Drivers), r.MaxDrivers)
	}
	for i, d := range r.Drivers {
		if d.HoursUsed < 0 || d.HoursUsed > r.HardHourCap {
			return &domain.ValidationError{
				Field: fmt.Sprintf("drivers[%d].hours_used", i),
				Index: -1,
				Err:   fmt.Errorf("%w: must be within [0, %v]", domain.ErrInvalidParameter, r.HardHourCap),
			}
		}
	}
	return nil
}

type UnassignedLoad struct {
	LoadID int
	Reason string
}

// DriverPlan is one driver's final itinerary with derived metrics.
type DriverPlan struct {
	Driver      *domain.Driver
	Route       domain.Route
	OverWarning bool
	HOSPct      float64
	HourlyRate  float64
	Gaps        []domain.Segment
}

type AssignResult struct {
	Drivers    []DriverPlan
	Unassigned []UnassignedLoad
	Warnings   []string
	Summary    FleetSummary
}

// MultiDriverAssigner packs loads onto a growing pool of drivers.
type MultiDriverAssigner struct {
	evaluator CandidateEvaluator
	log       zerolog.Logger
	metrics   *telemetry.Collectors
}

func NewMultiDriverAssigner(evaluator CandidateEvaluator, log zerolog.Logger, metrics *telemetry.Collectors) *MultiDriverAssigner {
	if evaluator == nil {
		evaluator = LowestOvertime{}
	}
	return &MultiDriverAssigner{evaluator: evaluator, log: log, metrics: metrics}
}

// Assign places each load, in input order, on the best existing driver whose
// hours, including the drive back to its home base, stay within the hard
// cap. When no driver fits, a new one is opened at the base. Loads no driver
// can take are reported as unassigned with a reason. Afterwards every driver
// away from home drives back empty.
func (a *MultiDriverAssigner) Assign(ctx context.Context, legs LegSource, req AssignRequest) (_ *AssignResult, err error) {
	defer obs.Time(ctx, "assign.Assign")(&err)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	base := domain.NormalizeCity(req.Base)
	drivers := make([]*domain.Driver, 0, len(req.Drivers))
	for i, seed := range req.Drivers {
		d := newSeededDriver(i+1, seed, base)
		if err := checkSeedReturn(legs, req, i, d); err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}

	res := &AssignResult{}
	for _, load := range req.Loads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !load.Legs.LoadedKm.Known {
			res.unassign(a, load.ID, ReasonUnknownDistance)
			continue
		}

		best := a.pick(legs, req, drivers, load)
		if best == nil {
			if req.MaxDrivers > 0 && len(drivers) >= req.MaxDrivers {
				res.unassign(a, load.ID, ReasonFleetExhausted)
				continue
			}
			fresh := domain.NewDriver(len(drivers)+1, driverName(len(drivers)+1), base)
			c, why := a.evaluate(legs, req, fresh, len(drivers), load)
			if c == nil {
				res.unassign(a, load.ID, why)
				continue
			}
			drivers = append(drivers, fresh)
			best = c
		}

		book(best, load, req)
		a.log.Debug().
			Int("load_id", load.ID).
			Int("driver_id", best.Driver.ID).
			Float64("hours", best.Driver.HoursUsed).
			Float64("overtime", best.Overtime).
			Msg("load assigned")
	}

	for _, d := range drivers {
		if d.AtHome() {
			continue
		}
		ret := legs.EmptyLeg(d.CurrentLocation, d.HomeBase)
		if !ret.Known {
			res.Warnings = append(res.Warnings, fmt.Sprintf("driver %d: return %q -> %q is unknown and was not added", d.ID, d.CurrentLocation, d.HomeBase))
			continue
		}
		d.Drive(domain.Segment{Kind: domain.SegmentReturn, From: d.CurrentLocation, To: d.HomeBase, Km: ret.Km},
			domain.DriveHours(ret.Km, req.AverageSpeedKmh))
	}

	for _, d := range drivers {
		res.Drivers = append(res.Drivers, planFor(d, req))
	}
	res.Summary = Summarize(res.Drivers, len(res.Unassigned))
	return res, nil
}

// pick evaluates every driver below the hard cap and returns the
// evaluator's favourite, or nil when none can take the load.
func (a *MultiDriverAssigner) pick(legs LegSource, req AssignRequest, drivers []*domain.Driver, load domain.Load) *Candidate {
	var best *Candidate
	for i, d := range drivers {
		if d.HoursUsed+hoursEpsilon >= req.HardHourCap {
			continue
		}
		c, _ := a.evaluate(legs, req, d, i, load)
		if c == nil {
			continue
		}
		if best == nil || a.evaluator.Better(*c, *best) {
			best = c
		}
	}
	return best
}

func (a *MultiDriverAssigner) evaluate(legs LegSource, req AssignRequest, d *domain.Driver, order int, load domain.Load) (*Candidate, string) {
	toPickup := legs.EmptyLeg(d.CurrentLocation, load.PickupCity)
	back := legs.EmptyLeg(load.DropoffCity, d.HomeBase)
	if !toPickup.Known || !back.Known {
		return nil, ReasonUnknownDistance
	}

	inc := domain.DriveHours(toPickup.Km+load.Legs.LoadedKm.Km, req.AverageSpeedKmh) + req.LoadUnloadHours
	projected := d.HoursUsed + inc
	if projected+domain.DriveHours(back.Km, req.AverageSpeedKmh) > req.HardHourCap+hoursEpsilon {
		return nil, ReasonExceedsHardCap
	}

	return &Candidate{
		Driver:         d,
		Order:          order,
		EmptyKm:        toPickup.Km,
		LoadedKm:       load.Legs.LoadedKm.Km,
		IncrementHours: inc,
		ProjectedHours: projected,
		ReturnKm:       back.Km,
		Overtime:       math.Max(0, projected-req.WarningHourCap),
	}, ""
}

func book(c *Candidate, load domain.Load, req AssignRequest) {
	d := c.Driver
	kind := domain.SegmentReload
	if len(d.LoadIDs) == 0 {
		kind = domain.SegmentDeadhead
	}
	d.Drive(domain.Segment{Kind: kind, From: d.CurrentLocation, To: load.PickupCity, Km: c.EmptyKm, LoadID: load.ID},
		domain.DriveHours(c.EmptyKm, req.AverageSpeedKmh))
	d.Drive(domain.Segment{Kind: domain.SegmentLoaded, From: load.PickupCity, To: load.DropoffCity, Km: c.LoadedKm, LoadID: load.ID},
		domain.DriveHours(c.LoadedKm, req.AverageSpeedKmh)+req.LoadUnloadHours)
	d.LoadIDs = append(d.LoadIDs, load.ID)
	d.Revenue += load.Revenue
}

func (r *AssignResult) unassign(a *MultiDriverAssigner, loadID int, reason string) {
	r.Unassigned = append(r.Unassigned, UnassignedLoad{LoadID: loadID, Reason: reason})
	a.metrics.Unassigned(reason)
	a.log.Warn().Int("load_id", loadID).Str("reason", reason).Msg("load unassigned")
}

func newSeededDriver(id int, seed DriverSeed, base string) *domain.Driver {
	home := domain.NormalizeCity(seed.HomeBase)
	if home == "" {
		home = base
	}
	d := domain.NewDriver(id, seed.Name, home)
	if d.Name == "" {
		d.Name = driverName(id)
	}
	if loc := domain.NormalizeCity(seed.CurrentLocation); loc != "" {
		d.CurrentLocation = loc
	}
	d.HoursUsed = seed.HoursUsed
	return d
}

// checkSeedReturn rejects a seeded driver whose drive home alone would take
// it past the hard cap. An unknown return leg is left to the final warning.
func checkSeedReturn(legs LegSource, req AssignRequest, i int, d *domain.Driver) error {
	if d.AtHome() {
		return nil
	}
	ret := legs.EmptyLeg(d.CurrentLocation, d.HomeBase)
	if !ret.Known {
		return nil
	}
	home := domain.DriveHours(ret.Km, req.AverageSpeedKmh)
	if d.HoursUsed+home > req.HardHourCap+hoursEpsilon {
		return &domain.ValidationError{
			Field: fmt.Sprintf("drivers[%d].hours_used", i),
			Index: -1,
			Err: fmt.Errorf("%w: %v hours used plus %.2f hours back to %s exceeds hard_hour_cap %v",
				domain.ErrInvalidParameter, d.HoursUsed, home, d.HomeBase, req.HardHourCap),
		}
	}
	return nil
}

func driverName(id int) string { return fmt.Sprintf("Driver %d", id) }

func planFor(d *domain.Driver, req AssignRequest) DriverPlan {
	return DriverPlan{
		Driver:      d,
		Route:       domain.BuildRoute(d.LoadIDs, d.Segments, d.Revenue),
		OverWarning: d.HoursUsed > req.WarningHourCap+hoursEpsilon,
		HOSPct:      d.HoursUsed / req.HardHourCap,
		HourlyRate:  d.HourlyRate(),
		Gaps:        domain.GapSegments(d.Segments),
	}
}
