package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/telemetry"
)

// Dispatcher chains enrichment, search, assignment and scheduling for one
// planning request. It is stateless apart from the shared DistanceCache.
type Dispatcher struct {
	cache      *DistanceCache
	enricher   *LoadEnricher
	enumerator *RouteEnumerator
	hos        *HOSSimulator
	log        zerolog.Logger
	metrics    *telemetry.Collectors
}

func NewDispatcher(
	cache *DistanceCache,
	enrich EnrichOptions,
	hos HOSOptions,
	log zerolog.Logger,
	metrics *telemetry.Collectors,
) *Dispatcher {
	return &Dispatcher{
		cache:      cache,
		enricher:   NewLoadEnricher(cache, enrich, log),
		enumerator: NewRouteEnumerator(log, metrics),
		hos:        NewHOSSimulator(hos, log),
		log:        log,
		metrics:    metrics,
	}
}

func (d *Dispatcher) Cache() *DistanceCache { return d.cache }

func (d *Dispatcher) HOSOptions() HOSOptions { return d.hos.Options() }

type RoutePlanRequest struct {
	Loads              []domain.Load
	Start              string
	End                string
	LoadedPctThreshold float64
	MaxChainLength     int
	MaxNodes           int
	Limit              int
	// SearchTimeout bounds the search only, not distance resolution.
	SearchTimeout time.Duration
}

type RoutePlan struct {
	Loads    []domain.Load
	Result   *EnumerateResult
	Excluded []ExcludedLoad
	Warnings []string
}

// PlanRoutes enriches the loads and enumerates qualifying single-vehicle routes.
func (d *Dispatcher) PlanRoutes(ctx context.Context, req RoutePlanRequest) (*RoutePlan, error) {
	enr, err := d.enricher.Enrich(ctx, EnrichRequest{Loads: req.Loads, Start: req.Start, End: req.End})
	if err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}

	// A required load that could not be enriched can never be on a route.
	var missing []int
	for _, x := range enr.Excluded {
		if x.Required {
			missing = append(missing, x.LoadID)
		}
	}
	if len(missing) > 0 {
		warnings := append(enr.Warnings(), fmt.Sprintf("required loads %v have no known loaded distance; no route can include them", missing))
		return &RoutePlan{
			Loads:    enr.Loads,
			Result:   &EnumerateResult{Routes: []domain.Route{}, NoRoutesMetThreshold: true, StopReason: StopComplete},
			Excluded: enr.Excluded,
			Warnings: warnings,
		}, nil
	}

	searchCtx := ctx
	if req.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, req.SearchTimeout)
		defer cancel()
	}

	res, err := d.enumerator.Enumerate(searchCtx, EnumerateRequest{
		Loads:              enr.Loads,
		Start:              enr.Start,
		End:                enr.End,
		LoadedPctThreshold: req.LoadedPctThreshold,
		MaxChainLength:     req.MaxChainLength,
		MaxNodes:           req.MaxNodes,
		Limit:              req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}

	warnings := enr.Warnings()
	if res.Truncated {
		warnings = append(warnings, fmt.Sprintf("route search stopped early (%s) after %d nodes", res.StopReason, res.NodesExplored))
	}
	return &RoutePlan{Loads: enr.Loads, Result: res, Excluded: enr.Excluded, Warnings: warnings}, nil
}

type EvaluateRequest struct {
	Loads              []domain.Load
	Start              string
	End                string
	LoadIDs            []int
	LoadedPctThreshold float64
}

type Evaluation struct {
	Route          domain.Route
	MeetsThreshold bool
	Gaps           []domain.Segment
	Warnings       []string
}

// EvaluateRoute computes the metrics of one caller-chosen load ordering.
func (d *Dispatcher) EvaluateRoute(ctx context.Context, req EvaluateRequest) (*Evaluation, error) {
	enr, err := d.enricher.Enrich(ctx, EnrichRequest{Loads: req.Loads, Start: req.Start, End: req.End})
	if err != nil {
		return nil, fmt.Errorf("evaluate route: %w", err)
	}

	route, ok, err := EvaluateSequence(enr, enr.Loads, enr.Start, enr.End, req.LoadIDs, req.LoadedPctThreshold)
	if err != nil {
		return nil, fmt.Errorf("evaluate route: %w", err)
	}
	return &Evaluation{
		Route:          route,
		MeetsThreshold: ok,
		Gaps:           domain.GapSegments(route.Segments),
		Warnings:       enr.Warnings(),
	}, nil
}

type FleetRequest struct {
	Loads           []domain.Load
	Base            string
	Drivers         []DriverSeed
	HardHourCap     float64
	WarningHourCap  float64
	AverageSpeedKmh float64
	LoadUnloadHours float64
	MaxDrivers      int
	Strategy        string
	// ScheduleFrom, when set, runs every driver's plan through the HOS
	// simulator starting on that date.
	ScheduleFrom time.Time
}

type FleetPlan struct {
	Loads     []domain.Load
	Result    *AssignResult
	Schedules []*SimulateResult
	Warnings  []string
}

// AssignFleet enriches the loads and packs them across drivers. Loads the
// enricher had to exclude are reported as unassigned.
func (d *Dispatcher) AssignFleet(ctx context.Context, req FleetRequest) (*FleetPlan, error) {
	evaluator, err := EvaluatorByName(req.Strategy)
	if err != nil {
		return nil, fmt.Errorf("assign fleet: %w", err)
	}

	var origins, homes []string
	for _, s := range req.Drivers {
		origins = append(origins, s.CurrentLocation, s.HomeBase)
		homes = append(homes, s.HomeBase)
	}

	enr, err := d.enricher.Enrich(ctx, EnrichRequest{
		Loads:             req.Loads,
		Start:             req.Base,
		End:               req.Base,
		ExtraOrigins:      origins,
		ExtraDestinations: homes,
	})
	if err != nil {
		return nil, fmt.Errorf("assign fleet: %w", err)
	}

	assigner := NewMultiDriverAssigner(evaluator, d.log, d.metrics)
	res, err := assigner.Assign(ctx, enr, AssignRequest{
		Loads:           enr.Loads,
		Base:            req.Base,
		Drivers:         req.Drivers,
		HardHourCap:     req.HardHourCap,
		WarningHourCap:  req.WarningHourCap,
		AverageSpeedKmh: req.AverageSpeedKmh,
		LoadUnloadHours: req.LoadUnloadHours,
		MaxDrivers:      req.MaxDrivers,
	})
	if err != nil {
		return nil, fmt.Errorf("assign fleet: %w", err)
	}

	for _, x := range enr.Excluded {
		res.Unassigned = append(res.Unassigned, UnassignedLoad{LoadID: x.LoadID, Reason: ReasonUnknownDistance})
		d.metrics.Unassigned(ReasonUnknownDistance)
	}
	res.Summary.UnassignedLoads = len(res.Unassigned)

	plan := &FleetPlan{
		Loads:    enr.Loads,
		Result:   res,
		Warnings: append(enr.Report.Warnings(), res.Warnings...),
	}

	if !req.ScheduleFrom.IsZero() {
		cycleCap := d.hos.Options().CycleCap
		for _, p := range res.Drivers {
			if len(p.Driver.LoadIDs) == 0 {
				continue
			}
			// Seeded drivers come first, numbered from 1 in request order.
			var state DriverState
			if i := p.Driver.ID - 1; i < len(req.Drivers) {
				state.CycleHoursUsed = math.Min(req.Drivers[i].HoursUsed, cycleCap)
			}
			sched, err := d.hos.Simulate(ctx, SimulateRequest{
				DriverID:  p.Driver.ID,
				StartDate: req.ScheduleFrom,
				Items:     PlanFromSegments(p.Driver.Segments, req.AverageSpeedKmh),
				State:     state,
			})
			if err != nil {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf("driver %d: schedule: %v", p.Driver.ID, err))
				continue
			}
			plan.Schedules = append(plan.Schedules, sched)
		}
	}

	return plan, nil
}

// Schedule runs one driver's plan through the HOS simulator.
func (d *Dispatcher) Schedule(ctx context.Context, req SimulateRequest) (*SimulateResult, error) {
	res, err := d.hos.Simulate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	return res, nil
}
