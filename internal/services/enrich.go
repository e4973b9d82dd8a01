package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/obs"
)

// UnknownDistancePolicy decides what an unresolvable empty leg is worth.
type UnknownDistancePolicy string

const (
	// Legs stay unknown; routes and assignments that need them are skipped.
	PolicyExclude UnknownDistancePolicy = "exclude"
	// Unknown empty legs are replaced by a fixed conservative distance.
	PolicyPenalty UnknownDistancePolicy = "penalty"
	// Unknown legs count as 0 km. Overstates loaded %; opt-in only.
	PolicyZero UnknownDistancePolicy = "zero"
)

const ReasonUnknownLoadedDistance = "unknown_loaded_distance"

type EnrichOptions struct {
	Policy            UnknownDistancePolicy
	PenaltyKm         float64
	SameCityZeroEmpty bool
}

func (o EnrichOptions) Validate() error {
	switch o.Policy {
	case PolicyExclude, PolicyZero:
	case PolicyPenalty:
		if o.PenaltyKm <= 0 {
			return domain.ParamError("unknown_distance_penalty_km", "must be positive with the penalty policy, got %v", o.PenaltyKm)
		}
	default:
		return domain.ParamError("unknown_distance_policy", "unsupported policy %q", o.Policy)
	}
	return nil
}

// LegSource answers empty-leg distances between canonical cities.
type LegSource interface {
	EmptyLeg(from, to string) domain.Distance
}

type EnrichRequest struct {
	Loads []domain.Load
	Start string
	// End defaults to Start when blank.
	End string
	// ExtraOrigins are additional places a vehicle may start from
	// (driver locations); legs to every pickup and to every extra
	// destination are resolved for them.
	ExtraOrigins []string
	// ExtraDestinations are additional places a vehicle may finish at
	// (driver home bases); legs from every dropoff are resolved to them.
	ExtraDestinations []string
}

type ExcludedLoad struct {
	LoadID   int
	Required bool
	Reason   string
}

// Enrichment is the outcome of one LoadEnricher run.
type Enrichment struct {
	Start    string
	End      string
	Loads    []domain.Load
	Excluded []ExcludedLoad
	Report   ResolveReport

	opts  EnrichOptions
	cache *DistanceCache
}

// EmptyLeg returns the distance of an unloaded move with the unknown
// distance policy applied.
func (e *Enrichment) EmptyLeg(from, to string) domain.Distance {
	from, to = domain.NormalizeCity(from), domain.NormalizeCity(to)
	if e.opts.SameCityZeroEmpty && from != "" && from == to {
		return domain.KnownKm(0)
	}
	d, ok := e.cache.Lookup(from, to)
	if ok && d.Known {
		return d
	}
	switch e.opts.Policy {
	case PolicyPenalty:
		return domain.EstimatedKm(e.opts.PenaltyKm)
	case PolicyZero:
		return domain.EstimatedKm(0)
	default:
		return domain.UnknownDistance
	}
}

func (e *Enrichment) loadedLeg(from, to string) domain.Distance {
	d, ok := e.cache.Lookup(from, to)
	if ok && d.Known {
		return d
	}
	if e.opts.Policy == PolicyZero {
		return domain.EstimatedKm(0)
	}
	return domain.UnknownDistance
}

// ByID indexes the enriched loads.
func (e *Enrichment) ByID() map[int]domain.Load {
	out := make(map[int]domain.Load, len(e.Loads))
	for _, l := range e.Loads {
		out[l.ID] = l
	}
	return out
}

// Warnings lists batch failures and excluded loads for the caller.
func (e *Enrichment) Warnings() []string {
	w := e.Report.Warnings()
	for _, x := range e.Excluded {
		w = append(w, fmt.Sprintf("load %d excluded: %s", x.LoadID, x.Reason))
	}
	return w
}

// LoadEnricher attaches legs, reload options and revenue to raw loads.
type LoadEnricher struct {
	cache *DistanceCache
	opts  EnrichOptions
	log   zerolog.Logger
}

func NewLoadEnricher(cache *DistanceCache, opts EnrichOptions, log zerolog.Logger) *LoadEnricher {
	if opts.Policy == "" {
		opts.Policy = PolicyExclude
	}
	return &LoadEnricher{cache: cache, opts: opts, log: log}
}

func (le *LoadEnricher) Options() EnrichOptions { return le.opts }

// Enrich validates the loads, resolves every city pair any later stage could
// read in one batched pass, then fills the legs. The caller's slice is not
// modified. Loads whose loaded distance is unknown are moved to Excluded
// unless the zero policy is in force.
func (le *LoadEnricher) Enrich(ctx context.Context, req EnrichRequest) (_ *Enrichment, err error) {
	defer obs.Time(ctx, "enrich.Enrich")(&err)

	if err := le.opts.Validate(); err != nil {
		return nil, err
	}

	start := domain.NormalizeCity(req.Start)
	if start == "" {
		return nil, domain.ParamError("start_location", "must not be empty")
	}
	end := domain.NormalizeCity(req.End)
	if strings.TrimSpace(req.End) == "" {
		end = start
	}

	loads := make([]domain.Load, len(req.Loads))
	copy(loads, req.Loads)
	domain.AssignIDs(loads)
	if err := domain.ValidateLoads(loads); err != nil {
		return nil, err
	}
	for i := range loads {
		loads[i].PickupCity = domain.NormalizeCity(loads[i].PickupCity)
		loads[i].DropoffCity = domain.NormalizeCity(loads[i].DropoffCity)
		loads[i].Revenue = loads[i].ComputeRevenue()
	}

	report, err := le.cache.Resolve(ctx, le.pairs(loads, start, end, req))
	if err != nil {
		return nil, fmt.Errorf("enrich: resolve distances: %w", err)
	}

	out := &Enrichment{Start: start, End: end, Report: report, opts: le.opts, cache: le.cache}

	kept := make([]domain.Load, 0, len(loads))
	for _, l := range loads {
		l.Legs = domain.LoadLegs{
			DeadheadKm: out.EmptyLeg(start, l.PickupCity),
			LoadedKm:   out.loadedLeg(l.PickupCity, l.DropoffCity),
			ReturnKm:   out.EmptyLeg(l.DropoffCity, end),
		}
		if !l.Legs.LoadedKm.Known {
			out.Excluded = append(out.Excluded, ExcludedLoad{LoadID: l.ID, Required: l.Required, Reason: ReasonUnknownLoadedDistance})
			le.log.Warn().Int("load_id", l.ID).Str("pickup", l.PickupCity).Str("dropoff", l.DropoffCity).Msg("load excluded: loaded distance unknown")
			continue
		}
		kept = append(kept, l)
	}

	for i := range kept {
		kept[i].ReloadOptions = make(map[int]domain.ReloadOption, len(kept)-1)
		for j := range kept {
			if i == j {
				continue
			}
			kept[i].ReloadOptions[kept[j].ID] = domain.ReloadOption{
				LinkKm:       out.EmptyLeg(kept[i].DropoffCity, kept[j].PickupCity),
				NextLoadedKm: kept[j].Legs.LoadedKm,
			}
		}
	}
	out.Loads = kept

	le.log.Debug().
		Int("loads", len(kept)).
		Int("excluded", len(out.Excluded)).
		Int("pairs", report.Requested).
		Msg("loads enriched")

	return out, nil
}

// pairs lists every directional lookup the planners may need.
func (le *LoadEnricher) pairs(loads []domain.Load, start, end string, req EnrichRequest) []Pair {
	var out []Pair
	add := func(a, b string) {
		a, b = domain.NormalizeCity(a), domain.NormalizeCity(b)
		if a == "" || b == "" {
			return
		}
		if le.opts.SameCityZeroEmpty && a == b {
			return
		}
		out = append(out, Pair{a, b})
	}

	origins := append([]string{start}, req.ExtraOrigins...)
	ends := append([]string{end}, req.ExtraDestinations...)

	for i, l := range loads {
		for _, o := range origins {
			add(o, l.PickupCity)
		}
		// loaded legs are never same-city shortcuts
		out = append(out, Pair{l.PickupCity, l.DropoffCity})
		for _, e := range ends {
			add(l.DropoffCity, e)
		}
		for j, next := range loads {
			if i != j {
				add(l.DropoffCity, next.PickupCity)
			}
		}
	}
	for _, o := range req.ExtraOrigins {
		for _, e := range ends {
			add(o, e)
		}
	}
	return out
}
