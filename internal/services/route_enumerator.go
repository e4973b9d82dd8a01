package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/obs"
	"freight-dispatch-service/internal/platform/telemetry"
)

const ctxCheckEvery = 256

type StopReason string

const (
	StopComplete   StopReason = "complete"
	StopNodeBudget StopReason = "node_budget"
	StopDeadline   StopReason = "deadline"
)

type EnumerateRequest struct {
	// Enriched loads; legs and reload options must be filled.
	Loads              []domain.Load
	Start              string
	End                string
	LoadedPctThreshold float64
	MaxChainLength     int
	// MaxNodes bounds the search; 0 means unbounded.
	MaxNodes int
	// Limit caps the number of routes returned; 0 returns all.
	Limit int
}

func (r EnumerateRequest) Validate() error {
	if r.LoadedPctThreshold < 0 || r.LoadedPctThreshold > 1 {
		return domain.ParamError("loaded_pct_threshold", "must be within [0, 1], got %v", r.LoadedPctThreshold)
	}
	if r.MaxChainLength < 1 {
		return domain.ParamError("max_chain_length", "must be at least 1, got %d", r.MaxChainLength)
	}
	if r.MaxNodes < 0 {
		return domain.ParamError("max_search_nodes", "must not be negative, got %d", r.MaxNodes)
	}
	if r.Limit < 0 {
		return domain.ParamError("limit", "must not be negative, got %d", r.Limit)
	}
	return nil
}

// EnumerateResult holds the ranked routes of one search.
// Truncated is set when the node budget or the deadline stopped the search
// early; Routes then holds what was found up to that point.
type EnumerateResult struct {
	Routes               []domain.Route
	NoRoutesMetThreshold bool
	NodesExplored        int
	Truncated            bool
	StopReason           StopReason
	TotalFound           int
}

// RouteEnumerator finds every single-vehicle route through a subset and
// ordering of loads that reaches the loaded-percentage threshold.
type RouteEnumerator struct {
	log     zerolog.Logger
	metrics *telemetry.Collectors
}

func NewRouteEnumerator(log zerolog.Logger, metrics *telemetry.Collectors) *RouteEnumerator {
	return &RouteEnumerator{log: log, metrics: metrics}
}

// Enumerate runs a depth-first backtracking search over load orderings.
//
// A path starts with a load whose deadhead is known and grows only along
// known reload links. Every non-empty path with a known return leg is a
// candidate route. Branches are cut when the chain is full, when even adding
// the longest remaining loads with no extra empty km cannot reach the
// threshold, or when too few slots remain for the missing required loads.
//
// Results are ordered by loaded % desc, revenue desc, fewer loads, then ids.
func (re *RouteEnumerator) Enumerate(ctx context.Context, req EnumerateRequest) (_ *EnumerateResult, err error) {
	defer obs.Time(ctx, "routes.Enumerate")(&err)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	s, err := newSearch(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.feasible() {
		s.extend()
	}

	routes := s.routes
	sortRoutes(routes)
	total := len(routes)
	if req.Limit > 0 && len(routes) > req.Limit {
		routes = routes[:req.Limit]
	}

	res := &EnumerateResult{
		Routes:               routes,
		NoRoutesMetThreshold: total == 0,
		NodesExplored:        s.nodes,
		Truncated:            s.stop != StopComplete,
		StopReason:           s.stop,
		TotalFound:           total,
	}

	re.metrics.RouteSearch(s.nodes, total)
	ev := re.log.Debug()
	if res.Truncated {
		ev = re.log.Warn()
	}
	ev.Int("loads", len(req.Loads)).
		Int("nodes", s.nodes).
		Int("routes", total).
		Str("stop", string(s.stop)).
		Msg("route search finished")

	return res, nil
}

// search is the mutable state of one enumeration. Path, segments and the
// running totals are pushed and popped together.
type search struct {
	ctx   context.Context
	req   EnumerateRequest
	loads []domain.Load
	start string
	end   string

	byLoaded []int // load indices, longest loaded leg first
	required []bool

	path     []int
	used     []bool
	segments []domain.Segment
	loadedKm float64
	emptyKm  float64
	revenue  float64
	missing  int

	nodes  int
	stop   StopReason
	routes []domain.Route
}

func newSearch(ctx context.Context, req EnumerateRequest) (*search, error) {
	s := &search{
		ctx:      ctx,
		req:      req,
		loads:    req.Loads,
		start:    domain.NormalizeCity(req.Start),
		end:      domain.NormalizeCity(req.End),
		required: make([]bool, len(req.Loads)),
		used:     make([]bool, len(req.Loads)),
		stop:     StopComplete,
	}

	seen := make(map[int]struct{}, len(req.Loads))
	for i, l := range req.Loads {
		if _, dup := seen[l.ID]; dup {
			return nil, &domain.ValidationError{Field: "id", Index: i, Err: domain.ErrDuplicateLoadID}
		}
		seen[l.ID] = struct{}{}
		if l.Required {
			s.required[i] = true
			s.missing++
		}
		s.byLoaded = append(s.byLoaded, i)
	}
	sort.SliceStable(s.byLoaded, func(a, b int) bool {
		return s.loads[s.byLoaded[a]].Legs.LoadedKm.Km > s.loads[s.byLoaded[b]].Legs.LoadedKm.Km
	})
	return s, nil
}

// feasible reports whether the required set can fit in a chain at all.
func (s *search) feasible() bool {
	return s.missing <= s.req.MaxChainLength
}

func (s *search) extend() {
	for i := range s.loads {
		if s.used[i] || s.halted() {
			continue
		}

		next := s.loads[i]
		var link domain.Distance
		var seg domain.Segment
		if len(s.path) == 0 {
			link = next.Legs.DeadheadKm
			seg = domain.Segment{Kind: domain.SegmentDeadhead, From: s.start, To: next.PickupCity, LoadID: next.ID}
		} else {
			last := s.loads[s.path[len(s.path)-1]]
			opt, ok := last.ReloadOptions[next.ID]
			if !ok {
				continue
			}
			link = opt.LinkKm
			seg = domain.Segment{Kind: domain.SegmentReload, From: last.DropoffCity, To: next.PickupCity, LoadID: next.ID}
		}
		if !link.Known || !next.Legs.LoadedKm.Known {
			continue
		}
		seg.Km = link.Km

		s.push(i, seg)
		s.accept()
		if s.canDescend() {
			s.extend()
		}
		s.pop()
	}
}

func (s *search) halted() bool {
	if s.stop != StopComplete {
		return true
	}
	if s.req.MaxNodes > 0 && s.nodes >= s.req.MaxNodes {
		s.stop = StopNodeBudget
		return true
	}
	if s.nodes%ctxCheckEvery == 0 && s.ctx.Err() != nil {
		s.stop = StopDeadline
		return true
	}
	return false
}

func (s *search) push(i int, link domain.Segment) {
	l := s.loads[i]
	s.nodes++
	s.path = append(s.path, i)
	s.used[i] = true
	s.segments = append(s.segments, link, domain.Segment{
		Kind:   domain.SegmentLoaded,
		From:   l.PickupCity,
		To:     l.DropoffCity,
		Km:     l.Legs.LoadedKm.Km,
		LoadID: l.ID,
	})
	s.emptyKm += link.Km
	s.loadedKm += l.Legs.LoadedKm.Km
	s.revenue += l.Revenue
	if s.required[i] {
		s.missing--
	}
}

func (s *search) pop() {
	i := s.path[len(s.path)-1]
	l := s.loads[i]
	link := s.segments[len(s.segments)-2]

	s.path = s.path[:len(s.path)-1]
	s.used[i] = false
	s.segments = s.segments[:len(s.segments)-2]
	s.emptyKm -= link.Km
	s.loadedKm -= l.Legs.LoadedKm.Km
	s.revenue -= l.Revenue
	if s.required[i] {
		s.missing++
	}
}

// accept emits the current path as a route when it closes with a known
// return leg, reaches the threshold and covers every required load.
func (s *search) accept() {
	if s.missing > 0 {
		return
	}
	last := s.loads[s.path[len(s.path)-1]]
	ret := last.Legs.ReturnKm
	if !ret.Known {
		return
	}

	total := s.loadedKm + s.emptyKm + ret.Km
	if domain.LoadedPct(s.loadedKm, total)+1e-9 < s.req.LoadedPctThreshold {
		return
	}

	segments := make([]domain.Segment, 0, len(s.segments)+1)
	segments = append(segments, s.segments...)
	segments = append(segments, domain.Segment{Kind: domain.SegmentReturn, From: last.DropoffCity, To: s.end, Km: ret.Km})

	ids := make([]int, len(s.path))
	for k, i := range s.path {
		ids[k] = s.loads[i].ID
	}
	s.routes = append(s.routes, domain.BuildRoute(ids, segments, s.revenue))
}

func (s *search) canDescend() bool {
	slots := s.req.MaxChainLength - len(s.path)
	if slots <= 0 {
		return false
	}

	unused := len(s.loads) - len(s.path)
	if s.missing > slots || s.missing > unused {
		return false
	}

	// Best case: the longest unused loads join with no further empty km.
	extra := 0.0
	for _, i := range s.byLoaded {
		if slots == 0 {
			break
		}
		if s.used[i] {
			continue
		}
		extra += s.loads[i].Legs.LoadedKm.Km
		slots--
	}
	best := domain.LoadedPct(s.loadedKm+extra, s.loadedKm+extra+s.emptyKm)
	return best+1e-9 >= s.req.LoadedPctThreshold
}

func sortRoutes(routes []domain.Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.LoadedPct != b.LoadedPct {
			return a.LoadedPct > b.LoadedPct
		}
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		if len(a.LoadIDs) != len(b.LoadIDs) {
			return len(a.LoadIDs) < len(b.LoadIDs)
		}
		for k := range a.LoadIDs {
			if a.LoadIDs[k] != b.LoadIDs[k] {
				return a.LoadIDs[k] < b.LoadIDs[k]
			}
		}
		return false
	})
}

// UnknownLegError reports a leg whose distance could not be resolved.
type UnknownLegError struct {
	From string
	To   string
}

func (e *UnknownLegError) Error() string {
	return fmt.Sprintf("distance %q -> %q is unknown", e.From, e.To)
}

// EvaluateSequence computes the metrics of a caller-chosen load ordering
// from start to end. It reports whether the route reaches threshold.
func EvaluateSequence(legs LegSource, loads []domain.Load, start, end string, ids []int, threshold float64) (domain.Route, bool, error) {
	if len(ids) == 0 {
		return domain.Route{}, false, domain.ParamError("load_ids", "must not be empty")
	}

	byID := make(map[int]domain.Load, len(loads))
	for _, l := range loads {
		byID[l.ID] = l
	}

	seen := make(map[int]struct{}, len(ids))
	segments := make([]domain.Segment, 0, 2*len(ids)+1)
	revenue := 0.0
	at := domain.NormalizeCity(start)
	kind := domain.SegmentDeadhead

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return domain.Route{}, false, domain.ParamError("load_ids", "load %d appears twice", id)
		}
		seen[id] = struct{}{}

		l, ok := byID[id]
		if !ok {
			return domain.Route{}, false, domain.ParamError("load_ids", "unknown load %d", id)
		}

		link := legs.EmptyLeg(at, l.PickupCity)
		if !link.Known {
			return domain.Route{}, false, &UnknownLegError{From: at, To: l.PickupCity}
		}
		if !l.Legs.LoadedKm.Known {
			return domain.Route{}, false, &UnknownLegError{From: l.PickupCity, To: l.DropoffCity}
		}

		segments = append(segments,
			domain.Segment{Kind: kind, From: at, To: l.PickupCity, Km: link.Km, LoadID: id},
			domain.Segment{Kind: domain.SegmentLoaded, From: l.PickupCity, To: l.DropoffCity, Km: l.Legs.LoadedKm.Km, LoadID: id},
		)
		revenue += l.Revenue
		at = l.DropoffCity
		kind = domain.SegmentReload
	}

	endCity := domain.NormalizeCity(end)
	ret := legs.EmptyLeg(at, endCity)
	if !ret.Known {
		return domain.Route{}, false, &UnknownLegError{From: at, To: endCity}
	}
	segments = append(segments, domain.Segment{Kind: domain.SegmentReturn, From: at, To: endCity, Km: ret.Km})

	r := domain.BuildRoute(ids, segments, revenue)
	return r, r.MeetsThreshold(threshold), nil
}
