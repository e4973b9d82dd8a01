package dto

import (
	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/services"
)

// RoutesRequest asks for every qualifying single-vehicle route.
// Nil optional fields take the server's configured defaults.
type RoutesRequest struct {
	Loads              []LoadRequest `json:"loads"`
	StartLocation      string        `json:"start_location"`
	EndLocation        string        `json:"end_location"`
	LoadedPctThreshold *float64      `json:"loaded_pct_threshold"`
	MaxChainLength     *int          `json:"max_chain_length"`
	MaxSearchNodes     *int          `json:"max_search_nodes"`
	Limit              int           `json:"limit"`
}

type EvaluateRouteRequest struct {
	Loads              []LoadRequest `json:"loads"`
	StartLocation      string        `json:"start_location"`
	EndLocation        string        `json:"end_location"`
	LoadIDs            []int         `json:"load_ids"`
	LoadedPctThreshold *float64      `json:"loaded_pct_threshold"`
}

type SegmentResponse struct {
	Kind   string  `json:"kind"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Km     float64 `json:"km"`
	LoadID int     `json:"load_id,omitempty"`
}

type RouteResponse struct {
	LoadIDs      []int             `json:"load_ids"`
	CitySequence []string          `json:"city_sequence"`
	Segments     []SegmentResponse `json:"segments"`
	LoadedKm     float64           `json:"loaded_km"`
	EmptyKm      float64           `json:"empty_km"`
	TotalKm      float64           `json:"total_km"`
	LoadedPct    float64           `json:"loaded_pct"`
	Revenue      float64           `json:"revenue"`
	RPM          float64           `json:"rpm"`
	Miles        float64           `json:"miles"`
}

type ExcludedLoadResponse struct {
	LoadID   int    `json:"load_id"`
	Required bool   `json:"required"`
	Reason   string `json:"reason"`
}

type RoutesResponse struct {
	Routes               []RouteResponse        `json:"routes"`
	NoRoutesMetThreshold bool                   `json:"no_routes_met_threshold"`
	TotalFound           int                    `json:"total_found"`
	NodesExplored        int                    `json:"nodes_explored"`
	Truncated            bool                   `json:"truncated"`
	StopReason           string                 `json:"stop_reason"`
	Loads                []LoadResponse         `json:"loads"`
	Excluded             []ExcludedLoadResponse `json:"excluded"`
	Warnings             []string               `json:"warnings"`
}

type EvaluateRouteResponse struct {
	Route          RouteResponse     `json:"route"`
	MeetsThreshold bool              `json:"meets_threshold"`
	Gaps           []SegmentResponse `json:"gaps"`
	Warnings       []string          `json:"warnings"`
}

func NewRouteResponse(r domain.Route) RouteResponse {
	return RouteResponse{
		LoadIDs:      nonNilInts(r.LoadIDs),
		CitySequence: r.CitySequence,
		Segments:     NewSegmentResponses(r.Segments),
		LoadedKm:     r.LoadedKm,
		EmptyKm:      r.EmptyKm,
		TotalKm:      r.TotalKm,
		LoadedPct:    r.LoadedPct,
		Revenue:      r.Revenue,
		RPM:          r.RPM,
		Miles:        r.Miles,
	}
}

func NewSegmentResponses(segs []domain.Segment) []SegmentResponse {
	out := make([]SegmentResponse, 0, len(segs))
	for _, s := range segs {
		out = append(out, SegmentResponse{Kind: string(s.Kind), From: s.From, To: s.To, Km: s.Km, LoadID: s.LoadID})
	}
	return out
}

func NewRoutesResponse(p *services.RoutePlan) RoutesResponse {
	res := RoutesResponse{
		Routes:               make([]RouteResponse, 0, len(p.Result.Routes)),
		NoRoutesMetThreshold: p.Result.NoRoutesMetThreshold,
		TotalFound:           p.Result.TotalFound,
		NodesExplored:        p.Result.NodesExplored,
		Truncated:            p.Result.Truncated,
		StopReason:           string(p.Result.StopReason),
		Loads:                NewLoadResponses(p.Loads),
		Excluded:             make([]ExcludedLoadResponse, 0, len(p.Excluded)),
		Warnings:             nonNilStrings(p.Warnings),
	}
	for _, r := range p.Result.Routes {
		res.Routes = append(res.Routes, NewRouteResponse(r))
	}
	for _, x := range p.Excluded {
		res.Excluded = append(res.Excluded, ExcludedLoadResponse{LoadID: x.LoadID, Required: x.Required, Reason: x.Reason})
	}
	return res
}

func NewEvaluateRouteResponse(e *services.Evaluation) EvaluateRouteResponse {
	return EvaluateRouteResponse{
		Route:          NewRouteResponse(e.Route),
		MeetsThreshold: e.MeetsThreshold,
		Gaps:           NewSegmentResponses(e.Gaps),
		Warnings:       nonNilStrings(e.Warnings),
	}
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
