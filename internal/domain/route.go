package domain

import (
	"sort"
)

type SegmentKind string

const (
	SegmentDeadhead SegmentKind = "deadhead"
	SegmentLoaded   SegmentKind = "loaded"
	SegmentReload   SegmentKind = "reload"
	SegmentReturn   SegmentKind = "return"
)

// Represents one driven leg of a route.
// LoadID is set for loaded legs and for empty legs leading to a pickup.
type Segment struct {
	Kind   SegmentKind
	From   string
	To     string
	Km     float64
	LoadID int
}

func (s Segment) Empty() bool { return s.Kind != SegmentLoaded }

// Represents the planned trip of a single vehicle through an ordered
// sequence of loads.
// All distance totals and ratios are derived from Segments by BuildRoute,
// so TotalKm always equals LoadedKm + EmptyKm.
type Route struct {
	LoadIDs      []int
	CitySequence []string
	Segments     []Segment
	LoadedKm     float64
	EmptyKm      float64
	TotalKm      float64
	LoadedPct    float64
	Revenue      float64
	RPM          float64
	Miles        float64
}

// BuildRoute derives every metric of a route from its segments.
func BuildRoute(loadIDs []int, segments []Segment, revenue float64) Route {
	var loaded, empty float64
	for _, s := range segments {
		if s.Empty() {
			empty += s.Km
		} else {
			loaded += s.Km
		}
	}
	total := loaded + empty

	return Route{
		LoadIDs:      append([]int(nil), loadIDs...),
		CitySequence: CitySequence(segments),
		Segments:     append([]Segment(nil), segments...),
		LoadedKm:     loaded,
		EmptyKm:      empty,
		TotalKm:      total,
		LoadedPct:    LoadedPct(loaded, total),
		Revenue:      revenue,
		RPM:          RPM(revenue, total),
		Miles:        total * KmToMiles,
	}
}

// MeetsThreshold reports whether the route's loaded ratio reaches threshold.
func (r Route) MeetsThreshold(threshold float64) bool {
	return r.LoadedPct+1e-9 >= threshold
}

// CitySequence lists the visited cities in order, skipping consecutive
// repeats (a dropoff that is also the next pickup appears once).
func CitySequence(segments []Segment) []string {
	if len(segments) == 0 {
		return []string{}
	}
	seq := []string{segments[0].From}
	for _, s := range segments {
		if seq[len(seq)-1] != s.From {
			seq = append(seq, s.From)
		}
		if seq[len(seq)-1] != s.To {
			seq = append(seq, s.To)
		}
	}
	return seq
}

// GapSegments returns the empty legs of a plan, longest first.
func GapSegments(segments []Segment) []Segment {
	gaps := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Empty() {
			gaps = append(gaps, s)
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].Km > gaps[j].Km })
	return gaps
}
