package services

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"freight-dispatch-service/internal/domain"
)

// FleetSummary aggregates a fleet assignment.
type FleetSummary struct {
	DriversUsed     int
	AssignedLoads   int
	UnassignedLoads int
	LoadedKm        float64
	EmptyKm         float64
	TotalKm         float64
	LoadedPct       float64
	Revenue         float64
	RPM             float64
	TotalHours      float64
	MeanHours       float64
	StdDevHours     float64
	MaxHours        float64
	MeanLoadedPct   float64
}

// Summarize totals the drivers that carried at least one load.
func Summarize(plans []DriverPlan, unassigned int) FleetSummary {
	var hours, pcts, loaded, empty, revenue []float64
	assigned := 0
	for _, p := range plans {
		d := p.Driver
		if len(d.LoadIDs) == 0 {
			continue
		}
		assigned += len(d.LoadIDs)
		hours = append(hours, d.HoursUsed)
		pcts = append(pcts, d.LoadedPct())
		loaded = append(loaded, d.LoadedKm)
		empty = append(empty, d.EmptyKm)
		revenue = append(revenue, d.Revenue)
	}

	s := FleetSummary{
		DriversUsed:     len(hours),
		AssignedLoads:   assigned,
		UnassignedLoads: unassigned,
	}
	if len(hours) == 0 {
		return s
	}

	s.LoadedKm = floats.Sum(loaded)
	s.EmptyKm = floats.Sum(empty)
	s.TotalKm = s.LoadedKm + s.EmptyKm
	s.LoadedPct = domain.LoadedPct(s.LoadedKm, s.TotalKm)
	s.Revenue = floats.Sum(revenue)
	s.RPM = domain.RPM(s.Revenue, s.TotalKm)
	s.TotalHours = floats.Sum(hours)
	s.MaxHours = floats.Max(hours)
	s.MeanHours = stat.Mean(hours, nil)
	s.MeanLoadedPct = stat.Mean(pcts, nil)
	if len(hours) > 1 {
		s.StdDevHours = stat.StdDev(hours, nil)
	}
	return s
}
