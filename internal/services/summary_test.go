package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"freight-dispatch-service/internal/domain"
)

func TestSummarizeSkipsIdleDrivers(t *testing.T) {
	busy := func(id int, loaded, empty, hours, revenue float64) DriverPlan {
		return DriverPlan{Driver: &domain.Driver{
			ID: id, LoadIDs: []int{id}, LoadedKm: loaded, EmptyKm: empty, HoursUsed: hours, Revenue: revenue,
		}}
	}
	plans := []DriverPlan{
		busy(1, 300, 100, 8, 1000),
		{Driver: &domain.Driver{ID: 2, HoursUsed: 5}},
		busy(3, 100, 100, 12, 500),
	}

	s := Summarize(plans, 2)

	assert.Equal(t, 2, s.DriversUsed)
	assert.Equal(t, 2, s.AssignedLoads)
	assert.Equal(t, 2, s.UnassignedLoads)
	assert.Equal(t, 400.0, s.LoadedKm)
	assert.Equal(t, 200.0, s.EmptyKm)
	assert.Equal(t, s.LoadedKm+s.EmptyKm, s.TotalKm)
	assert.InDelta(t, 400.0/600, s.LoadedPct, 1e-9)
	assert.Equal(t, 1500.0, s.Revenue)
	assert.InDelta(t, 1500/(600*domain.KmToMiles), s.RPM, 1e-9)
	assert.Equal(t, 20.0, s.TotalHours)
	assert.Equal(t, 12.0, s.MaxHours)
	assert.Equal(t, 10.0, s.MeanHours)
	assert.InDelta(t, 2.828427, s.StdDevHours, 1e-6)
	assert.InDelta(t, (0.75+0.5)/2, s.MeanLoadedPct, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 3)
	assert.Equal(t, FleetSummary{UnassignedLoads: 3}, s)

	one := Summarize([]DriverPlan{{Driver: &domain.Driver{LoadIDs: []int{1}, LoadedKm: 10, HoursUsed: 4}}}, 0)
	assert.Zero(t, one.StdDevHours)
	assert.Equal(t, 1.0, one.LoadedPct)
}
