package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-dispatch-service/internal/adapters/distance"
	"freight-dispatch-service/internal/domain"
)

func newTestDispatcher(km map[string]map[string]float64) *Dispatcher {
	cache := NewDistanceCache(distance.NewMockKm(km))
	return NewDispatcher(cache, EnrichOptions{Policy: PolicyExclude}, DefaultHOSOptions(), zerolog.Nop(), nil)
}

func TestDispatcherPlanRoutes(t *testing.T) {
	d := newTestDispatcher(map[string]map[string]float64{
		"Base": {"X": 50},
		"X":    {"Y": 200},
		"Y":    {"Base": 50},
	})
	loads := []domain.Load{
		{PickupCity: "x", DropoffCity: "y", Rate: 2, Weight: 500},
		{PickupCity: "x", DropoffCity: "nowhere", Rate: 2, Weight: 500},
	}

	plan, err := d.PlanRoutes(context.Background(), RoutePlanRequest{
		Loads: loads, Start: "base", LoadedPctThreshold: 0.65, MaxChainLength: 3,
	})
	require.NoError(t, err)
	require.Len(t, plan.Result.Routes, 1)
	assert.InDelta(t, 200.0/300, plan.Result.Routes[0].LoadedPct, 1e-9)
	assert.Equal(t, []ExcludedLoad{{LoadID: 2, Reason: ReasonUnknownLoadedDistance}}, plan.Excluded)
	assert.Contains(t, plan.Warnings, "load 2 excluded: "+ReasonUnknownLoadedDistance)
	assert.Len(t, plan.Loads, 1)

	plan, err = d.PlanRoutes(context.Background(), RoutePlanRequest{
		Loads: loads, Start: "base", LoadedPctThreshold: 0.8, MaxChainLength: 3,
	})
	require.NoError(t, err)
	assert.True(t, plan.Result.NoRoutesMetThreshold)
	assert.Empty(t, plan.Result.Routes)

	_, err = d.PlanRoutes(context.Background(), RoutePlanRequest{Loads: loads, Start: "base", LoadedPctThreshold: 2, MaxChainLength: 3})
	assert.True(t, domain.IsValidation(err))

	_, err = d.PlanRoutes(context.Background(), RoutePlanRequest{Start: "base", MaxChainLength: 3})
	assert.ErrorIs(t, err, domain.ErrNoLoads)
}

func TestDispatcherPlanRoutesWithUnresolvableRequiredLoad(t *testing.T) {
	d := newTestDispatcher(map[string]map[string]float64{
		"Base": {"X": 50},
		"X":    {"Y": 200},
		"Y":    {"Base": 50},
	})

	plan, err := d.PlanRoutes(context.Background(), RoutePlanRequest{
		Loads: []domain.Load{
			{PickupCity: "x", DropoffCity: "y", Rate: 2, Weight: 500},
			{PickupCity: "x", DropoffCity: "nowhere", Rate: 2, Weight: 500, Required: true},
		},
		Start:              "base",
		LoadedPctThreshold: 0.65,
		MaxChainLength:     3,
	})
	require.NoError(t, err)
	assert.Empty(t, plan.Result.Routes)
	assert.True(t, plan.Result.NoRoutesMetThreshold)
	assert.Equal(t, []ExcludedLoad{{LoadID: 2, Required: true, Reason: ReasonUnknownLoadedDistance}}, plan.Excluded)
	assert.Contains(t, plan.Warnings, "required loads [2] have no known loaded distance; no route can include them")
}

func TestDispatcherEvaluateRoute(t *testing.T) {
	d := newTestDispatcher(map[string]map[string]float64{
		"Base": {"P1": 30},
		"P1":   {"D1": 100},
		"D1":   {"P2": 20},
		"P2":   {"D2": 100},
		"D2":   {"Base": 10},
	})

	ev, err := d.EvaluateRoute(context.Background(), EvaluateRequest{
		Loads: []domain.Load{
			{ID: 1, PickupCity: "P1", DropoffCity: "D1", Rate: 1, Weight: 100},
			{ID: 2, PickupCity: "P2", DropoffCity: "D2", Rate: 1, Weight: 100},
		},
		Start:              "Base",
		LoadIDs:            []int{1, 2},
		LoadedPctThreshold: 0.7,
	})
	require.NoError(t, err)
	assert.True(t, ev.MeetsThreshold)
	assert.Equal(t, 200.0, ev.Route.LoadedKm)
	assert.Equal(t, 60.0, ev.Route.EmptyKm)
	assert.Equal(t, 260.0, ev.Route.TotalKm)
	assert.Equal(t, []string{"Base", "P1", "D1", "P2", "D2", "Base"}, ev.Route.CitySequence)
	require.Len(t, ev.Gaps, 3)
	assert.Equal(t, 30.0, ev.Gaps[0].Km)
}

func TestDispatcherAssignFleet(t *testing.T) {
	d := newTestDispatcher(map[string]map[string]float64{
		"Base": {"P1": 100, "P2": 900},
		"P1":   {"D1": 400},
		"P2":   {"D2": 300},
		"D1":   {"Base": 500, "P2": 50},
		"D2":   {"Base": 100},
	})

	plan, err := d.AssignFleet(context.Background(), FleetRequest{
		Loads: []domain.Load{
			{ID: 1, PickupCity: "P1", DropoffCity: "D1", Rate: 1, Weight: 1000},
			{ID: 2, PickupCity: "P2", DropoffCity: "D2", Rate: 1, Weight: 1000},
			{ID: 3, PickupCity: "P3", DropoffCity: "D3", Rate: 1, Weight: 1000},
		},
		Base:            "base",
		HardHourCap:     20,
		WarningHourCap:  10,
		AverageSpeedKmh: 100,
		LoadUnloadHours: 1,
		ScheduleFrom:    hosStart,
	})
	require.NoError(t, err)

	res := plan.Result
	require.Len(t, res.Drivers, 1)
	drv := res.Drivers[0].Driver
	assert.Equal(t, []int{1, 2}, drv.LoadIDs)
	assert.InDelta(t, 11.5, drv.HoursUsed, 1e-9)
	assert.Equal(t, drv.LoadedKm+drv.EmptyKm, res.Drivers[0].Route.TotalKm)
	assert.Equal(t, []UnassignedLoad{{LoadID: 3, Reason: ReasonUnknownDistance}}, res.Unassigned)
	assert.Equal(t, 1, res.Summary.UnassignedLoads)
	assert.Equal(t, 2000.0, res.Summary.Revenue)

	require.Len(t, plan.Schedules, 1)
	sched := plan.Schedules[0]
	assert.Equal(t, drv.ID, sched.DriverID)
	assert.Equal(t, []domain.DailySchedule{
		{Date: hosStart, LoadIDs: []int{1}, HoursUsed: 8},
		{Date: hosStart.AddDate(0, 0, 1), LoadIDs: []int{2}, HoursUsed: 7.5},
	}, sched.Schedule)
}

func TestDispatcherAssignFleetSchedulesFromSeededCycleHours(t *testing.T) {
	d := newTestDispatcher(map[string]map[string]float64{
		"Base": {"P1": 50},
		"P1":   {"D1": 100},
		"D1":   {"Base": 50},
	})

	plan, err := d.AssignFleet(context.Background(), FleetRequest{
		Loads:           []domain.Load{{ID: 1, PickupCity: "P1", DropoffCity: "D1", Rate: 1, Weight: 100}},
		Base:            "Base",
		Drivers:         []DriverSeed{{Name: "Eve", HoursUsed: 66}},
		HardHourCap:     70,
		WarningHourCap:  55,
		AverageSpeedKmh: 100,
		LoadUnloadHours: 1,
		ScheduleFrom:    hosStart,
	})
	require.NoError(t, err)

	drv := plan.Result.Drivers[0].Driver
	assert.Equal(t, []int{1}, drv.LoadIDs)
	assert.InDelta(t, 69, drv.HoursUsed, 1e-9)

	require.Len(t, plan.Schedules, 1)
	sched := plan.Schedules[0]
	assert.Equal(t, []time.Time{hosStart}, sched.ResetDates)
	require.Len(t, sched.Schedule, 2)
	assert.True(t, sched.Schedule[0].Reset)
	assert.Equal(t, hosStart.AddDate(0, 0, 2), sched.Schedule[1].Date)
	assert.Equal(t, []int{1}, sched.Schedule[1].LoadIDs)
	assert.Equal(t, 5.0, sched.Schedule[1].HoursUsed)
}

func TestDispatcherAssignFleetRejectsUnknownStrategy(t *testing.T) {
	d := newTestDispatcher(nil)
	_, err := d.AssignFleet(context.Background(), FleetRequest{Strategy: "coin_flip"})
	assert.True(t, domain.IsValidation(err))
}

func TestDispatcherSchedule(t *testing.T) {
	d := newTestDispatcher(nil)

	res, err := d.Schedule(context.Background(), SimulateRequest{
		StartDate: hosStart,
		Items:     []PlanItem{{LoadID: 1, DriveHours: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, res.TotalHours)

	_, err = d.Schedule(context.Background(), SimulateRequest{
		StartDate: hosStart,
		Items:     []PlanItem{{LoadID: 1, DriveHours: 20}},
	})
	assert.ErrorIs(t, err, ErrLoadExceedsDailyCap)
	_, err = d.Schedule(context.Background(), SimulateRequest{StartDate: time.Time{}, Items: []PlanItem{{LoadID: 1}}})
	assert.True(t, domain.IsValidation(err))
}
