package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-dispatch-service/internal/domain"
)

var hosStart = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return hosStart.AddDate(0, 0, n) }

func simulate(t *testing.T, opts HOSOptions, req SimulateRequest) *SimulateResult {
	t.Helper()
	if req.StartDate.IsZero() {
		req.StartDate = hosStart
	}
	res, err := NewHOSSimulator(opts, zerolog.Nop()).Simulate(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestSimulateMovesLoadThatOverflowsTheDay(t *testing.T) {
	res := simulate(t, DefaultHOSOptions(), SimulateRequest{
		DriverID: 7,
		Items:    []PlanItem{{LoadID: 1, DriveHours: 7}, {LoadID: 2, DriveHours: 3}},
	})

	assert.Equal(t, 7, res.DriverID)
	assert.Equal(t, []domain.DailySchedule{
		{Date: day(0), LoadIDs: []int{1}, HoursUsed: 10},
		{Date: day(1), LoadIDs: []int{2}, HoursUsed: 6},
	}, res.Schedule)
	assert.Equal(t, 16.0, res.TotalHours)
	assert.Empty(t, res.ResetDates)
	assert.Equal(t, day(1), res.EndDate)
}

func TestSimulateResetsBeforeCycleOverflow(t *testing.T) {
	opts := HOSOptions{DailyCap: 14, CycleCap: 30, ResetHours: 36}
	items := make([]PlanItem, 5)
	for i := range items {
		items[i] = PlanItem{LoadID: i + 1, DriveHours: 10}
	}

	res := simulate(t, opts, SimulateRequest{Items: items})

	assert.Equal(t, []domain.DailySchedule{
		{Date: day(0), LoadIDs: []int{1}, HoursUsed: 10},
		{Date: day(1), LoadIDs: []int{2}, HoursUsed: 10},
		{Date: day(2), LoadIDs: []int{3}, HoursUsed: 10},
		{Date: day(3), LoadIDs: []int{}, Reset: true, RestHours: 36},
		{Date: day(5), LoadIDs: []int{4}, HoursUsed: 10},
		{Date: day(6), LoadIDs: []int{5}, HoursUsed: 10},
	}, res.Schedule)
	assert.Equal(t, []time.Time{day(3)}, res.ResetDates)
	assert.Equal(t, 50.0, res.TotalHours)
}

func TestSimulateNeverExceedsCaps(t *testing.T) {
	opts := DefaultHOSOptions()
	var items []PlanItem
	for i := 0; i < 40; i++ {
		items = append(items, PlanItem{LoadID: i + 1, DriveHours: float64(i%9) + 0.5})
	}

	res := simulate(t, opts, SimulateRequest{Items: items})

	cycle := 0.0
	seen := 0
	for _, d := range res.Schedule {
		if d.Reset {
			cycle = 0
			continue
		}
		assert.LessOrEqual(t, d.HoursUsed, opts.DailyCap)
		cycle += d.HoursUsed
		assert.LessOrEqual(t, cycle, opts.CycleCap+0.01)
		seen += len(d.LoadIDs)
	}
	assert.Equal(t, len(items), seen)
	assert.NotEmpty(t, res.ResetDates)

	for i := 1; i < len(res.Schedule); i++ {
		assert.True(t, res.Schedule[i].Date.After(res.Schedule[i-1].Date))
	}
}

func TestSimulateHonoursNotBefore(t *testing.T) {
	res := simulate(t, DefaultHOSOptions(), SimulateRequest{
		Items: []PlanItem{
			{LoadID: 1, DriveHours: 2, NotBefore: day(0).Add(9 * time.Hour)},
			{LoadID: 2, DriveHours: 2, NotBefore: day(3)},
			{LoadID: 3, DriveHours: 2, NotBefore: day(1)},
		},
	})

	assert.Equal(t, []domain.DailySchedule{
		{Date: day(0), LoadIDs: []int{1}, HoursUsed: 5},
		{Date: day(3), LoadIDs: []int{2, 3}, HoursUsed: 10},
	}, res.Schedule)
}

func TestSimulateStartsFromDriverState(t *testing.T) {
	res := simulate(t, DefaultHOSOptions(), SimulateRequest{
		Items: []PlanItem{{LoadID: 1, DriveHours: 3}},
		State: DriverState{HoursUsedToday: 10, CycleHoursUsed: 20},
	})
	assert.Equal(t, []domain.DailySchedule{{Date: day(1), LoadIDs: []int{1}, HoursUsed: 6}}, res.Schedule)

	res = simulate(t, DefaultHOSOptions(), SimulateRequest{
		Items: []PlanItem{{LoadID: 1, DriveHours: 3}},
		State: DriverState{CycleHoursUsed: 68},
	})
	assert.Equal(t, []time.Time{day(0)}, res.ResetDates)
	require.Len(t, res.Schedule, 2)
	assert.True(t, res.Schedule[0].Reset)
	assert.Equal(t, day(2), res.Schedule[1].Date)
}

func TestSimulateValidation(t *testing.T) {
	h := NewHOSSimulator(DefaultHOSOptions(), zerolog.Nop())
	ctx := context.Background()

	_, err := h.Simulate(ctx, SimulateRequest{StartDate: hosStart, Items: []PlanItem{{LoadID: 4, DriveHours: 12}}})
	require.ErrorIs(t, err, ErrLoadExceedsDailyCap)
	assert.True(t, domain.IsValidation(err))

	_, err = h.Simulate(ctx, SimulateRequest{Items: []PlanItem{{LoadID: 1, DriveHours: 1}}})
	assert.True(t, domain.IsValidation(err))

	_, err = h.Simulate(ctx, SimulateRequest{StartDate: hosStart, State: DriverState{CycleHoursUsed: 71}})
	assert.True(t, domain.IsValidation(err))

	bad := NewHOSSimulator(HOSOptions{DailyCap: 14, CycleCap: 10, ResetHours: 36}, zerolog.Nop())
	_, err = bad.Simulate(ctx, SimulateRequest{StartDate: hosStart})
	assert.True(t, domain.IsValidation(err))
}

func TestSimulateEmptyPlan(t *testing.T) {
	res := simulate(t, DefaultHOSOptions(), SimulateRequest{})
	assert.Empty(t, res.Schedule)
	assert.Zero(t, res.TotalHours)
	assert.True(t, res.EndDate.IsZero())
}

func TestPlanFromSegments(t *testing.T) {
	segs := []domain.Segment{
		{Kind: domain.SegmentDeadhead, Km: 100, LoadID: 1},
		{Kind: domain.SegmentLoaded, Km: 300, LoadID: 1},
		{Kind: domain.SegmentReload, Km: 50, LoadID: 2},
		{Kind: domain.SegmentLoaded, Km: 150, LoadID: 2},
		{Kind: domain.SegmentReturn, Km: 100},
	}

	assert.Equal(t, []PlanItem{
		{LoadID: 1, DriveHours: 4},
		{LoadID: 2, DriveHours: 3},
	}, PlanFromSegments(segs, 100))
	assert.Empty(t, PlanFromSegments(nil, 100))
}
