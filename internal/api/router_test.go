package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-dispatch-service/internal/adapters/distance"
	"freight-dispatch-service/internal/api/dto"
	"freight-dispatch-service/internal/api/handlers"
	"freight-dispatch-service/internal/platform/telemetry"
	"freight-dispatch-service/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	provider := distance.NewMockKm(map[string]map[string]float64{
		"Regina, SK":   {"Brandon, MB": 50, "Winnipeg, MB": 580},
		"Brandon, MB":  {"Winnipeg, MB": 200, "Regina, SK": 360},
		"Winnipeg, MB": {"Regina, SK": 50, "Brandon, MB": 200},
	})
	reg := prometheus.NewRegistry()
	metrics, err := telemetry.New(reg)
	require.NoError(t, err)

	cache := services.NewDistanceCache(provider, services.WithCacheMetrics(metrics))
	dispatcher := services.NewDispatcher(cache, services.EnrichOptions{Policy: services.PolicyExclude},
		services.DefaultHOSOptions(), zerolog.Nop(), metrics)

	srv := httptest.NewServer(NewRouter(Deps{
		Dispatcher: dispatcher,
		Defaults: handlers.Defaults{
			LoadedPctThreshold: 0.65,
			MaxChainLength:     4,
			SearchTimeout:      time.Second,
			HardHourCap:        70,
			WarningHourCap:     55,
			AverageSpeedKmh:    80,
			LoadUnloadHours:    1.5,
			Strategy:           "lowest_overtime",
		},
		Log:      zerolog.Nop(),
		Metrics:  metrics,
		Gatherer: reg,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	res, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

const oneLoad = `{"pickup_city":"brandon, mb","dropoff_city":"winnipeg,mb","rate":2.5,"weight":1000}`

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
	body := decode[map[string]any](t, res)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["cached_distances"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "abc-123", res.Header.Get("X-Request-ID"))
}

func TestPlanRoutes(t *testing.T) {
	srv := newTestServer(t)

	res := post(t, srv, "/routes", `{"start_location":"Regina, SK","loads":[`+oneLoad+`]}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decode[dto.RoutesResponse](t, res)
	require.Len(t, body.Routes, 1)
	r := body.Routes[0]
	assert.Equal(t, []int{1}, r.LoadIDs)
	assert.Equal(t, []string{"Regina, SK", "Brandon, MB", "Winnipeg, MB", "Regina, SK"}, r.CitySequence)
	assert.Equal(t, 200.0, r.LoadedKm)
	assert.Equal(t, 100.0, r.EmptyKm)
	assert.Equal(t, r.LoadedKm+r.EmptyKm, r.TotalKm)
	assert.InDelta(t, 2500/(300*0.621371), r.RPM, 1e-9)
	assert.False(t, body.NoRoutesMetThreshold)
	assert.Equal(t, "complete", body.StopReason)
	require.Len(t, body.Loads, 1)
	assert.Equal(t, 50.0, *body.Loads[0].DeadheadKm)
}

func TestPlanRoutesNoneMeetThreshold(t *testing.T) {
	srv := newTestServer(t)

	res := post(t, srv, "/routes", `{"start_location":"Regina, SK","loaded_pct_threshold":0.8,"loads":[`+oneLoad+`]}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decode[dto.RoutesResponse](t, res)
	assert.True(t, body.NoRoutesMetThreshold)
	assert.Empty(t, body.Routes)
	assert.NotNil(t, body.Routes)
}

func TestPlanRoutesRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"loads":`, "invalid json body"},
		{"unknown field", `{"start":"x"}`, "invalid json body"},
		{"two objects", `{} {}`, "only one JSON object"},
		{"missing city", `{"start_location":"Regina, SK","loads":[{"dropoff_city":"a","rate":1,"weight":1}]}`, "loads[0].pickup_city"},
		{"no loads", `{"start_location":"Regina, SK","loads":[]}`, "at least one load"},
		{"bad threshold", `{"start_location":"Regina, SK","loaded_pct_threshold":3,"loads":[` + oneLoad + `]}`, "loaded_pct_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := post(t, srv, "/routes", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			body := decode[map[string]string](t, res)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/routes", "/routes/evaluate", "/assignments", "/schedules"} {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode, path)
		assert.Equal(t, http.MethodPost, res.Header.Get("Allow"), path)
	}
}

func TestEvaluateRoute(t *testing.T) {
	srv := newTestServer(t)

	res := post(t, srv, "/routes/evaluate", `{"start_location":"Regina, SK","load_ids":[1],"loads":[`+oneLoad+`]}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decode[dto.EvaluateRouteResponse](t, res)
	assert.True(t, body.MeetsThreshold)
	assert.Equal(t, 300.0, body.Route.TotalKm)
	require.Len(t, body.Gaps, 2)
	assert.Equal(t, 50.0, body.Gaps[0].Km)
}

func TestAssignments(t *testing.T) {
	srv := newTestServer(t)

	res := post(t, srv, "/assignments", `{
		"base_location":"Regina, SK",
		"average_speed_kmh":100,
		"schedule_from":"2025-03-03",
		"loads":[`+oneLoad+`,{"pickup_city":"Nowhere","dropoff_city":"Winnipeg, MB","rate":1,"weight":1}]
	}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decode[dto.AssignmentsResponse](t, res)
	require.Len(t, body.Drivers, 1)
	d := body.Drivers[0]
	assert.Equal(t, "Regina, SK", d.CurrentLocation)
	assert.InDelta(t, 0.5+2+1.5+0.5, d.HoursUsed, 1e-9)
	assert.Equal(t, []dto.UnassignedResponse{{LoadID: 2, Reason: "unknown_distance"}}, body.Unassigned)
	assert.Equal(t, 1, body.Summary.DriversUsed)
	require.Len(t, body.Schedules, 1)
	assert.Equal(t, "2025-03-03", body.Schedules[0].Schedule[0].Date)

	res = post(t, srv, "/assignments", `{"base_location":"Regina, SK","schedule_from":"03/03/2025","loads":[`+oneLoad+`]}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = post(t, srv, "/assignments", `{"base_location":"Regina, SK","strategy":"random","loads":[`+oneLoad+`]}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSchedules(t *testing.T) {
	srv := newTestServer(t)

	res := post(t, srv, "/schedules", `{
		"driver_id":3,
		"start_date":"2025-03-03",
		"items":[{"load_id":1,"drive_hours":7},{"load_id":2,"drive_hours":3}]
	}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decode[dto.ScheduleResponse](t, res)
	assert.Equal(t, 3, body.DriverID)
	require.Len(t, body.Schedule, 2)
	assert.Equal(t, dto.DailyScheduleResponse{Date: "2025-03-03", LoadIDs: []int{1}, HoursUsed: 10}, body.Schedule[0])
	assert.Equal(t, "2025-03-04", body.EndDate)
	assert.Equal(t, 16.0, body.TotalHours)

	res = post(t, srv, "/schedules", `{"start_date":"2025-03-03","items":[{"load_id":1,"drive_hours":20}]}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decode[map[string]string](t, res)["error"], "daily cap")

	res = post(t, srv, "/schedules", `{"start_date":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv, "/routes", `{"start_location":"Regina, SK","loads":[`+oneLoad+`]}`)

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `dispatch_http_requests_total{method="POST",path="/routes",status="200"} 1`)
	assert.Contains(t, string(raw), "dispatch_distance_lookups_total")
}
