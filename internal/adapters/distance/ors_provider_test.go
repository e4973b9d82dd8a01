package distance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/ports"
)

type memGeocodeStore struct {
	m map[string]domain.Coordinates
}

func (s *memGeocodeStore) GetMany(_ context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	out := map[string]domain.Coordinates{}
	for _, a := range addresses {
		if c, ok := s.m[a]; ok {
			out[a] = c
		}
	}
	return out, nil
}

func (s *memGeocodeStore) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	for k, v := range results {
		s.m[k] = v
	}
	return nil
}

func newORSServer(t *testing.T, matrixFailures int32) (*httptest.Server, *int32, *int32) {
	t.Helper()
	coords := map[string][]float64{
		"Brandon, MB":  {-99.95, 49.84},
		"Winnipeg, MB": {-97.14, 49.90},
		"Regina, SK":   {-104.61, 50.45},
	}
	var geocodeCalls int32
	var matrixCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&geocodeCalls, 1)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		c, ok := coords[r.URL.Query().Get("text")]
		features := []any{}
		if ok {
			features = append(features, map[string]any{"geometry": map[string]any{"coordinates": c}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"features": features})
	})
	mux.HandleFunc("/v2/matrix/driving-hgv", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&matrixCalls, 1) <= matrixFailures {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		var req matrixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		dist := []*float64{}
		dur := []*float64{}
		for i := range req.Destinations {
			if i == 1 {
				dist = append(dist, nil)
				dur = append(dur, nil)
				continue
			}
			m, s := 214000.4, 8100.0
			dist = append(dist, &m)
			dur = append(dur, &s)
		}
		_ = json.NewEncoder(w).Encode(matrixResponse{
			Distances: [][]*float64{dist},
			Durations: [][]*float64{dur},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &geocodeCalls, &matrixCalls
}

func TestORSProviderGetDistances(t *testing.T) {
	srv, _, _ := newORSServer(t, 0)
	p, err := NewORSProvider("secret", WithORSBaseURL(srv.URL))
	require.NoError(t, err)

	got, err := p.GetDistances(context.Background(), "Brandon, MB", []string{"Winnipeg, MB", "Regina, SK", "Atlantis"})
	require.NoError(t, err)

	assert.Equal(t, ports.DistanceResult{Status: ports.StatusOK, DistanceMeters: 214000, DurationSeconds: 8100}, got["Winnipeg, MB"])
	// null matrix cell
	assert.Equal(t, ports.StatusNotFound, got["Regina, SK"].Status)
	// geocode miss
	assert.Equal(t, ports.StatusNotFound, got["Atlantis"].Status)
}

func TestORSProviderUnknownOriginMarksAllNotFound(t *testing.T) {
	srv, _, _ := newORSServer(t, 0)
	p, err := NewORSProvider("secret", WithORSBaseURL(srv.URL))
	require.NoError(t, err)

	got, err := p.GetDistances(context.Background(), "Atlantis", []string{"Winnipeg, MB"})
	require.NoError(t, err)
	assert.Equal(t, ports.StatusNotFound, got["Winnipeg, MB"].Status)
}

func TestORSProviderRetriesTransientFailures(t *testing.T) {
	srv, _, _ := newORSServer(t, 2)
	p, err := NewORSProvider("secret", WithORSBaseURL(srv.URL), WithORSBackoff(time.Millisecond))
	require.NoError(t, err)

	got, err := p.GetDistances(context.Background(), "Brandon, MB", []string{"Winnipeg, MB"})
	require.NoError(t, err)
	assert.True(t, got["Winnipeg, MB"].OK())
}

func TestORSProviderGivesUpAfterMaxAttempts(t *testing.T) {
	srv, _, matrixCalls := newORSServer(t, 10)
	p, err := NewORSProvider("secret", WithORSBaseURL(srv.URL), WithORSBackoff(time.Millisecond))
	require.NoError(t, err)

	_, err = p.GetDistances(context.Background(), "Brandon, MB", []string{"Winnipeg, MB"})
	var se *orsStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int32(orsMaxAttempts), atomic.LoadInt32(matrixCalls))
}

func TestORSProviderUsesGeocodeStore(t *testing.T) {
	srv, geocodeCalls, _ := newORSServer(t, 0)
	store := &memGeocodeStore{m: map[string]domain.Coordinates{}}
	p, err := NewORSProvider("secret", WithORSBaseURL(srv.URL), WithORSGeocodeStore(store))
	require.NoError(t, err)

	_, err = p.GetDistances(context.Background(), "Brandon, MB", []string{"Winnipeg, MB"})
	require.NoError(t, err)
	first := atomic.LoadInt32(geocodeCalls)
	assert.Equal(t, int32(2), first)
	assert.Len(t, store.m, 2)

	_, err = p.GetDistances(context.Background(), "Brandon, MB", []string{"Winnipeg, MB"})
	require.NoError(t, err)
	assert.Equal(t, first, atomic.LoadInt32(geocodeCalls))
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(&orsStatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, transient(&orsStatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, transient(&orsStatusError{StatusCode: http.StatusNotImplemented}))
	assert.False(t, transient(&orsStatusError{StatusCode: http.StatusBadRequest}))
	assert.False(t, transient(errors.New("decode response: EOF")))
}

func TestORSProviderDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	p, err := NewORSProvider("secret", WithORSBaseURL(srv.URL), WithORSBackoff(time.Millisecond))
	require.NoError(t, err)

	_, err = p.GetDistances(context.Background(), "Brandon, MB", []string{"Winnipeg, MB"})
	var se *orsStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad key", se.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
