package distance

import (
	"context"
	"errors"
	"sync"

	"freight-dispatch-service/internal/ports"
)

type MockPair struct {
	From, To string
	Meters   int
	Seconds  int
}

// MockCall records one GetDistances invocation.
type MockCall struct {
	Origin       string
	Destinations []string
}

// MockDistanceProvider answers from a fixed table of directional pairs.
// Pairs missing from the table come back as not found. Origins listed in
// Fail return a transport error for the whole batch.
type MockDistanceProvider struct {
	mu    sync.Mutex
	m     map[string]ports.DistanceResult
	fail  map[string]bool
	calls []MockCall
}

var ErrMockTransport = errors.New("mock: transport failure")

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[p.From+"|"+p.To] = ports.DistanceResult{
			Status:          ports.StatusOK,
			DistanceMeters:  p.Meters,
			DurationSeconds: p.Seconds,
		}
	}
	return &MockDistanceProvider{m: m, fail: map[string]bool{}}
}

// NewMockKm builds a provider from origin -> destination -> km.
func NewMockKm(km map[string]map[string]float64) *MockDistanceProvider {
	pairs := make([]MockPair, 0)
	for from, row := range km {
		for to, v := range row {
			pairs = append(pairs, MockPair{From: from, To: to, Meters: int(v * 1000)})
		}
	}
	return NewMockDistanceProvider(pairs)
}

// Fail makes every batch for origin return ErrMockTransport.
func (p *MockDistanceProvider) Fail(origin string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[origin] = true
}

func (p *MockDistanceProvider) GetDistances(
	ctx context.Context,
	origin string,
	destinations []string,
) (map[string]ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Origin: origin, Destinations: append([]string(nil), destinations...)})
	if p.fail[origin] {
		return nil, ErrMockTransport
	}

	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		r, ok := p.m[origin+"|"+d]
		if !ok {
			r = notFound()
		}
		out[d] = r
	}
	return out, nil
}

// Calls returns a copy of the recorded invocations.
func (p *MockDistanceProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MockCall(nil), p.calls...)
}

// PairsRequested counts every destination asked for across all calls.
func (p *MockDistanceProvider) PairsRequested() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += len(c.Destinations)
	}
	return n
}
