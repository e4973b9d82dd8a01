package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/s2"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/ports"
)

const earthRadiusMeters = 6371008.8

// GreatCircleProvider estimates road distances offline from a gazetteer of
// city coordinates: great-circle distance multiplied by a road factor.
// Cities missing from the gazetteer are reported as not found.
type GreatCircleProvider struct {
	cities     map[string]domain.Coordinates
	roadFactor float64
	speedKmh   float64
}

// NewGreatCircleProvider copies the gazetteer and canonicalizes its keys.
func NewGreatCircleProvider(gazetteer map[string]domain.Coordinates, roadFactor, speedKmh float64) (*GreatCircleProvider, error) {
	if len(gazetteer) == 0 {
		return nil, errors.New("great circle: gazetteer is empty")
	}
	if roadFactor < 1 {
		return nil, fmt.Errorf("great circle: road factor must be >= 1, got %v", roadFactor)
	}
	if speedKmh <= 0 {
		return nil, fmt.Errorf("great circle: speed must be positive, got %v", speedKmh)
	}

	cities := make(map[string]domain.Coordinates, len(gazetteer))
	for name, c := range gazetteer {
		if key := domain.NormalizeCity(name); key != "" {
			cities[key] = c
		}
	}
	return &GreatCircleProvider{cities: cities, roadFactor: roadFactor, speedKmh: speedKmh}, nil
}

// LoadGazetteer reads a JSON object of city name -> {"lon": .., "lat": ..}.
func LoadGazetteer(path string) (map[string]domain.Coordinates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load gazetteer %q: %w", path, err)
	}
	var out map[string]domain.Coordinates
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("load gazetteer %q: parse json: %w", path, err)
	}
	return out, nil
}

func (g *GreatCircleProvider) GetDistances(
	_ context.Context,
	origin string,
	destinations []string,
) (map[string]ports.DistanceResult, error) {
	if origin == "" {
		return nil, errors.New("origin must be non-empty")
	}

	out := make(map[string]ports.DistanceResult, len(destinations))
	from, ok := g.cities[domain.NormalizeCity(origin)]
	for _, d := range dedupe(destinations) {
		to, found := g.cities[domain.NormalizeCity(d)]
		if !ok || !found {
			out[d] = notFound()
			continue
		}

		meters := greatCircleMeters(from, to) * g.roadFactor
		out[d] = ports.DistanceResult{
			Status:          ports.StatusOK,
			DistanceMeters:  int(math.Round(meters)),
			DurationSeconds: int(math.Round(meters / 1000 / g.speedKmh * 3600)),
		}
	}
	return out, nil
}

func greatCircleMeters(a, b domain.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}
