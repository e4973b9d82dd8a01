package ports

import (
	"context"

	"freight-dispatch-service/internal/domain"
)

// Persistent tier behind the in-memory distance cache.
// Keys are canonical city names and are directional (origin, destination).
type DistanceStore interface {
	// Fetch stored results for one origin and multiple destinations.
	// Destinations with no stored result are absent from the map.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	// Store results (including not-found answers) for a single origin.
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}

// Persistent address -> coordinates cache used by geocoding providers.
type GeocodeStore interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
