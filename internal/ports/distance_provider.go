package ports

import "context"

// Outcome of a single origin -> destination lookup.
type ElementStatus string

const (
	StatusOK       ElementStatus = "ok"
	StatusNotFound ElementStatus = "not_found"
)

// Distance and travel duration between two locations.
// DistanceMeters and DurationSeconds are meaningful only when Status is StatusOK.
type DistanceResult struct {
	Status          ElementStatus
	DistanceMeters  int
	DurationSeconds int
}

func (r DistanceResult) OK() bool { return r.Status == StatusOK }

// Contract for the external distance-lookup service.
//
// One call resolves a single origin against a batch of destinations. Every
// destination the service answered for is present in the result, including
// explicit not-found answers. A transport failure is returned as an error and
// means nothing in the batch was resolved.
type DistanceMatrixProvider interface {
	// Return distances from one origin to many destinations.
	GetDistances(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
}
