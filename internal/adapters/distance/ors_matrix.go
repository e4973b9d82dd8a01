package distance

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/ports"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

// Cells are null where ORS has no route between the two points.
type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// located is a city name with its geocoded position.
type located struct {
	city  string
	coord domain.Coordinates
}

// matrixRow asks for the single row from origin to every target. Location 0
// is the origin; target i sits at location i+1.
func (o *ORSProvider) matrixRow(ctx context.Context, origin domain.Coordinates, targets []located) (map[string]ports.DistanceResult, error) {
	req := matrixRequest{
		Locations:    [][]float64{origin.CoordsToList()},
		Sources:      []int{0},
		Destinations: make([]int, len(targets)),
		Metrics:      []string{"distance", "duration"},
	}
	for i, t := range targets {
		req.Locations = append(req.Locations, t.coord.CoordsToList())
		req.Destinations[i] = i + 1
	}

	var resp matrixResponse
	if err := o.call(ctx, http.MethodPost, "/v2/matrix/"+o.profile, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("matrix: %w", err)
	}
	if len(resp.Distances) != 1 || len(resp.Durations) != 1 ||
		len(resp.Distances[0]) != len(targets) || len(resp.Durations[0]) != len(targets) {
		return nil, fmt.Errorf("matrix: want 1x%d cells, got distances %v durations %v",
			len(targets), shape(resp.Distances), shape(resp.Durations))
	}

	out := make(map[string]ports.DistanceResult, len(targets))
	for i, t := range targets {
		meters, seconds := resp.Distances[0][i], resp.Durations[0][i]
		if meters == nil || seconds == nil {
			out[t.city] = notFound()
			continue
		}
		out[t.city] = ports.DistanceResult{
			Status:          ports.StatusOK,
			DistanceMeters:  int(math.Round(*meters)),
			DurationSeconds: int(math.Round(*seconds)),
		}
	}
	return out, nil
}

func shape(rows [][]*float64) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = len(r)
	}
	return out
}
