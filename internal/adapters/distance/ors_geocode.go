package distance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/obs"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// geocodeMany places each city with /geocode/search. Cities without a match
// are left out of the result.
func (o *ORSProvider) geocodeMany(ctx context.Context, cities []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.geocodeMany")(&err)

	out := make(map[string]domain.Coordinates)
	for _, city := range dedupe(cities) {
		q := url.Values{"text": {city}, "size": {"1"}}
		if o.country != "" {
			q.Set("boundary.country", o.country)
		}

		var resp geocodeResponse
		if err := o.call(ctx, http.MethodGet, "/geocode/search", q, nil, &resp); err != nil {
			return nil, fmt.Errorf("geocode %q: %w", city, err)
		}
		if len(resp.Features) == 0 {
			o.log.Debug().Str("city", city).Msg("no geocode match")
			continue
		}
		c := resp.Features[0].Geometry.Coordinates
		if len(c) != 2 {
			return nil, fmt.Errorf("geocode %q: want [lon, lat], got %v", city, c)
		}
		out[city] = domain.Coordinates{Lon: c[0], Lat: c[1]}
	}
	return out, nil
}
