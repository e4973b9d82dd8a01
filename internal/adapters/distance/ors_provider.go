package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/obs"
	"freight-dispatch-service/internal/ports"
)

// ORSProvider implements ports.DistanceMatrixProvider using OpenRouteService.
//
// City names are geocoded first (optionally through a persistent GeocodeStore),
// then a single origin -> many destinations matrix row is requested.
// Cities that cannot be geocoded, and matrix cells ORS leaves null, come back
// as not-found elements rather than errors.
//
// The provider is safe for concurrent use.
type ORSProvider struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	profile      string
	country      string
	backoff      time.Duration
	geocodeStore ports.GeocodeStore
	log          zerolog.Logger
}

type ORSOption func(*ORSProvider)

func WithORSBaseURL(u string) ORSOption { return func(o *ORSProvider) { o.baseURL = u } }

func WithORSHTTPClient(c *http.Client) ORSOption { return func(o *ORSProvider) { o.session = c } }

// WithORSCountry restricts geocoding to the given ISO country codes, e.g. "CA,US".
func WithORSCountry(c string) ORSOption { return func(o *ORSProvider) { o.country = c } }

// WithORSBackoff sets the initial retry delay; it doubles on each attempt.
func WithORSBackoff(d time.Duration) ORSOption { return func(o *ORSProvider) { o.backoff = d } }

func WithORSGeocodeStore(s ports.GeocodeStore) ORSOption {
	return func(o *ORSProvider) { o.geocodeStore = s }
}

func WithORSLogger(l zerolog.Logger) ORSOption { return func(o *ORSProvider) { o.log = l } }

func NewORSProvider(apiKey string, opts ...ORSOption) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	o := &ORSProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		profile: "driving-hgv",
		backoff: 200 * time.Millisecond,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Compute distances from a single origin to many destinations.
func (o *ORSProvider) GetDistances(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	if origin == "" {
		return nil, errors.New("origin must be non-empty")
	}

	destList := dedupe(destinations)
	out := make(map[string]ports.DistanceResult, len(destList))
	if len(destList) == 0 {
		return out, nil
	}

	needed := append([]string{origin}, destList...)
	coords, err := o.resolveCoordinates(ctx, needed)
	if err != nil {
		return nil, fmt.Errorf("retrieving coordinates: %w", err)
	}

	originCoord, ok := coords[origin]
	if !ok {
		o.log.Debug().Str("city", origin).Msg("origin not geocoded")
		for _, d := range destList {
			out[d] = notFound()
		}
		return out, nil
	}

	targets := make([]located, 0, len(destList))
	for _, d := range destList {
		c, ok := coords[d]
		if !ok {
			out[d] = notFound()
			continue
		}
		targets = append(targets, located{city: d, coord: c})
	}
	if len(targets) == 0 {
		return out, nil
	}

	fetched, err := o.matrixRow(ctx, originCoord, targets)
	if err != nil {
		return nil, err
	}
	for k, v := range fetched {
		out[k] = v
	}

	return out, nil
}

// resolveCoordinates consults the geocode store before calling ORS geocoding.
// Addresses ORS cannot place are absent from the result.
func (o *ORSProvider) resolveCoordinates(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	hits := make(map[string]domain.Coordinates)
	if o.geocodeStore != nil {
		stored, err := o.geocodeStore.GetMany(ctx, addresses)
		if err != nil {
			o.log.Warn().Err(err).Msg("geocode store read failed")
		} else {
			hits = stored
		}
	}

	misses := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if _, ok := hits[a]; !ok {
			misses = append(misses, a)
		}
	}
	if len(misses) == 0 {
		return hits, nil
	}

	fresh, err := o.geocodeMany(ctx, misses)
	if err != nil {
		return nil, err
	}

	if o.geocodeStore != nil && len(fresh) > 0 {
		if err := o.geocodeStore.PutMany(ctx, fresh); err != nil {
			o.log.Warn().Err(err).Msg("geocode store write failed")
		}
	}

	for k, v := range fresh {
		hits[k] = v
	}
	return hits, nil
}

func notFound() ports.DistanceResult {
	return ports.DistanceResult{Status: ports.StatusNotFound}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
