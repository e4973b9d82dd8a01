package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"googlemaps.github.io/maps"

	"freight-dispatch-service/internal/platform/obs"
	"freight-dispatch-service/internal/ports"
)

// GoogleMatrixProvider implements ports.DistanceMatrixProvider with the Google
// Distance Matrix API. City names are sent as-is; one origin per request.
type GoogleMatrixProvider struct {
	client *maps.Client
}

type GoogleOption func(*googleConfig)

type googleConfig struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  int
}

func WithGoogleBaseURL(u string) GoogleOption { return func(c *googleConfig) { c.baseURL = u } }

func WithGoogleHTTPClient(h *http.Client) GoogleOption {
	return func(c *googleConfig) { c.httpClient = h }
}

// WithGoogleRateLimit caps requests per second issued by the client.
func WithGoogleRateLimit(qps int) GoogleOption { return func(c *googleConfig) { c.rateLimit = qps } }

func NewGoogleMatrixProvider(apiKey string, opts ...GoogleOption) (*GoogleMatrixProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	cfg := googleConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, maps.WithHTTPClient(cfg.httpClient))
	}
	if cfg.rateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(cfg.rateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleMatrixProvider{client: client}, nil
}

func (g *GoogleMatrixProvider) GetDistances(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "google.GetDistances")(&err)

	if origin == "" {
		return nil, errors.New("origin must be non-empty")
	}

	destList := dedupe(destinations)
	out := make(map[string]ports.DistanceResult, len(destList))
	if len(destList) == 0 {
		return out, nil
	}

	req := &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: destList,
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}

	if len(resp.Rows) != 1 {
		return nil, fmt.Errorf("expected 1 origin row; got %d", len(resp.Rows))
	}
	elements := resp.Rows[0].Elements
	if len(elements) != len(destList) {
		return nil, fmt.Errorf("row length %d does not match %d destinations", len(elements), len(destList))
	}

	for i, dest := range destList {
		el := elements[i]
		if el == nil || el.Status != "OK" {
			out[dest] = notFound()
			continue
		}
		out[dest] = ports.DistanceResult{
			Status:          ports.StatusOK,
			DistanceMeters:  el.Distance.Meters,
			DurationSeconds: int(el.Duration.Seconds()),
		}
	}

	return out, nil
}
