package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/telemetry"
	"freight-dispatch-service/internal/ports"
)

const (
	DefaultMaxDestinations = 10
	DefaultWorkers         = 4
)

var errNoProvider = errors.New("no distance provider configured")

// Pair is a directional lookup key between two canonical city names.
type Pair struct {
	Origin      string
	Destination string
}

// BatchFailure records one provider call that failed; its pairs stay uncached.
type BatchFailure struct {
	Origin       string
	Destinations []string
	Err          error
}

// ResolveReport summarises one Resolve call.
type ResolveReport struct {
	Requested     int
	MemoryHits    int
	StoreHits     int
	Fetched       int
	NotFound      int
	ProviderCalls int
	Failures      []BatchFailure
}

// Warnings renders batch failures as human readable strings.
func (r ResolveReport) Warnings() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, fmt.Sprintf("distance lookup from %q to %d destination(s) failed: %v", f.Origin, len(f.Destinations), f.Err))
	}
	return out
}

// DistanceCache memoizes directional distances between canonical cities.
//
// A pair is looked up at most once per process: every answer the provider
// gives, including not-found, is cached and never retried. Pairs from a failed
// provider call are left uncached so a later Resolve can try again.
// Safe for concurrent use.
type DistanceCache struct {
	provider ports.DistanceMatrixProvider
	store    ports.DistanceStore
	maxDest  int
	workers  int
	log      zerolog.Logger
	metrics  *telemetry.Collectors

	mu      sync.RWMutex
	entries map[Pair]domain.Distance
}

type CacheOption func(*DistanceCache)

// WithStore adds a persistent tier consulted before the provider.
func WithStore(s ports.DistanceStore) CacheOption { return func(c *DistanceCache) { c.store = s } }

func WithMaxDestinations(n int) CacheOption {
	return func(c *DistanceCache) {
		if n > 0 {
			c.maxDest = n
		}
	}
}

func WithWorkers(n int) CacheOption {
	return func(c *DistanceCache) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithCacheLogger(l zerolog.Logger) CacheOption { return func(c *DistanceCache) { c.log = l } }

func WithCacheMetrics(m *telemetry.Collectors) CacheOption {
	return func(c *DistanceCache) { c.metrics = m }
}

func NewDistanceCache(provider ports.DistanceMatrixProvider, opts ...CacheOption) *DistanceCache {
	c := &DistanceCache{
		provider: provider,
		maxDest:  DefaultMaxDestinations,
		workers:  DefaultWorkers,
		log:      zerolog.Nop(),
		entries:  make(map[Pair]domain.Distance),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached distance for origin -> destination without
// contacting anything. ok is false when the pair was never resolved.
func (c *DistanceCache) Lookup(origin, destination string) (domain.Distance, bool) {
	key := Pair{domain.NormalizeCity(origin), domain.NormalizeCity(destination)}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[key]
	return d, ok
}

// Len reports the number of cached pairs.
func (c *DistanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Distance resolves a single pair. An unresolvable pair (failed batch)
// is returned as unknown.
func (c *DistanceCache) Distance(ctx context.Context, origin, destination string) (domain.Distance, error) {
	if _, err := c.Resolve(ctx, []Pair{{origin, destination}}); err != nil {
		return domain.UnknownDistance, err
	}
	d, _ := c.Lookup(origin, destination)
	return d, nil
}

type batch struct {
	origin string
	dests  []string
}

// Resolve makes sure every pair is cached, fetching only what is missing.
// Uncached pairs are grouped by origin and sent in chunks of at most
// maxDest destinations; chunks run concurrently up to the worker limit.
// Provider failures are reported in the ResolveReport; only context
// cancellation is returned as an error.
func (c *DistanceCache) Resolve(ctx context.Context, pairs []Pair) (ResolveReport, error) {
	var report ResolveReport

	missing := c.missingByOrigin(pairs, &report)
	if len(missing) == 0 {
		return report, ctx.Err()
	}

	if c.store != nil {
		c.fillFromStore(ctx, missing, &report)
	}

	batches := c.plan(missing)
	if len(batches) == 0 {
		return report, ctx.Err()
	}
	if c.provider == nil {
		for _, b := range batches {
			report.Failures = append(report.Failures, BatchFailure{Origin: b.origin, Destinations: b.dests, Err: errNoProvider})
		}
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, b := range batches {
		g.Go(func() error {
			start := time.Now()
			results, err := c.provider.GetDistances(gctx, b.origin, b.dests)
			c.metrics.ProviderBatch(err, time.Since(start))

			mu.Lock()
			report.ProviderCalls++
			mu.Unlock()

			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.log.Warn().Err(err).Str("origin", b.origin).Int("destinations", len(b.dests)).Msg("distance batch failed")
				mu.Lock()
				report.Failures = append(report.Failures, BatchFailure{Origin: b.origin, Destinations: b.dests, Err: err})
				mu.Unlock()
				return nil
			}

			fetched, notFound := c.storeResults(b, results)
			mu.Lock()
			report.Fetched += fetched
			report.NotFound += notFound
			mu.Unlock()
			c.metrics.DistanceLookups("provider", string(ports.StatusOK), fetched-notFound)
			c.metrics.DistanceLookups("provider", string(ports.StatusNotFound), notFound)

			if c.store != nil && len(results) > 0 {
				if err := c.store.PutMany(gctx, b.origin, results); err != nil {
					c.log.Warn().Err(err).Str("origin", b.origin).Msg("distance store write failed")
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		if report.Failures[i].Origin != report.Failures[j].Origin {
			return report.Failures[i].Origin < report.Failures[j].Origin
		}
		return report.Failures[i].Destinations[0] < report.Failures[j].Destinations[0]
	})

	c.log.Debug().
		Int("requested", report.Requested).
		Int("memory_hits", report.MemoryHits).
		Int("store_hits", report.StoreHits).
		Int("fetched", report.Fetched).
		Int("not_found", report.NotFound).
		Int("failures", len(report.Failures)).
		Msg("distances resolved")

	return report, ctx.Err()
}

// missingByOrigin canonicalizes and dedupes pairs, returning the uncached ones.
func (c *DistanceCache) missingByOrigin(pairs []Pair, report *ResolveReport) map[string][]string {
	seen := make(map[Pair]struct{}, len(pairs))
	missing := make(map[string][]string)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range pairs {
		key := Pair{domain.NormalizeCity(p.Origin), domain.NormalizeCity(p.Destination)}
		if key.Origin == "" || key.Destination == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		report.Requested++

		if _, ok := c.entries[key]; ok {
			report.MemoryHits++
			continue
		}
		missing[key.Origin] = append(missing[key.Origin], key.Destination)
	}
	c.metrics.DistanceLookups("memory", "hit", report.MemoryHits)
	return missing
}

func (c *DistanceCache) fillFromStore(ctx context.Context, missing map[string][]string, report *ResolveReport) {
	for origin, dests := range missing {
		hits, err := c.store.GetMany(ctx, origin, dests)
		if err != nil {
			c.log.Warn().Err(err).Str("origin", origin).Msg("distance store read failed")
			continue
		}
		if len(hits) == 0 {
			continue
		}

		remaining := dests[:0]
		c.mu.Lock()
		for _, d := range dests {
			r, ok := hits[d]
			if !ok {
				remaining = append(remaining, d)
				continue
			}
			c.entries[Pair{origin, d}] = toDistance(r)
			report.StoreHits++
		}
		c.mu.Unlock()

		if len(remaining) == 0 {
			delete(missing, origin)
		} else {
			missing[origin] = remaining
		}
	}
	c.metrics.DistanceLookups("store", "hit", report.StoreHits)
}

// plan splits per-origin misses into provider batches in a stable order.
func (c *DistanceCache) plan(missing map[string][]string) []batch {
	origins := make([]string, 0, len(missing))
	for o := range missing {
		origins = append(origins, o)
	}
	sort.Strings(origins)

	var out []batch
	for _, o := range origins {
		dests := append([]string(nil), missing[o]...)
		sort.Strings(dests)
		for start := 0; start < len(dests); start += c.maxDest {
			end := min(start+c.maxDest, len(dests))
			out = append(out, batch{origin: o, dests: dests[start:end]})
		}
	}
	return out
}

// storeResults caches every element the provider answered for.
// Destinations missing from the answer stay uncached.
func (c *DistanceCache) storeResults(b batch, results map[string]ports.DistanceResult) (fetched, notFound int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range b.dests {
		r, ok := results[d]
		if !ok {
			continue
		}
		c.entries[Pair{b.origin, d}] = toDistance(r)
		fetched++
		if !r.OK() {
			notFound++
		}
	}
	return fetched, notFound
}

func toDistance(r ports.DistanceResult) domain.Distance {
	if !r.OK() {
		return domain.UnknownDistance
	}
	return domain.KnownKm(float64(r.DistanceMeters) / 1000)
}
