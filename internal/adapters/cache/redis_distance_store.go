package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/obs"
	"freight-dispatch-service/internal/ports"
)

const (
	distanceKeyPrefix = "dispatch:distance:"
	geocodeKey        = "dispatch:geocode"
)

// RedisDistanceStore keeps one hash per origin: field = destination,
// value = "status|meters|seconds".
type RedisDistanceStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDistanceStore builds a store; ttl <= 0 keeps entries forever.
func NewRedisDistanceStore(client *redis.Client, ttl time.Duration) *RedisDistanceStore {
	return &RedisDistanceStore{client: client, ttl: ttl}
}

func (s *RedisDistanceStore) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.store.redis.GetMany")(&err)

	if s.client == nil {
		return nil, errors.New("distance store: redis client is nil")
	}
	if origin == "" {
		return nil, errors.New("get distance store: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	out := make(map[string]ports.DistanceResult, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}

	vals, err := s.client.HMGet(ctx, distanceKeyPrefix+origin, uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get distance store: hmget %q: %w", origin, err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeDistance(raw)
		if err != nil {
			return nil, fmt.Errorf("get distance store: dest=%q: %w", uniq[i], err)
		}
		out[uniq[i]] = r
	}
	return out, nil
}

func (s *RedisDistanceStore) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.store.redis.PutMany")(&err)

	if s.client == nil {
		return errors.New("distance store: redis client is nil")
	}
	if origin == "" {
		return errors.New("insert distance store: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert distance store: empty destination key")
		}
		fields[dest] = encodeDistance(r)
	}

	key := distanceKeyPrefix + origin
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert distance store: origin=%q: %w", origin, err)
	}
	return nil
}

func encodeDistance(r ports.DistanceResult) string {
	return fmt.Sprintf("%s|%d|%d", r.Status, r.DistanceMeters, r.DurationSeconds)
}

func decodeDistance(raw string) (ports.DistanceResult, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return ports.DistanceResult{}, fmt.Errorf("malformed value %q", raw)
	}
	meters, err := strconv.Atoi(parts[1])
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("malformed meters %q: %w", parts[1], err)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("malformed seconds %q: %w", parts[2], err)
	}
	return ports.DistanceResult{
		Status:          parseStatus(parts[0]),
		DistanceMeters:  meters,
		DurationSeconds: seconds,
	}, nil
}

// RedisGeocodeStore keeps all coordinates in a single hash: field = address,
// value = "lon,lat".
type RedisGeocodeStore struct {
	client *redis.Client
}

func NewRedisGeocodeStore(client *redis.Client) *RedisGeocodeStore {
	return &RedisGeocodeStore{client: client}
}

func (s *RedisGeocodeStore) GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	if s.client == nil {
		return nil, errors.New("geocode store: redis client is nil")
	}

	uniq := uniqueKeys(addresses)
	out := make(map[string]domain.Coordinates, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}

	vals, err := s.client.HMGet(ctx, geocodeKey, uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode store: hmget: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		lonStr, latStr, found := strings.Cut(raw, ",")
		if !found {
			return nil, fmt.Errorf("get geocode store: malformed value %q", raw)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("get geocode store: lon %q: %w", lonStr, err)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("get geocode store: lat %q: %w", latStr, err)
		}
		out[uniq[i]] = domain.Coordinates{Lon: lon, Lat: lat}
	}
	return out, nil
}

func (s *RedisGeocodeStore) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if s.client == nil {
		return errors.New("geocode store: redis client is nil")
	}
	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for addr, c := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("insert geocode store: empty address key")
		}
		fields[addr] = strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
	}
	if err := s.client.HSet(ctx, geocodeKey, fields).Err(); err != nil {
		return fmt.Errorf("insert geocode store: hset: %w", err)
	}
	return nil
}
