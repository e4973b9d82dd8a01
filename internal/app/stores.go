package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"freight-dispatch-service/internal/adapters/cache"
	"freight-dispatch-service/internal/config"
	"freight-dispatch-service/internal/platform/db"
	"freight-dispatch-service/internal/ports"
)

// Stores is the persistent tier selected by store.backend. Both stores
// are nil for the "none" backend.
type Stores struct {
	Distances ports.DistanceStore
	Geocodes  ports.GeocodeStore

	sqlDB   *sql.DB
	dialect db.Dialect
	redis   *redis.Client
}

// OpenStores connects the configured backend. Call Close when done.
func OpenStores(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch cfg.Backend {
	case "none":
		return &Stores{}, nil

	case "sqlite", "postgres":
		dialect, dsn := db.SQLite, cfg.Path
		if cfg.Backend == "postgres" {
			dialect, dsn = db.Postgres, cfg.DSN
		}
		conn, err := db.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, fmt.Errorf("open stores: %w", err)
		}
		s := &Stores{sqlDB: conn, dialect: dialect}
		if dialect == db.Postgres {
			s.Distances = cache.NewPostgresDistanceStore(conn)
			s.Geocodes = cache.NewPostgresGeocodeStore(conn)
		} else {
			s.Distances = cache.NewSqliteDistanceStore(conn)
			s.Geocodes = cache.NewSqliteGeocodeStore(conn)
		}
		return s, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("open stores: ping redis %s: %w", cfg.Addr, err)
		}
		return &Stores{
			Distances: cache.NewRedisDistanceStore(client, cfg.TTL),
			Geocodes:  cache.NewRedisGeocodeStore(client),
			redis:     client,
		}, nil
	}
	return nil, fmt.Errorf("open stores: unknown backend %q", cfg.Backend)
}

// Migrate creates the cache tables. Key-value backends need no schema.
func (s *Stores) Migrate(ctx context.Context) error {
	if s.sqlDB == nil {
		return nil
	}
	return cache.InitSchema(ctx, s.sqlDB, s.dialect)
}

// Seed writes precomputed pairs from a JSON file into the distance store.
func (s *Stores) Seed(ctx context.Context, path string) (int, error) {
	if s.Distances == nil {
		return 0, fmt.Errorf("seed: store backend has no persistent tier")
	}
	return cache.SeedDistances(ctx, s.Distances, path)
}

func (s *Stores) Close() error {
	switch {
	case s.sqlDB != nil:
		return s.sqlDB.Close()
	case s.redis != nil:
		return s.redis.Close()
	}
	return nil
}
