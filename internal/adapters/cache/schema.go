package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/db"
	"freight-dispatch-service/internal/ports"
)

// InitSchema creates the distance and geocode cache tables.
func InitSchema(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	realType := "REAL"
	if dialect == db.Postgres {
		realType = "DOUBLE PRECISION"
	}

	statements := []string{
		`
	CREATE TABLE IF NOT EXISTS distance_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        status TEXT NOT NULL DEFAULT 'ok',
        distance_meters INTEGER NOT NULL,
        duration_seconds INTEGER NOT NULL,
        PRIMARY KEY (origin, destination)
    );
	`,
		fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon %[1]s NOT NULL,
        lat %[1]s NOT NULL
    );
	`, realType),
		`
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
    ON distance_cache(destination, origin);
	`,
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}

// DistanceSeed is one precomputed pair. A nil Km records a known not-found answer.
type DistanceSeed struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Km          *float64 `json:"km"`
}

// SeedDistances loads precomputed pairs from a JSON file into store.
// City names are canonicalized before writing. Returns the number of pairs stored.
func SeedDistances(ctx context.Context, store ports.DistanceStore, jsonPath string) (int, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed distances: read %q: %w", jsonPath, err)
	}

	var data []DistanceSeed
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, fmt.Errorf("seed distances: parse json: %w", err)
	}

	byOrigin := map[string]map[string]ports.DistanceResult{}
	for i, item := range data {
		origin := domain.NormalizeCity(item.Origin)
		dest := domain.NormalizeCity(item.Destination)
		if origin == "" || dest == "" {
			return 0, fmt.Errorf("seed distances: item %d: origin and destination are required", i+1)
		}

		r := ports.DistanceResult{Status: ports.StatusNotFound}
		if item.Km != nil {
			if *item.Km < 0 {
				return 0, fmt.Errorf("seed distances: item %d: negative km", i+1)
			}
			r = ports.DistanceResult{Status: ports.StatusOK, DistanceMeters: int(math.Round(*item.Km * 1000))}
		}

		if byOrigin[origin] == nil {
			byOrigin[origin] = map[string]ports.DistanceResult{}
		}
		byOrigin[origin][dest] = r
	}

	origins := make([]string, 0, len(byOrigin))
	for o := range byOrigin {
		origins = append(origins, o)
	}
	sort.Strings(origins)

	n := 0
	for _, o := range origins {
		if err := store.PutMany(ctx, o, byOrigin[o]); err != nil {
			return n, fmt.Errorf("seed distances: %w", err)
		}
		n += len(byOrigin[o])
	}
	return n, nil
}
