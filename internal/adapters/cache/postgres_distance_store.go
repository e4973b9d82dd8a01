package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"freight-dispatch-service/internal/platform/obs"
	"freight-dispatch-service/internal/ports"
)

// PostgresDistanceStore persists directional distance lookups, including
// not-found answers, in the distance_cache table.
type PostgresDistanceStore struct {
	DB *sql.DB
}

func NewPostgresDistanceStore(db *sql.DB) *PostgresDistanceStore {
	return &PostgresDistanceStore{DB: db}
}

// Fetch stored distances for one origin and multiple destinations.
func (s *PostgresDistanceStore) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.store.postgres.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance store: db is nil")
	}
	if origin == "" {
		return nil, errors.New("get distance store: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	q := `
	SELECT destination, status, distance_meters, duration_seconds
    FROM distance_cache
    WHERE origin = $1
        AND destination = ANY($2::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, origin, uniq)
	if err != nil {
		return nil, fmt.Errorf("get distance store: query distance_cache table: %w", err)
	}
	defer rows.Close()

	return scanDistanceRows(rows, len(uniq))
}

// Store results for a single origin, overwriting earlier answers.
func (s *PostgresDistanceStore) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.store.postgres.PutMany")(&err)

	if s.DB == nil {
		return errors.New("distance store: db is nil")
	}
	if origin == "" {
		return errors.New("insert distance store: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance store: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO distance_cache (origin, destination, status, distance_meters, duration_seconds)
    VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (origin, destination) DO UPDATE
	SET status = EXCLUDED.status,
		distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds;
	`)
	if err != nil {
		return fmt.Errorf("insert distance store: db prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert distance store: empty destination key")
		}
		if _, err := stmt.ExecContext(ctx, origin, dest, string(r.Status), r.DistanceMeters, r.DurationSeconds); err != nil {
			return fmt.Errorf("insert distance store dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance store commit: %w", err)
	}

	return nil
}

func scanDistanceRows(rows *sql.Rows, hint int) (map[string]ports.DistanceResult, error) {
	out := make(map[string]ports.DistanceResult, hint)
	for rows.Next() {
		var dest, status string
		var meters, seconds int
		if err := rows.Scan(&dest, &status, &meters, &seconds); err != nil {
			return nil, fmt.Errorf("get distance store: scan rows: %w", err)
		}
		out[dest] = ports.DistanceResult{
			Status:          parseStatus(status),
			DistanceMeters:  meters,
			DurationSeconds: seconds,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance store: row iteration: %w", err)
	}
	return out, nil
}

func parseStatus(s string) ports.ElementStatus {
	if ports.ElementStatus(s) == ports.StatusOK {
		return ports.StatusOK
	}
	return ports.StatusNotFound
}
