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

// SQLite backed store for origin->destination distance results.
// Keys are expected to be canonical city names.
type SqliteDistanceStore struct {
	DB *sql.DB
}

func NewSqliteDistanceStore(db *sql.DB) *SqliteDistanceStore {
	return &SqliteDistanceStore{DB: db}
}

// Fetch stored distances for one origin and multiple destinations.
func (s *SqliteDistanceStore) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.store.sqlite.GetMany")(&err)

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

	args := make([]any, 0, 1+len(uniq))
	args = append(args, origin)
	for _, d := range uniq {
		args = append(args, d)
	}

	// SQLite cannot bind a slice to IN (...); only the placeholder list is interpolated.
	q := fmt.Sprintf(`
	SELECT
        destination,
        status,
        distance_meters,
        duration_seconds
    FROM distance_cache
    WHERE origin = ?
        AND destination IN (%s);
	`, placeholders(len(uniq)))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get distance store: query distance_cache table: %w", err)
	}
	defer rows.Close()

	return scanDistanceRows(rows, len(uniq))
}

// Store results for a single origin, overwriting earlier answers.
func (s *SqliteDistanceStore) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.store.sqlite.PutMany")(&err)

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
	INSERT OR REPLACE INTO distance_cache (
        origin,
        destination,
        status,
        distance_meters,
        duration_seconds
    )
    VALUES (?, ?, ?, ?, ?)
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

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ",")
}
