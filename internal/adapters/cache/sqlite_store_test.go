package cache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-dispatch-service/internal/domain"
	"freight-dispatch-service/internal/platform/db"
	"freight-dispatch-service/internal/ports"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, InitSchema(ctx, conn, db.SQLite))
	return conn
}

func TestSqliteDistanceStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSqliteDistanceStore(openTestSQLite(t))

	err := store.PutMany(ctx, "Brandon, MB", map[string]ports.DistanceResult{
		"Winnipeg, MB": {Status: ports.StatusOK, DistanceMeters: 214000, DurationSeconds: 8100},
		"Atlantis":     {Status: ports.StatusNotFound},
	})
	require.NoError(t, err)

	got, err := store.GetMany(ctx, "Brandon, MB", []string{"Winnipeg, MB", "Atlantis", "Regina, SK", "Winnipeg, MB", " "})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, ports.StatusOK, got["Winnipeg, MB"].Status)
	assert.Equal(t, 214000, got["Winnipeg, MB"].DistanceMeters)
	assert.Equal(t, ports.StatusNotFound, got["Atlantis"].Status)
	assert.NotContains(t, got, "Regina, SK")
}

func TestSqliteDistanceStoreIsDirectional(t *testing.T) {
	ctx := context.Background()
	store := NewSqliteDistanceStore(openTestSQLite(t))

	require.NoError(t, store.PutMany(ctx, "A", map[string]ports.DistanceResult{
		"B": {Status: ports.StatusOK, DistanceMeters: 1000},
	}))

	got, err := store.GetMany(ctx, "B", []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSqliteDistanceStoreOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewSqliteDistanceStore(openTestSQLite(t))

	require.NoError(t, store.PutMany(ctx, "A", map[string]ports.DistanceResult{"B": {Status: ports.StatusNotFound}}))
	require.NoError(t, store.PutMany(ctx, "A", map[string]ports.DistanceResult{"B": {Status: ports.StatusOK, DistanceMeters: 5}}))

	got, err := store.GetMany(ctx, "A", []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, ports.DistanceResult{Status: ports.StatusOK, DistanceMeters: 5}, got["B"])
}

func TestSqliteDistanceStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := NewSqliteDistanceStore(openTestSQLite(t))

	_, err := store.GetMany(ctx, "", []string{"B"})
	assert.Error(t, err)

	err = store.PutMany(ctx, "A", map[string]ports.DistanceResult{"": {Status: ports.StatusOK}})
	assert.Error(t, err)

	_, err = NewSqliteDistanceStore(nil).GetMany(ctx, "A", []string{"B"})
	assert.ErrorContains(t, err, "db is nil")
}

func TestSqliteGeocodeStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSqliteGeocodeStore(openTestSQLite(t))

	require.NoError(t, store.PutMany(ctx, map[string]domain.Coordinates{
		"Brandon, MB": {Lon: -99.95, Lat: 49.84},
	}))

	got, err := store.GetMany(ctx, []string{"Brandon, MB", "Nowhere"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, -99.95, got["Brandon, MB"].Lon, 1e-9)
	assert.InDelta(t, 49.84, got["Brandon, MB"].Lat, 1e-9)
}

func TestSeedDistances(t *testing.T) {
	ctx := context.Background()
	store := NewSqliteDistanceStore(openTestSQLite(t))

	path := filepath.Join(t.TempDir(), "distances.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"origin": "brandon,  mb", "destination": "winnipeg, mb", "km": 214.2},
		{"origin": "Brandon, MB", "destination": "Atlantis", "km": null}
	]`), 0o600))

	n, err := SeedDistances(ctx, store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.GetMany(ctx, "Brandon, MB", []string{"Winnipeg, MB", "Atlantis"})
	require.NoError(t, err)
	assert.Equal(t, 214200, got["Winnipeg, MB"].DistanceMeters)
	assert.Equal(t, ports.StatusNotFound, got["Atlantis"].Status)
}

func TestSeedDistancesRejectsBlankCity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distances.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"origin": "", "destination": "X", "km": 1}]`), 0o600))

	_, err := SeedDistances(context.Background(), NewSqliteDistanceStore(openTestSQLite(t)), path)
	assert.ErrorContains(t, err, "item 1")
}
