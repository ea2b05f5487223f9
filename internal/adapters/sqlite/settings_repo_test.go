package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/w2w-movies/w2w/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v, err := db.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, db.Migrate(ctx))
	v, err = db.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestExtractUp(t *testing.T) {
	src := "-- +migrate Up\nCREATE TABLE a(x);\n-- +migrate Down\nDROP TABLE a;\n"
	require.Equal(t, "CREATE TABLE a(x);", extractUp(src))
}

func TestSettingsRepository_DefaultsAndPersist(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(openTestDB(t).SQL)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSettings(), got)

	want := domain.DefaultSettings()
	want.PageSize = 24
	want.SearchDebounceMs = 300
	want.MaxConcurrentRequests = 2
	want.PreferredStream = domain.StreamEmbed

	updated, err := repo.Put(ctx, want)
	require.NoError(t, err)
	require.Equal(t, want, updated)

	got2, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got2)
}

func TestSettingsRepository_PartialDocumentKeepsDefaults(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.SQL.ExecContext(ctx, `INSERT INTO settings(key, value_json, updated_at) VALUES(?, ?, ?)`,
		settingsKey, []byte(`{"pageSize":30}`), "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	got, err := NewSettingsRepository(db.SQL).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 30, got.PageSize)
	require.Equal(t, domain.DefaultSettings().SearchDebounceMs, got.SearchDebounceMs)
}

func TestSettingsRepository_CorruptDocumentIsReportedThenOverwritten(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.SQL.ExecContext(ctx, `INSERT INTO settings(key, value_json, updated_at) VALUES(?, ?, ?)`,
		settingsKey, []byte(`{"pageSize":`), "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	repo := NewSettingsRepository(db.SQL)
	_, err = repo.Get(ctx)
	require.ErrorContains(t, err, "decode stored document")

	updated, err := repo.Put(ctx, domain.DefaultSettings())
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSettings(), updated)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSettings(), got)
}
