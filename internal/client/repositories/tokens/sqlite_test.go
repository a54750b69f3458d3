package tokens

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE deletion_tokens (
  file_name   TEXT PRIMARY KEY,
  token       TEXT NOT NULL,
  uploaded_at INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a.png", "t1", at))

	v, err := r.Get(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)
}

func TestGet_MissingIsEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSet_ReplaceKeepsLatestToken(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a.png", "old", at))
	require.NoError(t, r.Set(ctx, "a.png", "new", at.Add(time.Hour)))

	v, err := r.Get(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}

func TestDeleteAndList(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a.png", "ta", at))
	require.NoError(t, r.Set(ctx, "b.png", "tb", at))
	require.NoError(t, r.Delete(ctx, "a.png"))
	require.NoError(t, r.Delete(ctx, "a.png"))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b.png": "tb"}, m)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, "failed to get token[k]")

	assert.ErrorContains(t, r.Set(ctx, "k", "v", at), "failed to set token[k]")
	assert.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete token[k]")

	_, err = r.List(ctx)
	assert.ErrorContains(t, err, "failed to list tokens")
}
