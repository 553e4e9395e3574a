package settings

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"tripvault/internal/logging"
	"tripvault/internal/schema"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = schema.Ensure(context.Background(), db, logging.NewNop())
	require.NoError(t, err)
	return db
}

func TestGetSetDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, found, err := r.Get(ctx, "encryption_salt")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Set(ctx, "encryption_salt", "abc123"))

	value, found, err := r.Get(ctx, "encryption_salt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc123", value)

	// Upsert overwrites.
	require.NoError(t, r.Set(ctx, "encryption_salt", "def456"))
	value, _, err = r.Get(ctx, "encryption_salt")
	require.NoError(t, err)
	assert.Equal(t, "def456", value)

	require.NoError(t, r.Delete(ctx, "encryption_salt"))
	_, found, err = r.Get(ctx, "encryption_salt")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is fine.
	require.NoError(t, r.Delete(ctx, "encryption_salt"))
}
