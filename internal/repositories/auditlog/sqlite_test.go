package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"tripvault/internal/logging"
	"tripvault/internal/models"
	"tripvault/internal/schema"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)
	_, err = schema.Ensure(context.Background(), db, logging.NewNop())
	require.NoError(t, err)
	return db
}

func TestAppend_AssignsSequence(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, 0)
	ctx := context.Background()

	first, err := r.Append(ctx, &models.AuditEntry{
		OwnerID:     "u1",
		Action:      "save",
		TargetTable: "identity_documents",
		TargetID:    "d1",
	})
	require.NoError(t, err)
	assert.Positive(t, first.Seq)
	assert.NotEmpty(t, first.CreatedAt)

	second, err := r.Append(ctx, &models.AuditEntry{
		OwnerID:     "u1",
		Action:      "delete",
		TargetTable: "identity_documents",
		TargetID:    "d1",
	})
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestByOwner_NewestFirstAndLimited(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := r.Append(ctx, &models.AuditEntry{
			OwnerID:     "u1",
			Action:      "save",
			TargetTable: "trip_plans",
			TargetID:    fmt.Sprintf("p%d", i),
		})
		require.NoError(t, err)
	}
	_, err := r.Append(ctx, &models.AuditEntry{
		OwnerID:     "u2",
		Action:      "save",
		TargetTable: "trip_plans",
	})
	require.NoError(t, err)

	entries, err := r.ByOwner(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "p4", entries[0].TargetID)
	assert.Equal(t, "p2", entries[2].TargetID)

	all, err := r.ByOwner(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestAppend_TrimsAtCap(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, 10)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := r.Append(ctx, &models.AuditEntry{
			OwnerID:     "u1",
			Action:      "save",
			TargetTable: "fund_items",
			TargetID:    fmt.Sprintf("f%d", i),
		})
		require.NoError(t, err)
	}

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	// Survivors are the newest ten.
	entries, err := r.ByOwner(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	assert.Equal(t, "f24", entries[0].TargetID)
	assert.Equal(t, "f15", entries[9].TargetID)
}

func TestRecent_SpansOwners(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, 0)
	ctx := context.Background()

	for _, owner := range []string{"u1", "u2", "u1"} {
		_, err := r.Append(ctx, &models.AuditEntry{
			OwnerID:     owner,
			Action:      "save",
			TargetTable: "snapshots",
		})
		require.NoError(t, err)
	}

	entries, err := r.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "u1", entries[0].OwnerID)
	assert.Equal(t, "u2", entries[1].OwnerID)
}

func TestDeleteByOwnerID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, 0)
	ctx := context.Background()

	for _, owner := range []string{"u1", "u1", "u2"} {
		_, err := r.Append(ctx, &models.AuditEntry{
			OwnerID:     owner,
			Action:      "save",
			TargetTable: "owners",
		})
		require.NoError(t, err)
	}

	n, err := r.DeleteByOwnerID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := r.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "u2", remaining[0].OwnerID)
}
