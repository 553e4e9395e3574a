package tripplans

import (
	"context"
	"database/sql"
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
	_, err = db.Exec(`INSERT INTO owners (id, created_at, updated_at) VALUES ('u1', 't', 't')`)
	require.NoError(t, err)
	for _, e := range []string{"e1", "e2"} {
		_, err = db.Exec(`
			INSERT INTO entry_infos (id, owner_id, created_at, updated_at)
			VALUES (?, 'u1', 't', 't')
		`, e)
		require.NoError(t, err)
	}
	return db
}

func strptr(s string) *string { return &s }

func TestSave_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, logging.NewNop())
	ctx := context.Background()

	res, err := r.Save(ctx, &models.TripPlan{
		OwnerID:       "u1",
		Destination:   strptr("TH"),
		Purpose:       strptr("  holiday "),
		ArrivalDate:   strptr("2026-01-15"),
		ArrivalFlight: strptr("TG915"),
		InTransit:     false,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	assert.Empty(t, res.Displaced)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "holiday", *res.Plan.Purpose)
	assert.Equal(t, "2026-01-15", *res.Plan.ArrivalDate)

	got, err := r.GetByID(ctx, res.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Plan, got)
}

func TestSave_LinkConflictIsRepaired(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, logging.NewNop())
	ctx := context.Background()

	first, err := r.Save(ctx, &models.TripPlan{
		OwnerID: "u1", Destination: strptr("TH"), EntryInfoID: strptr("e1"),
	})
	require.NoError(t, err)

	second, err := r.Save(ctx, &models.TripPlan{
		OwnerID: "u1", Destination: strptr("TH"), EntryInfoID: strptr("e1"),
	})
	require.NoError(t, err, "a duplicate link must not surface as an error")

	require.Len(t, second.Displaced, 1)
	assert.Equal(t, first.Plan.ID, second.Displaced[0].ID)
	assert.NotEmpty(t, second.Warning)

	// Exactly one plan references e1, and it is the most recently saved.
	holder, err := r.GetByEntryInfoID(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, second.Plan.ID, holder.ID)

	n, err := r.CountByOwnerID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSave_ResaveSamePlanKeepsLink(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, logging.NewNop())
	ctx := context.Background()

	res, err := r.Save(ctx, &models.TripPlan{
		OwnerID: "u1", Destination: strptr("TH"), EntryInfoID: strptr("e1"),
	})
	require.NoError(t, err)

	again, err := r.Save(ctx, &models.TripPlan{
		ID: res.Plan.ID, OwnerID: "u1", Destination: strptr("TH"),
		EntryInfoID: strptr("e1"), Purpose: strptr("business"),
	})
	require.NoError(t, err)
	assert.Empty(t, again.Displaced, "re-saving the holder is not a conflict")
	assert.Equal(t, "business", *again.Plan.Purpose)
}

func TestRepairAndRetry_DestinationStrategy(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, logging.NewNop())
	ctx := context.Background()

	// Two lingering drafts: one competing on destination, one on the link.
	_, err := db.Exec(`
		INSERT INTO trip_plans (id, owner_id, destination, entry_info_id, created_at, updated_at)
		VALUES ('old-dest', 'u1', 'TH', NULL, 't', 't'),
		       ('old-link', 'u1', 'SG', 'e1', 't', 't')
	`)
	require.NoError(t, err)

	row := &models.TripPlan{
		ID: "fresh", OwnerID: "u1",
		Destination: strptr("TH"), EntryInfoID: strptr("e1"),
	}
	displaced, err := r.repairAndRetry(ctx, row, "t2")
	require.NoError(t, err)

	ids := make([]string, 0, len(displaced))
	for _, p := range displaced {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"old-dest", "old-link"}, ids)

	holder, err := r.GetByEntryInfoID(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, "fresh", holder.ID)
}

func TestRepairAndRetry_NullDestinationStrategy(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, logging.NewNop())
	ctx := context.Background()

	_, err := db.Exec(`
		INSERT INTO trip_plans (id, owner_id, destination, entry_info_id, created_at, updated_at)
		VALUES ('old-null', 'u1', NULL, NULL, 't', 't')
	`)
	require.NoError(t, err)

	row := &models.TripPlan{ID: "fresh", OwnerID: "u1"}
	displaced, err := r.repairAndRetry(ctx, row, "t2")
	require.NoError(t, err)
	require.Len(t, displaced, 1)
	assert.Equal(t, "old-null", displaced[0].ID)
}

func TestGetByOwnerID_NewestFirst(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, logging.NewNop())
	ctx := context.Background()

	a, err := r.Save(ctx, &models.TripPlan{OwnerID: "u1", Destination: strptr("TH")})
	require.NoError(t, err)
	b, err := r.Save(ctx, &models.TripPlan{OwnerID: "u1", Destination: strptr("SG")})
	require.NoError(t, err)

	list, err := r.GetByOwnerID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.Plan.ID, list[0].ID)
	assert.Equal(t, a.Plan.ID, list[1].ID)
}
