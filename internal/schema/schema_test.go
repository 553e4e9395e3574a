package schema

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"tripvault/internal/logging"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)
	return db
}

func TestEnsure_FreshDatabase(t *testing.T) {
	db := setupDB(t)

	res, err := Ensure(context.Background(), db, logging.NewNop())
	require.NoError(t, err)
	assert.True(t, res.FreshInstall)
	assert.NoError(t, res.StepErrors)

	for _, table := range []string{
		"settings", "owners", "identity_documents", "personal_profiles",
		"entry_infos", "trip_plans", "fund_items", "entry_info_fund_items",
		"arrival_card_receipts", "snapshots", "audit_log",
	} {
		ok, err := tableExists(context.Background(), db, table)
		require.NoError(t, err)
		assert.True(t, ok, "missing table %s", table)
	}

	v, err := readVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, v, "fresh install must record the current version")
}

func TestEnsure_Idempotent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := Ensure(ctx, db, logging.NewNop())
	require.NoError(t, err)
	res, err := Ensure(ctx, db, logging.NewNop())
	require.NoError(t, err)
	assert.False(t, res.FreshInstall)
	assert.NoError(t, res.StepErrors)

	// No duplicate indexes after the second run.
	var n int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'index' AND name = 'uq_identity_documents_primary'
	`).Scan(&n))
	assert.Equal(t, 1, n)
}

// legacyV1 creates the first-generation shape: no settings ledger, no
// submission_method/display_status/in_transit columns, and a NOT NULL
// entry_info_id with '' standing in for "no link".
func legacyV1(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE owners (id TEXT PRIMARY KEY, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE identity_documents (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL,
			document_number TEXT, full_name TEXT, date_of_birth TEXT,
			nationality TEXT, gender TEXT, issue_date TEXT, expiry_date TEXT,
			photo_ref TEXT, is_primary INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE personal_profiles (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL,
			phone TEXT, email TEXT, home_address TEXT, occupation TEXT,
			province_of_residence TEXT, country_of_residence TEXT,
			identity_document_id TEXT, is_default INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE entry_infos (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL,
			destination_id TEXT, status TEXT NOT NULL DEFAULT 'draft',
			completion_percent INTEGER NOT NULL DEFAULT 0,
			attached_documents TEXT NOT NULL DEFAULT '[]',
			identity_document_id TEXT, personal_profile_id TEXT,
			created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE trip_plans (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL,
			destination TEXT, purpose TEXT,
			arrival_flight TEXT, arrival_date TEXT,
			departure_flight TEXT, departure_date TEXT,
			accommodation_type TEXT, accommodation_name TEXT, accommodation_address TEXT,
			entry_info_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE fund_items (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL,
			fund_type TEXT, amount REAL NOT NULL DEFAULT 0, currency TEXT,
			detail TEXT, photo_ref TEXT,
			created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE entry_info_fund_items (
			entry_info_id TEXT NOT NULL, fund_item_id TEXT NOT NULL, created_at TEXT NOT NULL,
			PRIMARY KEY (entry_info_id, fund_item_id))`,
		`CREATE TABLE arrival_card_receipts (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL, entry_info_id TEXT NOT NULL,
			card_type TEXT NOT NULL, destination TEXT, confirmation_number TEXT,
			receipt_image_ref TEXT, status TEXT NOT NULL DEFAULT 'pending',
			is_superseded INTEGER NOT NULL DEFAULT 0,
			superseded_at TEXT, superseded_by TEXT, superseded_reason TEXT,
			created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE snapshots (
			id TEXT PRIMARY KEY, owner_id TEXT NOT NULL, entry_info_id TEXT,
			payload TEXT NOT NULL, is_complete INTEGER NOT NULL DEFAULT 0,
			photo_manifest TEXT NOT NULL DEFAULT '[]', created_at TEXT NOT NULL)`,
		`CREATE TABLE audit_log (
			seq INTEGER PRIMARY KEY AUTOINCREMENT, owner_id TEXT NOT NULL,
			action TEXT NOT NULL, target_table TEXT NOT NULL, target_id TEXT,
			detail TEXT, created_at TEXT NOT NULL)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

func TestEnsure_MigratesLegacyV1(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	legacyV1(t, db)

	// Seed rows that must survive the rebuild, including a '' link.
	_, err := db.Exec(`INSERT INTO owners (id, created_at, updated_at) VALUES ('u1', 't', 't')`)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO trip_plans (id, owner_id, destination, entry_info_id, created_at, updated_at)
		VALUES ('p1', 'u1', 'TH', '', 't', 't'), ('p2', 'u1', 'SG', 'e1', 't', 't')
	`)
	require.NoError(t, err)

	res, err := Ensure(ctx, db, logging.NewNop())
	require.NoError(t, err)
	assert.False(t, res.FreshInstall)
	assert.Equal(t, 0, res.FromVersion)
	assert.NoError(t, res.StepErrors)

	// Added columns exist.
	for table, column := range map[string]string{
		"arrival_card_receipts": "submission_method",
		"entry_infos":           "display_status",
		"trip_plans":            "in_transit",
	} {
		cols, err := tableColumns(ctx, db, table)
		require.NoError(t, err)
		_, ok := cols[column]
		assert.True(t, ok, "%s.%s missing after migration", table, column)
	}

	// Rebuild made the link nullable and mapped '' to NULL.
	cols, err := tableColumns(ctx, db, "trip_plans")
	require.NoError(t, err)
	assert.False(t, cols["entry_info_id"].notNull)

	var link *string
	require.NoError(t, db.QueryRow(`SELECT entry_info_id FROM trip_plans WHERE id = 'p1'`).Scan(&link))
	assert.Nil(t, link)
	require.NoError(t, db.QueryRow(`SELECT entry_info_id FROM trip_plans WHERE id = 'p2'`).Scan(&link))
	require.NotNil(t, link)
	assert.Equal(t, "e1", *link)

	v, err := readVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, v)

	// Second run is a no-op: ledger says current, steps skipped.
	res, err = Ensure(ctx, db, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, res.FromVersion)
}

func TestEnsure_FailingStepIsNonFatal(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	legacyV1(t, db)

	// Occupy the scratch name the trip_plans rebuild renames into, so that
	// one step fails while the add-column steps proceed.
	_, err := db.Exec(`CREATE TABLE trip_plans_old (x INTEGER)`)
	require.NoError(t, err)

	res, err := Ensure(ctx, db, logging.NewNop())
	require.NoError(t, err, "a failing step must not abort schema initialization")
	assert.Error(t, res.StepErrors)

	// The independent steps still ran.
	for table, column := range map[string]string{
		"arrival_card_receipts": "submission_method",
		"entry_infos":           "display_status",
		"trip_plans":            "in_transit",
	} {
		cols, err := tableColumns(ctx, db, table)
		require.NoError(t, err)
		_, ok := cols[column]
		assert.True(t, ok, "%s.%s missing", table, column)
	}

	// The rebuild was skipped: the link column is still NOT NULL.
	cols, err := tableColumns(ctx, db, "trip_plans")
	require.NoError(t, err)
	assert.True(t, cols["entry_info_id"].notNull)
}

func TestEnsure_FailedStepRetriedOnNextOpen(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	legacyV1(t, db)
	_, err := db.Exec(`CREATE TABLE trip_plans_old (x INTEGER)`)
	require.NoError(t, err)

	res, err := Ensure(ctx, db, logging.NewNop())
	require.NoError(t, err)
	require.Error(t, res.StepErrors)

	// A skipped step must not advance the ledger.
	v, err := readVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	// Clear the obstruction; the next open runs the step and completes.
	_, err = db.Exec(`DROP TABLE trip_plans_old`)
	require.NoError(t, err)

	res, err = Ensure(ctx, db, logging.NewNop())
	require.NoError(t, err)
	assert.NoError(t, res.StepErrors)

	cols, err := tableColumns(ctx, db, "trip_plans")
	require.NoError(t, err)
	assert.False(t, cols["entry_info_id"].notNull)

	v, err = readVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, v)
}
