// Package schema declares every table and index of the travel-document
// store and brings an opened database file up to the current shape.
// Ensure is idempotent: it creates missing tables, applies outstanding
// additive migrations (before index creation, since a migration may add a
// column an index references), then (re)builds indexes.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tripvault/internal/dbx"
	"tripvault/internal/logging"
)

// CurrentVersion is the schema generation written to the version ledger.
// Bump it whenever a migration step is added.
const CurrentVersion = 3

// versionKey is the settings-table key holding the version ledger.
const versionKey = "schema_version"

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS owners (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS identity_documents (
		id              TEXT PRIMARY KEY,
		owner_id        TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
		document_number TEXT,
		full_name       TEXT,
		date_of_birth   TEXT,
		nationality     TEXT,
		gender          TEXT,
		issue_date      TEXT,
		expiry_date     TEXT,
		photo_ref       TEXT,
		is_primary      INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS personal_profiles (
		id                   TEXT PRIMARY KEY,
		owner_id             TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
		phone                TEXT,
		email                TEXT,
		home_address         TEXT,
		occupation           TEXT,
		province_of_residence TEXT,
		country_of_residence  TEXT,
		identity_document_id  TEXT REFERENCES identity_documents(id) ON DELETE SET NULL,
		is_default           INTEGER NOT NULL DEFAULT 0,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS entry_infos (
		id                   TEXT PRIMARY KEY,
		owner_id             TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
		destination_id       TEXT,
		status               TEXT NOT NULL DEFAULT 'draft',
		completion_percent   INTEGER NOT NULL DEFAULT 0,
		attached_documents   TEXT NOT NULL DEFAULT '[]',
		display_status       TEXT,
		identity_document_id TEXT REFERENCES identity_documents(id) ON DELETE SET NULL,
		personal_profile_id  TEXT REFERENCES personal_profiles(id) ON DELETE SET NULL,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS trip_plans (
		id                    TEXT PRIMARY KEY,
		owner_id              TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
		destination           TEXT,
		purpose               TEXT,
		arrival_flight        TEXT,
		arrival_date          TEXT,
		departure_flight      TEXT,
		departure_date        TEXT,
		accommodation_type    TEXT,
		accommodation_name    TEXT,
		accommodation_address TEXT,
		in_transit            INTEGER NOT NULL DEFAULT 0,
		entry_info_id         TEXT REFERENCES entry_infos(id) ON DELETE SET NULL,
		created_at            TEXT NOT NULL,
		updated_at            TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS fund_items (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
		fund_type  TEXT,
		amount     REAL NOT NULL DEFAULT 0,
		currency   TEXT,
		detail     TEXT,
		photo_ref  TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS entry_info_fund_items (
		entry_info_id TEXT NOT NULL REFERENCES entry_infos(id) ON DELETE CASCADE,
		fund_item_id  TEXT NOT NULL REFERENCES fund_items(id) ON DELETE CASCADE,
		created_at    TEXT NOT NULL,
		PRIMARY KEY (entry_info_id, fund_item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS arrival_card_receipts (
		id                  TEXT PRIMARY KEY,
		owner_id            TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
		entry_info_id       TEXT NOT NULL REFERENCES entry_infos(id) ON DELETE CASCADE,
		card_type           TEXT NOT NULL,
		destination         TEXT,
		confirmation_number TEXT,
		receipt_image_ref   TEXT,
		submission_method   TEXT,
		status              TEXT NOT NULL DEFAULT 'pending',
		is_superseded       INTEGER NOT NULL DEFAULT 0,
		superseded_at       TEXT,
		superseded_by       TEXT,
		superseded_reason   TEXT,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS snapshots (
		id             TEXT PRIMARY KEY,
		owner_id       TEXT NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
		entry_info_id  TEXT,
		payload        TEXT NOT NULL,
		is_complete    INTEGER NOT NULL DEFAULT 0,
		photo_manifest TEXT NOT NULL DEFAULT '[]',
		created_at     TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id     TEXT NOT NULL,
		action       TEXT NOT NULL,
		target_table TEXT NOT NULL,
		target_id    TEXT,
		detail       TEXT,
		created_at   TEXT NOT NULL
	)`,
}

// Index creation runs after migrations so an index may reference a
// migrated column. The partial unique indexes back the structural
// invariants: one primary document and one default profile per owner,
// one trip plan per entry info, one active success receipt per
// (entry info, card type).
var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_identity_documents_owner ON identity_documents(owner_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_identity_documents_primary
		ON identity_documents(owner_id) WHERE is_primary = 1`,

	`CREATE INDEX IF NOT EXISTS idx_personal_profiles_owner ON personal_profiles(owner_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_personal_profiles_default
		ON personal_profiles(owner_id) WHERE is_default = 1`,

	`CREATE INDEX IF NOT EXISTS idx_entry_infos_owner ON entry_infos(owner_id)`,

	`CREATE INDEX IF NOT EXISTS idx_trip_plans_owner ON trip_plans(owner_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_trip_plans_entry_info
		ON trip_plans(entry_info_id) WHERE entry_info_id IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS idx_fund_items_owner ON fund_items(owner_id)`,

	`CREATE INDEX IF NOT EXISTS idx_receipts_entry_info
		ON arrival_card_receipts(entry_info_id, card_type)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_receipts_active
		ON arrival_card_receipts(entry_info_id, card_type)
		WHERE status = 'success' AND is_superseded = 0`,

	`CREATE INDEX IF NOT EXISTS idx_snapshots_owner ON snapshots(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_owner ON audit_log(owner_id, seq)`,
}

// Result reports what Ensure did. StepErrors aggregates failed migration
// steps; such failures are diagnostics, not fatal, because migrations run
// against databases in varying prior states.
type Result struct {
	FreshInstall bool
	FromVersion  int
	StepErrors   error
}

// Ensure brings db to the current schema. Table or index creation failure
// is fatal; individual migration failures are logged, collected into
// Result.StepErrors, and skipped. A skipped step keeps the version ledger
// at its prior value so the step runs again on the next open.
func Ensure(ctx context.Context, db *sql.DB, log logging.Logger) (*Result, error) {
	res := &Result{}

	fresh, err := isFreshDatabase(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("schema introspection: %w", err)
	}
	res.FreshInstall = fresh

	for _, stmt := range createStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("schema creation: %w", err)
		}
	}

	if fresh {
		// A fresh database is created at the current shape; record that in
		// the ledger so future opens skip migration entirely.
		if err := writeVersion(ctx, db, CurrentVersion); err != nil {
			return nil, err
		}
		res.FromVersion = CurrentVersion
	} else {
		version, err := readVersion(ctx, db)
		if err != nil {
			return nil, err
		}
		res.FromVersion = version
		if version < CurrentVersion {
			res.StepErrors = runMigrations(ctx, db, log)
			// The ledger advances only when every step applied. Steps are
			// introspective and idempotent, so a skipped step is re-attempted
			// on the next open instead of being recorded as done.
			if res.StepErrors == nil {
				if err := writeVersion(ctx, db, CurrentVersion); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, stmt := range indexStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("index creation: %w", err)
		}
	}

	return res, nil
}

// isFreshDatabase reports whether no prior installation exists. The
// identity_documents table has existed since the first schema
// generation, so its absence means a brand-new file. (The settings table
// is a later addition and cannot serve as the probe.)
func isFreshDatabase(ctx context.Context, q dbx.DBTX) (bool, error) {
	exists, err := tableExists(ctx, q, "identity_documents")
	return !exists, err
}

func tableExists(ctx context.Context, q dbx.DBTX, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func readVersion(ctx context.Context, q dbx.DBTX) (int, error) {
	var v int
	err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, versionKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version ledger: %w", err)
	}
	return v, nil
}

func writeVersion(ctx context.Context, q dbx.DBTX, v int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, versionKey, fmt.Sprintf("%d", v))
	if err != nil {
		return fmt.Errorf("write version ledger: %w", err)
	}
	return nil
}
