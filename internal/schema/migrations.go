package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"tripvault/internal/common"
	"tripvault/internal/dbx"
	"tripvault/internal/logging"
)

// A migration is one structural change detected by introspecting the live
// table definition and applied additively. Steps must tolerate databases
// in any prior state: apply returns nil when the change is already
// present.
type migration struct {
	name  string
	apply func(ctx context.Context, db *sql.DB) error
}

var migrations = []migration{
	{
		// v2: government endpoints started reporting how a card was
		// submitted (online portal vs. on-arrival kiosk).
		name: "receipts: add submission_method",
		apply: func(ctx context.Context, db *sql.DB) error {
			return addColumnIfMissing(ctx, db, "arrival_card_receipts", "submission_method", "TEXT")
		},
	},
	{
		// v2: entry infos grew a separate user-facing status label.
		name: "entry_infos: add display_status",
		apply: func(ctx context.Context, db *sql.DB) error {
			return addColumnIfMissing(ctx, db, "entry_infos", "display_status", "TEXT")
		},
	},
	{
		// v3: transit passengers fill a reduced card.
		name: "trip_plans: add in_transit",
		apply: func(ctx context.Context, db *sql.DB) error {
			return addColumnIfMissing(ctx, db, "trip_plans", "in_transit", "INTEGER NOT NULL DEFAULT 0")
		},
	},
	{
		// v3: entry_info_id used to be NOT NULL with '' standing in for
		// "no link", which broke the unique link index. Nullability cannot
		// change additively, so the table is rebuilt.
		name:  "trip_plans: make entry_info_id nullable",
		apply: rebuildTripPlansNullableLink,
	},
}

// runMigrations applies each outstanding step independently. A failing
// step is logged and skipped rather than aborting the sequence; the
// aggregated error is surfaced for diagnostics only.
func runMigrations(ctx context.Context, db *sql.DB, log logging.Logger) error {
	var issues error
	for _, m := range migrations {
		if err := m.apply(ctx, db); err != nil {
			step := fmt.Errorf("%w: %s: %v", common.ErrMigration, m.name, err)
			log.Warn(ctx, "migration step skipped", "step", m.name, "error", err)
			issues = multierr.Append(issues, step)
		}
	}
	return issues
}

type columnMeta struct {
	declType string
	notNull  bool
}

// tableColumns introspects a live table via PRAGMA table_info.
func tableColumns(ctx context.Context, q dbx.DBTX, table string) (map[string]columnMeta, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]columnMeta)
	for rows.Next() {
		var (
			cid     int
			name    string
			decl    string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &decl, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("introspect %s: %w", table, err)
		}
		cols[name] = columnMeta{declType: decl, notNull: notNull != 0}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	return cols, nil
}

// addColumnIfMissing applies an additive column change when introspection
// shows the column absent. Already-migrated databases are a no-op.
func addColumnIfMissing(ctx context.Context, db *sql.DB, table, column, decl string) error {
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return err
	}
	if _, ok := cols[column]; ok {
		return nil
	}
	_, err = db.ExecContext(ctx,
		fmt.Sprintf(`ALTER TABLE %q ADD COLUMN %q %s`, table, column, decl))
	if err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

// tripPlanColumns is the explicit copy list for the trip_plans rebuild.
// Kept explicit so a future column addition cannot silently widen the
// copy.
var tripPlanColumns = []string{
	"id", "owner_id", "destination", "purpose",
	"arrival_flight", "arrival_date", "departure_flight", "departure_date",
	"accommodation_type", "accommodation_name", "accommodation_address",
	"in_transit", "entry_info_id", "created_at", "updated_at",
}

// rebuildTripPlansNullableLink rebuilds trip_plans when entry_info_id is
// still declared NOT NULL: rename old, create new with the target shape,
// copy rows by explicit column list (mapping '' links to NULL), drop old.
// The whole rebuild runs in one transaction.
func rebuildTripPlansNullableLink(ctx context.Context, db *sql.DB) error {
	cols, err := tableColumns(ctx, db, "trip_plans")
	if err != nil {
		return err
	}
	meta, ok := cols["entry_info_id"]
	if !ok || !meta.notNull {
		return nil
	}

	// Foreign keys must be off for the rename/copy/drop dance; the pragma
	// is a no-op inside a transaction, so toggle it outside.
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		_, _ = db.ExecContext(ctx, `PRAGMA foreign_keys = ON`)
	}()

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE trip_plans RENAME TO trip_plans_old`); err != nil {
			return fmt.Errorf("rename trip_plans: %w", err)
		}
		if _, err := tx.ExecContext(ctx, currentTripPlansDDL()); err != nil {
			return fmt.Errorf("recreate trip_plans: %w", err)
		}
		list := strings.Join(tripPlanColumns, ", ")
		srcList := strings.Replace(list, "entry_info_id", "NULLIF(entry_info_id, '')", 1)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO trip_plans (%s) SELECT %s FROM trip_plans_old`, list, srcList)); err != nil {
			return fmt.Errorf("copy trip_plans rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE trip_plans_old`); err != nil {
			return fmt.Errorf("drop trip_plans_old: %w", err)
		}
		return nil
	})
}

func currentTripPlansDDL() string {
	for _, stmt := range createStatements {
		if strings.Contains(stmt, "trip_plans (") {
			return stmt
		}
	}
	panic("trip_plans DDL missing from createStatements")
}
