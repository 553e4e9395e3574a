package auditlog

import (
	"context"
	"database/sql"
	"fmt"

	"tripvault/internal/dbx"
	"tripvault/internal/models"
	"tripvault/internal/serialize"
)

// DefaultCap bounds the audit table so a long-lived install cannot grow
// it without limit.
const DefaultCap = 1000

// SQLiteRepository implements Repository.
type SQLiteRepository struct {
	db  *sql.DB
	cap int
}

// NewSQLiteRepository builds the repository; maxEntries <= 0 selects
// DefaultCap.
func NewSQLiteRepository(db *sql.DB, maxEntries int) *SQLiteRepository {
	if maxEntries <= 0 {
		maxEntries = DefaultCap
	}
	return &SQLiteRepository{db: db, cap: maxEntries}
}

const auditColumns = `seq, owner_id, action, target_table, target_id, detail, created_at`

func (r *SQLiteRepository) Append(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error) {
	row := *entry
	row.CreatedAt = serialize.Now()

	var seq int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO audit_log (owner_id, action, target_table, target_id, detail, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, row.OwnerID, row.Action, row.TargetTable,
			nullable(row.TargetID), nullable(row.Detail), row.CreatedAt)
		if err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		if seq, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		// Trim-on-write keeps the table at the cap without a maintenance
		// job.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM audit_log
			WHERE seq NOT IN (SELECT seq FROM audit_log ORDER BY seq DESC LIMIT ?)
		`, r.cap); err != nil {
			return fmt.Errorf("trim audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	row.Seq = seq
	return &row, nil
}

func (r *SQLiteRepository) ByOwner(ctx context.Context, ownerID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = r.cap
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+auditColumns+` FROM audit_log
		WHERE owner_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = r.cap
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+auditColumns+` FROM audit_log
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_log WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}
	return res.RowsAffected()
}

func collect(rows *sql.Rows) ([]models.AuditEntry, error) {
	var result []models.AuditEntry
	for rows.Next() {
		var (
			e      models.AuditEntry
			target sql.NullString
			detail sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.OwnerID, &e.Action, &e.TargetTable,
			&target, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.TargetID = target.String
		e.Detail = detail.String
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return result, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
