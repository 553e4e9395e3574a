package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tripvault/internal/common"
	"tripvault/internal/cryptox"
	"tripvault/internal/dbx"
	"tripvault/internal/models"
	"tripvault/internal/serialize"
)

// SQLiteRepository implements Repository. The whole payload document is
// a single encrypted column; individual fields inside it are not
// separately addressable at rest.
type SQLiteRepository struct {
	db     *sql.DB
	cipher cryptox.FieldCipher
}

func NewSQLiteRepository(db *sql.DB, cipher cryptox.FieldCipher) *SQLiteRepository {
	return &SQLiteRepository{db: db, cipher: cipher}
}

const snapshotColumns = `id, owner_id, entry_info_id, payload, is_complete,
	photo_manifest, created_at`

func (r *SQLiteRepository) Save(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error) {
	if err := serialize.Validate(snap); err != nil {
		return nil, err
	}
	if len(snap.Payload) == 0 {
		return nil, fmt.Errorf("%w: payload is required", common.ErrValidation)
	}

	row := *snap
	if row.ID == "" {
		row.ID = serialize.NewID()
	}
	row.EntryInfoID = serialize.CleanPtr(row.EntryInfoID)

	payload, err := r.cipher.Encrypt(string(row.Payload))
	if err != nil {
		return nil, fmt.Errorf("encrypt snapshot payload: %w", err)
	}
	manifest, err := serialize.MarshalStringSlice(row.PhotoManifest)
	if err != nil {
		return nil, fmt.Errorf("encode photo manifest: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.OwnerID, row.EntryInfoID, payload, row.IsComplete,
		manifest, serialize.Now())
	if dbx.IsConstraintViolation(err) {
		return nil, fmt.Errorf("snapshot %s already exists: %w", row.ID, common.ErrConstraintConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	saved, err := r.GetByID(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("read back snapshot %s: %w", row.ID, common.ErrNotFound)
	}
	return saved, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	snap, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *SQLiteRepository) ForEntryInfo(ctx context.Context, entryInfoID string) ([]models.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE entry_info_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, entryInfoID)
	if err != nil {
		return nil, fmt.Errorf("list entry info snapshots: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *SQLiteRepository) Latest(ctx context.Context, ownerID string) (*models.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, ownerID)
	snap, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM snapshots WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("snapshot exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) CountByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) collect(rows *sql.Rows) ([]models.Snapshot, error) {
	var result []models.Snapshot
	for rows.Next() {
		snap, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		result = append(result, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) scan(row dbx.RowScanner) (*models.Snapshot, error) {
	var (
		snap     models.Snapshot
		entryID  sql.NullString
		payload  string
		complete int
		manifest string
	)
	if err := row.Scan(&snap.ID, &snap.OwnerID, &entryID, &payload,
		&complete, &manifest, &snap.CreatedAt); err != nil {
		return nil, err
	}
	snap.EntryInfoID = dbx.PtrFromNull(entryID)
	snap.IsComplete = complete != 0

	plain, err := r.cipher.Decrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("decrypt snapshot payload: %w", err)
	}
	snap.Payload = []byte(plain)

	if snap.PhotoManifest, err = serialize.UnmarshalStringSlice(manifest); err != nil {
		return nil, fmt.Errorf("decode photo manifest: %w", err)
	}
	return &snap, nil
}
