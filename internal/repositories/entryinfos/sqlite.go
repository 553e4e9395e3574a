package entryinfos

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

// SQLiteRepository implements Repository. Entry infos carry no secret
// fields themselves; the cipher is held for the aggregate join, which
// decrypts the linked document and profile columns it pulls in.
type SQLiteRepository struct {
	db     *sql.DB
	cipher cryptox.FieldCipher
}

func NewSQLiteRepository(db *sql.DB, cipher cryptox.FieldCipher) *SQLiteRepository {
	return &SQLiteRepository{db: db, cipher: cipher}
}

const infoColumns = `id, owner_id, destination_id, status, completion_percent,
	attached_documents, display_status, identity_document_id,
	personal_profile_id, created_at, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, info *models.EntryInfo) (*models.EntryInfo, error) {
	if err := serialize.Validate(info); err != nil {
		return nil, err
	}

	row := *info
	if row.ID == "" {
		row.ID = serialize.NewID()
	}
	if row.Status == "" {
		row.Status = models.EntryInfoStatusDraft
	}
	if row.CompletionPercent < 0 {
		row.CompletionPercent = 0
	}
	if row.CompletionPercent > 100 {
		row.CompletionPercent = 100
	}
	now := serialize.Now()

	row.DestinationID = serialize.CleanPtr(row.DestinationID)
	row.DisplayStatus = serialize.CleanPtr(row.DisplayStatus)
	row.IdentityDocumentID = serialize.CleanPtr(row.IdentityDocumentID)
	row.PersonalProfileID = serialize.CleanPtr(row.PersonalProfileID)

	attached, err := serialize.MarshalStringSlice(row.AttachedDocuments)
	if err != nil {
		return nil, fmt.Errorf("encode attached documents: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO entry_infos (`+infoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			destination_id = excluded.destination_id,
			status = excluded.status,
			completion_percent = excluded.completion_percent,
			attached_documents = excluded.attached_documents,
			display_status = excluded.display_status,
			identity_document_id = excluded.identity_document_id,
			personal_profile_id = excluded.personal_profile_id,
			updated_at = excluded.updated_at
	`, row.ID, row.OwnerID, row.DestinationID, string(row.Status),
		row.CompletionPercent, attached, row.DisplayStatus,
		row.IdentityDocumentID, row.PersonalProfileID, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert entry info: %w", err)
	}

	saved, err := r.GetByID(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("read back entry info %s: %w", row.ID, common.ErrNotFound)
	}
	return saved, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.EntryInfo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+infoColumns+` FROM entry_infos WHERE id = ?`, id)
	info, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry info: %w", err)
	}
	return info, nil
}

func (r *SQLiteRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.EntryInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+infoColumns+` FROM entry_infos
		WHERE owner_id = ?
		ORDER BY updated_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entry infos: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepository) GetByOwnerAndStatus(ctx context.Context, ownerID string, status models.EntryInfoStatus) ([]models.EntryInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+infoColumns+` FROM entry_infos
		WHERE owner_id = ? AND status = ?
		ORDER BY updated_at DESC, rowid DESC
	`, ownerID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list entry infos by status: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *SQLiteRepository) SetStatus(ctx context.Context, id string, status models.EntryInfoStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entry_infos SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), serialize.Now(), id)
	if err != nil {
		return fmt.Errorf("set entry info status: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set entry info status: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entry_infos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry info: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry info: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entry_infos WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete entry infos: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM entry_infos WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("entry info exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) CountByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entry_infos WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entry infos: %w", err)
	}
	return n, nil
}

func collect(rows *sql.Rows) ([]models.EntryInfo, error) {
	var result []models.EntryInfo
	for rows.Next() {
		info, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry info: %w", err)
		}
		result = append(result, *info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry infos: %w", err)
	}
	return result, nil
}

func scan(row dbx.RowScanner) (*models.EntryInfo, error) {
	var (
		info     models.EntryInfo
		dest     sql.NullString
		attached string
		display  sql.NullString
		docID    sql.NullString
		profID   sql.NullString
		status   string
	)
	if err := row.Scan(&info.ID, &info.OwnerID, &dest, &status,
		&info.CompletionPercent, &attached, &display, &docID, &profID,
		&info.CreatedAt, &info.UpdatedAt); err != nil {
		return nil, err
	}
	info.DestinationID = dbx.PtrFromNull(dest)
	info.Status = models.EntryInfoStatus(status)
	info.DisplayStatus = dbx.PtrFromNull(display)
	info.IdentityDocumentID = dbx.PtrFromNull(docID)
	info.PersonalProfileID = dbx.PtrFromNull(profID)

	var err error
	if info.AttachedDocuments, err = serialize.UnmarshalStringSlice(attached); err != nil {
		return nil, fmt.Errorf("decode attached documents: %w", err)
	}
	return &info, nil
}
