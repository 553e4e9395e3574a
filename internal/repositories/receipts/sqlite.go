package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tripvault/internal/common"
	"tripvault/internal/cryptox"
	"tripvault/internal/dbx"
	"tripvault/internal/models"
	"tripvault/internal/serialize"
)

// SQLiteRepository implements Repository. The confirmation number goes
// through the field cipher.
type SQLiteRepository struct {
	db     *sql.DB
	cipher cryptox.FieldCipher
}

func NewSQLiteRepository(db *sql.DB, cipher cryptox.FieldCipher) *SQLiteRepository {
	return &SQLiteRepository{db: db, cipher: cipher}
}

const receiptColumns = `id, owner_id, entry_info_id, card_type, destination,
	confirmation_number, receipt_image_ref, submission_method, status,
	is_superseded, superseded_at, superseded_by, superseded_reason,
	created_at, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, receipt *models.ArrivalCardReceipt) (*models.ArrivalCardReceipt, error) {
	if err := serialize.Validate(receipt); err != nil {
		return nil, err
	}

	row := *receipt
	if row.ID == "" {
		row.ID = serialize.NewID()
	}
	if row.Status == "" {
		row.Status = models.ReceiptStatusPending
	}
	now := serialize.Now()

	row.Destination = serialize.CleanPtr(row.Destination)
	row.ConfirmationNumber = serialize.CleanPtr(row.ConfirmationNumber)
	row.ReceiptImageRef = serialize.CleanPtr(row.ReceiptImageRef)
	row.SubmissionMethod = serialize.CleanPtr(row.SubmissionMethod)

	confirmation, err := cryptox.EncryptPtr(r.cipher, row.ConfirmationNumber)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if row.Status == models.ReceiptStatusSuccess && !row.IsSuperseded {
			// Cascade-mark: every other competing row of the pair loses its
			// authority to the new success. Failed attempts are history,
			// not competing truths, and stay untouched.
			if _, err := tx.ExecContext(ctx, `
				UPDATE arrival_card_receipts
				SET is_superseded = 1,
					superseded_at = ?,
					superseded_by = ?,
					superseded_reason = ?,
					updated_at = ?
				WHERE entry_info_id = ? AND card_type = ?
					AND status <> 'failed' AND is_superseded = 0 AND id <> ?
			`, now, row.ID, models.SupersededReasonNewer, now,
				row.EntryInfoID, row.CardType, row.ID); err != nil {
				return fmt.Errorf("supersede prior receipts: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO arrival_card_receipts (`+receiptColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner_id = excluded.owner_id,
				entry_info_id = excluded.entry_info_id,
				card_type = excluded.card_type,
				destination = excluded.destination,
				confirmation_number = excluded.confirmation_number,
				receipt_image_ref = excluded.receipt_image_ref,
				submission_method = excluded.submission_method,
				status = excluded.status,
				is_superseded = excluded.is_superseded,
				superseded_at = excluded.superseded_at,
				superseded_by = excluded.superseded_by,
				superseded_reason = excluded.superseded_reason,
				updated_at = excluded.updated_at
		`, row.ID, row.OwnerID, row.EntryInfoID, row.CardType, row.Destination,
			confirmation, row.ReceiptImageRef, row.SubmissionMethod, string(row.Status),
			row.IsSuperseded, row.SupersededAt, row.SupersededBy, row.SupersededReason,
			now, now); err != nil {
			return fmt.Errorf("upsert receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	saved, err := r.GetByID(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("read back receipt %s: %w", row.ID, common.ErrNotFound)
	}
	return saved, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.ArrivalCardReceipt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM arrival_card_receipts WHERE id = ?`, id)
	rec, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.ArrivalCardReceipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+receiptColumns+` FROM arrival_card_receipts
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *SQLiteRepository) ForEntryInfo(ctx context.Context, entryInfoID string) ([]models.ArrivalCardReceipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+receiptColumns+` FROM arrival_card_receipts
		WHERE entry_info_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, entryInfoID)
	if err != nil {
		return nil, fmt.Errorf("list entry info receipts: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *SQLiteRepository) Active(ctx context.Context, entryInfoID, cardType string) (*models.ArrivalCardReceipt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+receiptColumns+` FROM arrival_card_receipts
		WHERE entry_info_id = ? AND card_type = ?
			AND status = 'success' AND is_superseded = 0
	`, entryInfoID, cardType)
	rec, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active receipt: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ForEntryInfos(ctx context.Context, entryInfoIDs []string) (map[string][]models.ArrivalCardReceipt, error) {
	grouped := make(map[string][]models.ArrivalCardReceipt, len(entryInfoIDs))
	if len(entryInfoIDs) == 0 {
		return grouped, nil
	}

	args := make([]any, len(entryInfoIDs))
	for i, id := range entryInfoIDs {
		args[i] = id
	}
	placeholders := strings.Repeat("?, ", len(entryInfoIDs)-1) + "?"

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+receiptColumns+` FROM arrival_card_receipts
		WHERE entry_info_id IN (`+placeholders+`) AND is_superseded = 0
		ORDER BY created_at DESC, rowid DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch receipts for entry infos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch receipts for entry infos: %w", err)
		}
		grouped[rec.EntryInfoID] = append(grouped[rec.EntryInfoID], *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch receipts for entry infos: %w", err)
	}
	return grouped, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM arrival_card_receipts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM arrival_card_receipts WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete receipts: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM arrival_card_receipts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("receipt exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) CountByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM arrival_card_receipts WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count receipts: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) collect(rows *sql.Rows) ([]models.ArrivalCardReceipt, error) {
	var result []models.ArrivalCardReceipt
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) scan(row dbx.RowScanner) (*models.ArrivalCardReceipt, error) {
	var (
		rec          models.ArrivalCardReceipt
		dest         sql.NullString
		confirmation sql.NullString
		image        sql.NullString
		method       sql.NullString
		status       string
		superseded   int
		supAt        sql.NullString
		supBy        sql.NullString
		supReason    sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.EntryInfoID, &rec.CardType,
		&dest, &confirmation, &image, &method, &status, &superseded,
		&supAt, &supBy, &supReason, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Destination = dbx.PtrFromNull(dest)
	rec.ReceiptImageRef = dbx.PtrFromNull(image)
	rec.SubmissionMethod = dbx.PtrFromNull(method)
	rec.Status = models.ReceiptStatus(status)
	rec.IsSuperseded = superseded != 0
	rec.SupersededAt = dbx.PtrFromNull(supAt)
	rec.SupersededBy = dbx.PtrFromNull(supBy)
	rec.SupersededReason = dbx.PtrFromNull(supReason)

	var err error
	if rec.ConfirmationNumber, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(confirmation)); err != nil {
		return nil, err
	}
	return &rec, nil
}
