package funditems

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

// SQLiteRepository implements Repository. The free-form detail column
// (bank names, account fragments) goes through the field cipher.
type SQLiteRepository struct {
	db     *sql.DB
	cipher cryptox.FieldCipher
}

func NewSQLiteRepository(db *sql.DB, cipher cryptox.FieldCipher) *SQLiteRepository {
	return &SQLiteRepository{db: db, cipher: cipher}
}

const itemColumns = `id, owner_id, fund_type, amount, currency, detail,
	photo_ref, created_at, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, item *models.FundItem) (*models.FundItem, error) {
	if err := serialize.Validate(item); err != nil {
		return nil, err
	}

	row := *item
	if row.ID == "" {
		row.ID = serialize.NewID()
	}
	now := serialize.Now()

	row.FundType = serialize.CleanPtr(row.FundType)
	row.Currency = serialize.CleanPtr(row.Currency)
	row.Detail = serialize.CleanPtr(row.Detail)
	row.PhotoRef = serialize.CleanPtr(row.PhotoRef)

	detail, err := cryptox.EncryptPtr(r.cipher, row.Detail)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO fund_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			fund_type = excluded.fund_type,
			amount = excluded.amount,
			currency = excluded.currency,
			detail = excluded.detail,
			photo_ref = excluded.photo_ref,
			updated_at = excluded.updated_at
	`, row.ID, row.OwnerID, row.FundType, row.Amount, row.Currency,
		detail, row.PhotoRef, now, now); err != nil {
		return nil, fmt.Errorf("upsert fund item: %w", err)
	}

	saved, err := r.GetByID(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("read back fund item %s: %w", row.ID, common.ErrNotFound)
	}
	return saved, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.FundItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM fund_items WHERE id = ?`, id)
	item, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fund item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.FundItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM fund_items
		WHERE owner_id = ?
		ORDER BY updated_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list fund items: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fund_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete fund item: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete fund item: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fund_items WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete fund items: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM fund_items WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fund item exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) CountByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fund_items WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count fund items: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Link(ctx context.Context, entryInfoID, fundItemID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entry_info_fund_items (entry_info_id, fund_item_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(entry_info_id, fund_item_id) DO NOTHING
	`, entryInfoID, fundItemID, serialize.Now())
	if err != nil {
		return fmt.Errorf("link fund item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Unlink(ctx context.Context, entryInfoID, fundItemID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM entry_info_fund_items WHERE entry_info_id = ? AND fund_item_id = ?
	`, entryInfoID, fundItemID)
	if err != nil {
		return fmt.Errorf("unlink fund item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ForEntryInfo(ctx context.Context, entryInfoID string) ([]models.FundItem, error) {
	grouped, err := r.ForEntryInfos(ctx, []string{entryInfoID})
	if err != nil {
		return nil, err
	}
	return grouped[entryInfoID], nil
}

func (r *SQLiteRepository) ForEntryInfos(ctx context.Context, entryInfoIDs []string) (map[string][]models.FundItem, error) {
	grouped := make(map[string][]models.FundItem, len(entryInfoIDs))
	if len(entryInfoIDs) == 0 {
		return grouped, nil
	}

	args := make([]any, len(entryInfoIDs))
	for i, id := range entryInfoIDs {
		args[i] = id
	}
	placeholders := strings.Repeat("?, ", len(entryInfoIDs)-1) + "?"

	rows, err := r.db.QueryContext(ctx, `
		SELECT j.entry_info_id, `+prefixed("f", itemColumns)+`
		FROM entry_info_fund_items j
		JOIN fund_items f ON f.id = j.fund_item_id
		WHERE j.entry_info_id IN (`+placeholders+`)
		ORDER BY j.created_at, f.rowid
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch fund items for entry infos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryInfoID string
		item, err := r.scanWith(rows, &entryInfoID)
		if err != nil {
			return nil, fmt.Errorf("fetch fund items for entry infos: %w", err)
		}
		grouped[entryInfoID] = append(grouped[entryInfoID], *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch fund items for entry infos: %w", err)
	}
	return grouped, nil
}

// prefixed qualifies each column in list with a table alias.
func prefixed(alias, list string) string {
	cols := strings.Split(list, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (r *SQLiteRepository) collect(rows *sql.Rows) ([]models.FundItem, error) {
	var result []models.FundItem
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fund item: %w", err)
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fund items: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) scan(row dbx.RowScanner) (*models.FundItem, error) {
	return r.scanWith(row)
}

// scanWith scans an item, optionally preceded by extra leading columns.
func (r *SQLiteRepository) scanWith(row dbx.RowScanner, leading ...any) (*models.FundItem, error) {
	var (
		item     models.FundItem
		fundType sql.NullString
		currency sql.NullString
		detail   sql.NullString
		photo    sql.NullString
	)
	dest := append(leading, &item.ID, &item.OwnerID, &fundType, &item.Amount,
		&currency, &detail, &photo, &item.CreatedAt, &item.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	item.FundType = dbx.PtrFromNull(fundType)
	item.Currency = dbx.PtrFromNull(currency)
	item.PhotoRef = dbx.PtrFromNull(photo)

	var err error
	if item.Detail, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(detail)); err != nil {
		return nil, err
	}
	return &item, nil
}
