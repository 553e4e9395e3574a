package profiles

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

// SQLiteRepository implements Repository. Phone, email and home address
// go through the field cipher.
type SQLiteRepository struct {
	db     *sql.DB
	cipher cryptox.FieldCipher
}

func NewSQLiteRepository(db *sql.DB, cipher cryptox.FieldCipher) *SQLiteRepository {
	return &SQLiteRepository{db: db, cipher: cipher}
}

const profileColumns = `id, owner_id, phone, email, home_address, occupation,
	province_of_residence, country_of_residence, identity_document_id,
	is_default, created_at, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, profile *models.PersonalProfile) (*models.PersonalProfile, error) {
	if err := serialize.Validate(profile); err != nil {
		return nil, err
	}

	row := *profile
	if row.ID == "" {
		row.ID = serialize.NewID()
	}
	now := serialize.Now()

	row.Phone = serialize.CleanPtr(row.Phone)
	row.Email = serialize.CleanPtr(row.Email)
	row.HomeAddress = serialize.CleanPtr(row.HomeAddress)
	row.Occupation = serialize.CleanPtr(row.Occupation)
	row.ProvinceOfResidence = serialize.CleanPtr(row.ProvinceOfResidence)
	row.CountryOfResidence = serialize.CleanPtr(row.CountryOfResidence)
	row.IdentityDocumentID = serialize.CleanPtr(row.IdentityDocumentID)

	phone, err := cryptox.EncryptPtr(r.cipher, row.Phone)
	if err != nil {
		return nil, err
	}
	email, err := cryptox.EncryptPtr(r.cipher, row.Email)
	if err != nil {
		return nil, err
	}
	address, err := cryptox.EncryptPtr(r.cipher, row.HomeAddress)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if row.IsDefault {
			if _, err := tx.ExecContext(ctx, `
				UPDATE personal_profiles SET is_default = 0, updated_at = ?
				WHERE owner_id = ? AND is_default = 1 AND id <> ?
			`, now, row.OwnerID, row.ID); err != nil {
				return fmt.Errorf("clear previous default: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO personal_profiles (`+profileColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner_id = excluded.owner_id,
				phone = excluded.phone,
				email = excluded.email,
				home_address = excluded.home_address,
				occupation = excluded.occupation,
				province_of_residence = excluded.province_of_residence,
				country_of_residence = excluded.country_of_residence,
				identity_document_id = excluded.identity_document_id,
				is_default = excluded.is_default,
				updated_at = excluded.updated_at
		`, row.ID, row.OwnerID, phone, email, address,
			row.Occupation, row.ProvinceOfResidence, row.CountryOfResidence,
			row.IdentityDocumentID, row.IsDefault, now, now); err != nil {
			return fmt.Errorf("upsert personal profile: %w", err)
		}
		if !row.IsDefault {
			if _, err := tx.ExecContext(ctx, `
				UPDATE personal_profiles SET is_default = 1
				WHERE id = ? AND NOT EXISTS (
					SELECT 1 FROM personal_profiles
					WHERE owner_id = ? AND is_default = 1
				)
			`, row.ID, row.OwnerID); err != nil {
				return fmt.Errorf("promote sole profile: %w", err)
			}
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
		return nil, fmt.Errorf("read back personal profile %s: %w", row.ID, common.ErrNotFound)
	}
	return saved, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.PersonalProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM personal_profiles WHERE id = ?`, id)
	p, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get personal profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.PersonalProfile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM personal_profiles
		WHERE owner_id = ?
		ORDER BY is_default DESC, updated_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list personal profiles: %w", err)
	}
	defer rows.Close()

	var result []models.PersonalProfile
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list personal profiles: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list personal profiles: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM personal_profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete personal profile: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete personal profile: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM personal_profiles WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete personal profiles: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM personal_profiles WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("personal profile exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) CountByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM personal_profiles WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count personal profiles: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) scan(row dbx.RowScanner) (*models.PersonalProfile, error) {
	var (
		p         models.PersonalProfile
		phone     sql.NullString
		email     sql.NullString
		address   sql.NullString
		occ       sql.NullString
		province  sql.NullString
		country   sql.NullString
		docID     sql.NullString
		isDefault int
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &phone, &email, &address, &occ,
		&province, &country, &docID, &isDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.IsDefault = isDefault != 0
	p.Occupation = dbx.PtrFromNull(occ)
	p.ProvinceOfResidence = dbx.PtrFromNull(province)
	p.CountryOfResidence = dbx.PtrFromNull(country)
	p.IdentityDocumentID = dbx.PtrFromNull(docID)

	var err error
	if p.Phone, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(phone)); err != nil {
		return nil, err
	}
	if p.Email, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(email)); err != nil {
		return nil, err
	}
	if p.HomeAddress, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(address)); err != nil {
		return nil, err
	}
	return &p, nil
}
