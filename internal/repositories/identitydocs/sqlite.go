package identitydocs

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

// SQLiteRepository implements Repository over the store's database handle.
// The passport number, holder name and date of birth go through the field
// cipher; everything else is stored in the clear for querying.
type SQLiteRepository struct {
	db     *sql.DB
	cipher cryptox.FieldCipher
}

// NewSQLiteRepository returns a repository bound to db using cipher for
// sensitive columns.
func NewSQLiteRepository(db *sql.DB, cipher cryptox.FieldCipher) *SQLiteRepository {
	return &SQLiteRepository{db: db, cipher: cipher}
}

const docColumns = `id, owner_id, document_number, full_name, date_of_birth,
	nationality, gender, issue_date, expiry_date, photo_ref, is_primary,
	created_at, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, doc *models.IdentityDocument) (*models.IdentityDocument, error) {
	if err := serialize.Validate(doc); err != nil {
		return nil, err
	}

	row := *doc
	if row.ID == "" {
		row.ID = serialize.NewID()
	}
	now := serialize.Now()
	row.UpdatedAt = now

	row.DocumentNumber = serialize.CleanPtr(row.DocumentNumber)
	row.FullName = serialize.CleanPtr(row.FullName)
	row.DateOfBirth = serialize.CleanPtr(row.DateOfBirth)
	row.Nationality = serialize.CleanPtr(row.Nationality)
	row.Gender = serialize.CleanPtr(row.Gender)
	row.IssueDate = serialize.CleanPtr(row.IssueDate)
	row.ExpiryDate = serialize.CleanPtr(row.ExpiryDate)
	row.PhotoRef = serialize.CleanPtr(row.PhotoRef)

	number, err := cryptox.EncryptPtr(r.cipher, row.DocumentNumber)
	if err != nil {
		return nil, err
	}
	name, err := cryptox.EncryptPtr(r.cipher, row.FullName)
	if err != nil {
		return nil, err
	}
	dob, err := cryptox.EncryptPtr(r.cipher, row.DateOfBirth)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if row.IsPrimary {
			// Clear-then-set keeps the one-primary-per-owner invariant
			// inside a single unit of work.
			if _, err := tx.ExecContext(ctx, `
				UPDATE identity_documents SET is_primary = 0, updated_at = ?
				WHERE owner_id = ? AND is_primary = 1 AND id <> ?
			`, now, row.OwnerID, row.ID); err != nil {
				return fmt.Errorf("clear previous primary: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO identity_documents (`+docColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner_id = excluded.owner_id,
				document_number = excluded.document_number,
				full_name = excluded.full_name,
				date_of_birth = excluded.date_of_birth,
				nationality = excluded.nationality,
				gender = excluded.gender,
				issue_date = excluded.issue_date,
				expiry_date = excluded.expiry_date,
				photo_ref = excluded.photo_ref,
				is_primary = excluded.is_primary,
				updated_at = excluded.updated_at
		`, row.ID, row.OwnerID, number, name, dob,
			row.Nationality, row.Gender, row.IssueDate, row.ExpiryDate,
			row.PhotoRef, row.IsPrimary, now, now); err != nil {
			return fmt.Errorf("upsert identity document: %w", err)
		}
		// The owner's only document is canonical whether or not the caller
		// said so.
		if !row.IsPrimary {
			if _, err := tx.ExecContext(ctx, `
				UPDATE identity_documents SET is_primary = 1
				WHERE id = ? AND NOT EXISTS (
					SELECT 1 FROM identity_documents
					WHERE owner_id = ? AND is_primary = 1
				)
			`, row.ID, row.OwnerID); err != nil {
				return fmt.Errorf("promote sole document: %w", err)
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
		return nil, fmt.Errorf("read back identity document %s: %w", row.ID, common.ErrNotFound)
	}
	return saved, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.IdentityDocument, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM identity_documents WHERE id = ?`, id)
	doc, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity document: %w", err)
	}
	return doc, nil
}

func (r *SQLiteRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.IdentityDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+docColumns+` FROM identity_documents
		WHERE owner_id = ?
		ORDER BY is_primary DESC, updated_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list identity documents: %w", err)
	}
	defer rows.Close()

	var result []models.IdentityDocument
	for rows.Next() {
		doc, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list identity documents: %w", err)
		}
		result = append(result, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list identity documents: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identity_documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete identity document: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity document: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identity_documents WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete identity documents: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM identity_documents WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("identity document exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) CountByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM identity_documents WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count identity documents: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) scan(row dbx.RowScanner) (*models.IdentityDocument, error) {
	var (
		doc       models.IdentityDocument
		number    sql.NullString
		name      sql.NullString
		dob       sql.NullString
		natl      sql.NullString
		gender    sql.NullString
		issue     sql.NullString
		expiry    sql.NullString
		photo     sql.NullString
		isPrimary int
	)
	if err := row.Scan(&doc.ID, &doc.OwnerID, &number, &name, &dob,
		&natl, &gender, &issue, &expiry, &photo, &isPrimary,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.IsPrimary = isPrimary != 0
	doc.Nationality = dbx.PtrFromNull(natl)
	doc.Gender = dbx.PtrFromNull(gender)
	doc.IssueDate = dbx.PtrFromNull(issue)
	doc.ExpiryDate = dbx.PtrFromNull(expiry)
	doc.PhotoRef = dbx.PtrFromNull(photo)

	var err error
	if doc.DocumentNumber, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(number)); err != nil {
		return nil, err
	}
	if doc.FullName, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(name)); err != nil {
		return nil, err
	}
	if doc.DateOfBirth, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(dob)); err != nil {
		return nil, err
	}
	return &doc, nil
}
