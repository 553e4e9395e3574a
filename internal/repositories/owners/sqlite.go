package owners

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tripvault/internal/common"
	"tripvault/internal/models"
	"tripvault/internal/serialize"
)

// SQLiteRepository implements Repository.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Ensure(ctx context.Context, id string) (*models.Owner, error) {
	if err := serialize.Validate(&models.Owner{ID: id}); err != nil {
		return nil, err
	}

	now := serialize.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO owners (id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, now, now)
	if err != nil {
		return nil, fmt.Errorf("ensure owner: %w", err)
	}

	owner, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("read back owner %s: %w", id, common.ErrNotFound)
	}
	return owner, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at FROM owners WHERE id = ?
	`, id).Scan(&owner.ID, &owner.CreatedAt, &owner.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	return &owner, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM owners WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("owner exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM owners WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete owner: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete owner: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}
