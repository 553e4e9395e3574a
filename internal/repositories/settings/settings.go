// Package settings is the key-value side channel for store-level state
// that is not owner data: the schema version ledger and the encryption
// salt live here.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository reads and writes store-level key-value settings.
type Repository interface {
	// Get returns the value for key; found is false when the key is
	// absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set upserts key to value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// SQLiteRepository implements Repository.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
