package snapshots

import (
	"context"

	"tripvault/internal/models"
)

// Repository describes operations for Snapshot records. Snapshots are
// write-once: there is no update path, and Save of an existing id is
// rejected.
type Repository interface {
	// Save inserts a snapshot (id generated when absent) and returns the
	// freshly read-back record.
	Save(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error)

	// GetByID returns a snapshot, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.Snapshot, error)

	// GetByOwnerID lists an owner's snapshots, newest first.
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.Snapshot, error)

	// ForEntryInfo lists the snapshots taken of one entry info, newest
	// first.
	ForEntryInfo(ctx context.Context, entryInfoID string) ([]models.Snapshot, error)

	// Latest returns an owner's most recent snapshot, or nil when none
	// exist.
	Latest(ctx context.Context, ownerID string) (*models.Snapshot, error)

	DeleteByID(ctx context.Context, id string) error
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int64, error)
}
