package entryinfos

import (
	"context"

	"tripvault/internal/models"
)

// Repository describes CRUD and query operations for EntryInfo records.
// One row is one destination attempt; archiving, not deletion, is how an
// attempt normally leaves the active set, so history survives.
type Repository interface {
	// Save upserts an entry info by id (generated when absent) and returns
	// the freshly read-back record. Status defaults to draft.
	Save(ctx context.Context, info *models.EntryInfo) (*models.EntryInfo, error)

	// GetByID returns an entry info, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.EntryInfo, error)

	// GetByOwnerID lists an owner's entry infos, newest first.
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.EntryInfo, error)

	// GetByOwnerAndStatus lists an owner's entry infos in one lifecycle
	// state, newest first.
	GetByOwnerAndStatus(ctx context.Context, ownerID string, status models.EntryInfoStatus) ([]models.EntryInfo, error)

	// GetByOwnerWithRelations lists an owner's entry infos with the linked
	// document, profile and trip plan resolved in one left-join query,
	// newest first. Fund items and receipts are not populated.
	GetByOwnerWithRelations(ctx context.Context, ownerID string) ([]models.EntryInfoAggregate, error)

	// SetStatus moves an entry info to a new lifecycle state.
	SetStatus(ctx context.Context, id string, status models.EntryInfoStatus) error

	DeleteByID(ctx context.Context, id string) error
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int64, error)
}
