package funditems

import (
	"context"

	"tripvault/internal/models"
)

// Repository describes CRUD and query operations for FundItem records,
// plus the many-to-many attachment of items to entry infos.
type Repository interface {
	// Save upserts a fund item by id (generated when absent) and returns
	// the freshly read-back record.
	Save(ctx context.Context, item *models.FundItem) (*models.FundItem, error)

	// GetByID returns an item, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.FundItem, error)

	// GetByOwnerID lists an owner's items, newest first.
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.FundItem, error)

	DeleteByID(ctx context.Context, id string) error
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int64, error)

	// Link attaches an item to an entry info; attaching twice is a no-op.
	Link(ctx context.Context, entryInfoID, fundItemID string) error

	// Unlink detaches an item from an entry info.
	Unlink(ctx context.Context, entryInfoID, fundItemID string) error

	// ForEntryInfo lists the items attached to one entry info.
	ForEntryInfo(ctx context.Context, entryInfoID string) ([]models.FundItem, error)

	// ForEntryInfos fetches the items for many entry infos in one query,
	// grouped by entry info id. Used by the aggregate fetch.
	ForEntryInfos(ctx context.Context, entryInfoIDs []string) (map[string][]models.FundItem, error)
}
