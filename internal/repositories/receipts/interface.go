package receipts

import (
	"context"

	"tripvault/internal/models"
)

// Repository describes CRUD and query operations for ArrivalCardReceipt
// records.
//
// Saving a success receipt supersedes every other non-superseded receipt
// of the same (entry info, card type) pair in the same unit of work.
// Failed receipts are historical attempts and are never auto-superseded.
type Repository interface {
	Save(ctx context.Context, receipt *models.ArrivalCardReceipt) (*models.ArrivalCardReceipt, error)

	// GetByID returns a receipt, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.ArrivalCardReceipt, error)

	// GetByOwnerID lists an owner's receipts, newest first.
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.ArrivalCardReceipt, error)

	// ForEntryInfo lists every receipt of one entry info, including
	// superseded history, newest first.
	ForEntryInfo(ctx context.Context, entryInfoID string) ([]models.ArrivalCardReceipt, error)

	// Active returns the single non-superseded success receipt for the
	// pair, or nil when none exists.
	Active(ctx context.Context, entryInfoID, cardType string) (*models.ArrivalCardReceipt, error)

	// ForEntryInfos fetches non-superseded receipts for many entry infos
	// in one query, grouped by entry info id. Used by the aggregate fetch.
	ForEntryInfos(ctx context.Context, entryInfoIDs []string) (map[string][]models.ArrivalCardReceipt, error)

	DeleteByID(ctx context.Context, id string) error
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int64, error)
}
