package auditlog

import (
	"context"

	"tripvault/internal/models"
)

// Repository is the append-only compliance trail of mutating store
// operations. The table is globally capped; each append trims the oldest
// overflow rows, so readers never see more than the cap.
type Repository interface {
	// Append records one operation and returns the stored entry with its
	// sequence number assigned.
	Append(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error)

	// ByOwner lists an owner's entries newest first, at most limit rows
	// (all rows when limit <= 0).
	ByOwner(ctx context.Context, ownerID string, limit int) ([]models.AuditEntry, error)

	// Recent lists the newest entries across all owners.
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)

	// Count returns the number of retained entries.
	Count(ctx context.Context) (int64, error)

	// DeleteByOwnerID drops an owner's entries, e.g. during a full purge.
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
}
