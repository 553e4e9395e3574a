package owners

import (
	"context"

	"tripvault/internal/models"
)

// Repository manages owner rows. Every record table references owners
// with ON DELETE CASCADE, so deleting an owner drops everything the
// owner stored.
type Repository interface {
	// Ensure creates the owner if absent and returns the row either way.
	Ensure(ctx context.Context, id string) (*models.Owner, error)

	// GetByID returns an owner, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.Owner, error)

	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes the owner and, through the schema's cascades, all of
	// the owner's records.
	Delete(ctx context.Context, id string) error
}
