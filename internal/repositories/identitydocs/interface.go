package identitydocs

import (
	"context"

	"tripvault/internal/models"
)

// Repository describes CRUD and query operations for IdentityDocument
// records. Implementations are backed by the local SQLite database.
type Repository interface {
	// Save upserts a document by id (generated when absent) and returns
	// the freshly read-back record. Saving a new primary atomically
	// clears the previous primary for the same owner.
	Save(ctx context.Context, doc *models.IdentityDocument) (*models.IdentityDocument, error)

	// GetByID returns a document, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.IdentityDocument, error)

	// GetByOwnerID lists an owner's documents, primary first, then newest.
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.IdentityDocument, error)

	DeleteByID(ctx context.Context, id string) error
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int64, error)
}
