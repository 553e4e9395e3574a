package profiles

import (
	"context"

	"tripvault/internal/models"
)

// Repository describes CRUD and query operations for PersonalProfile
// records.
type Repository interface {
	// Save upserts a profile by id (generated when absent) and returns the
	// freshly read-back record. Saving a new default atomically clears the
	// previous default for the same owner.
	Save(ctx context.Context, profile *models.PersonalProfile) (*models.PersonalProfile, error)

	// GetByID returns a profile, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.PersonalProfile, error)

	// GetByOwnerID lists an owner's profiles, default first, then newest.
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.PersonalProfile, error)

	DeleteByID(ctx context.Context, id string) error
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int64, error)
}
