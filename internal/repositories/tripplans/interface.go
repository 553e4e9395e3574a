package tripplans

import (
	"context"

	"tripvault/internal/models"
)

// Repository describes CRUD and query operations for TripPlan records.
//
// A plan's link to an entry info is unique. Save repairs violations of
// that rule rather than surfacing them: rows deleted as a side effect are
// reported in the save result so the caller can decide whether to show a
// "your previous draft was replaced" notice.
type Repository interface {
	Save(ctx context.Context, plan *models.TripPlan) (*models.TripPlanSaveResult, error)

	// GetByID returns a plan, or nil when the id does not resolve.
	GetByID(ctx context.Context, id string) (*models.TripPlan, error)

	// GetByOwnerID lists an owner's plans, newest first.
	GetByOwnerID(ctx context.Context, ownerID string) ([]models.TripPlan, error)

	// GetByEntryInfoID returns the plan holding the given link, or nil.
	GetByEntryInfoID(ctx context.Context, entryInfoID string) (*models.TripPlan, error)

	DeleteByID(ctx context.Context, id string) error
	DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int64, error)
}
