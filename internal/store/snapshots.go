package store

import (
	"context"
	"encoding/json"
	"fmt"

	"tripvault/internal/common"
	"tripvault/internal/models"
)

// SaveSnapshot stores a caller-assembled snapshot. Snapshots are
// write-once; saving an existing id fails with ErrConstraintConflict.
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	saved, err := s.snapshots.Save(ctx, snap)
	if err != nil {
		return nil, err
	}
	s.record(ctx, saved.OwnerID, "save", "snapshots", saved.ID, "")
	return saved, nil
}

// TakeSnapshot assembles the current state of one entry info and its
// relations into a new snapshot. IsComplete is set when the document,
// profile, and trip plan are all present; the photo manifest collects the
// photo references the payload points at.
func (s *Store) TakeSnapshot(ctx context.Context, ownerID, entryInfoID string) (*models.Snapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	aggregates, err := s.EntryInfosWithRelations(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var agg *models.EntryInfoAggregate
	for i := range aggregates {
		if aggregates[i].EntryInfo.ID == entryInfoID {
			agg = &aggregates[i]
			break
		}
	}
	if agg == nil {
		return nil, fmt.Errorf("entry info %s: %w", entryInfoID, common.ErrNotFound)
	}

	payload := models.SnapshotPayload{
		EntryInfo:        &agg.EntryInfo,
		IdentityDocument: agg.IdentityDocument,
		PersonalProfile:  agg.PersonalProfile,
		TripPlan:         agg.TripPlan,
		FundItems:        agg.FundItems,
		Receipts:         agg.Receipts,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot payload: %w", err)
	}

	var manifest []string
	if agg.IdentityDocument != nil && agg.IdentityDocument.PhotoRef != nil {
		manifest = append(manifest, *agg.IdentityDocument.PhotoRef)
	}
	for _, item := range agg.FundItems {
		if item.PhotoRef != nil {
			manifest = append(manifest, *item.PhotoRef)
		}
	}

	saved, err := s.snapshots.Save(ctx, &models.Snapshot{
		OwnerID:       ownerID,
		EntryInfoID:   &entryInfoID,
		Payload:       raw,
		IsComplete:    agg.IdentityDocument != nil && agg.PersonalProfile != nil && agg.TripPlan != nil,
		PhotoManifest: manifest,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, ownerID, "snapshot", "snapshots", saved.ID, "entry_info="+entryInfoID)
	return saved, nil
}

// Snapshot returns one snapshot, or nil when absent.
func (s *Store) Snapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.snapshots.GetByID(ctx, id)
}

// Snapshots lists an owner's snapshots, newest first.
func (s *Store) Snapshots(ctx context.Context, ownerID string) ([]models.Snapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.snapshots.GetByOwnerID(ctx, ownerID)
}

// LatestSnapshot returns an owner's most recent snapshot, or nil.
func (s *Store) LatestSnapshot(ctx context.Context, ownerID string) (*models.Snapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.snapshots.Latest(ctx, ownerID)
}

// SnapshotsForEntryInfo lists the snapshots taken of one entry info.
func (s *Store) SnapshotsForEntryInfo(ctx context.Context, entryInfoID string) ([]models.Snapshot, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.snapshots.ForEntryInfo(ctx, entryInfoID)
}

// DeleteSnapshot removes one snapshot.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	snap, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if snap == nil {
		return common.ErrNotFound
	}
	if err := s.snapshots.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, snap.OwnerID, "delete", "snapshots", id, "")
	return nil
}
