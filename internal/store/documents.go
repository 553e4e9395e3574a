package store

import (
	"context"

	"tripvault/internal/common"
	"tripvault/internal/models"
)

// SaveIdentityDocument upserts a passport record. Saving a new primary
// atomically demotes the previous one.
func (s *Store) SaveIdentityDocument(ctx context.Context, doc *models.IdentityDocument) (*models.IdentityDocument, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	saved, err := s.docs.Save(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.record(ctx, saved.OwnerID, "save", "identity_documents", saved.ID, "")
	return saved, nil
}

// IdentityDocument returns one document, or nil when absent.
func (s *Store) IdentityDocument(ctx context.Context, id string) (*models.IdentityDocument, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.docs.GetByID(ctx, id)
}

// IdentityDocuments lists an owner's documents, primary first.
func (s *Store) IdentityDocuments(ctx context.Context, ownerID string) ([]models.IdentityDocument, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.docs.GetByOwnerID(ctx, ownerID)
}

// DeleteIdentityDocument removes one document.
func (s *Store) DeleteIdentityDocument(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return common.ErrNotFound
	}
	if err := s.docs.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, doc.OwnerID, "delete", "identity_documents", id, "")
	return nil
}

// SavePersonalProfile upserts a contact/residency profile. Saving a new
// default atomically demotes the previous one.
func (s *Store) SavePersonalProfile(ctx context.Context, profile *models.PersonalProfile) (*models.PersonalProfile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	saved, err := s.profiles.Save(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.record(ctx, saved.OwnerID, "save", "personal_profiles", saved.ID, "")
	return saved, nil
}

// PersonalProfile returns one profile, or nil when absent.
func (s *Store) PersonalProfile(ctx context.Context, id string) (*models.PersonalProfile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.profiles.GetByID(ctx, id)
}

// PersonalProfiles lists an owner's profiles, default first.
func (s *Store) PersonalProfiles(ctx context.Context, ownerID string) ([]models.PersonalProfile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.profiles.GetByOwnerID(ctx, ownerID)
}

// DeletePersonalProfile removes one profile.
func (s *Store) DeletePersonalProfile(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if profile == nil {
		return common.ErrNotFound
	}
	if err := s.profiles.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, profile.OwnerID, "delete", "personal_profiles", id, "")
	return nil
}
