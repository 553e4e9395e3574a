package store

import (
	"context"

	"tripvault/internal/common"
	"tripvault/internal/models"
)

// SaveArrivalCardReceipt records a submission attempt. Saving a success
// supersedes earlier pending/success rows of the same
// (entry info, card type) in the same transaction.
func (s *Store) SaveArrivalCardReceipt(ctx context.Context, receipt *models.ArrivalCardReceipt) (*models.ArrivalCardReceipt, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	saved, err := s.receipts.Save(ctx, receipt)
	if err != nil {
		return nil, err
	}
	s.record(ctx, saved.OwnerID, "save", "arrival_card_receipts", saved.ID, string(saved.Status))
	return saved, nil
}

// ArrivalCardReceipt returns one receipt, or nil when absent.
func (s *Store) ArrivalCardReceipt(ctx context.Context, id string) (*models.ArrivalCardReceipt, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.receipts.GetByID(ctx, id)
}

// ArrivalCardReceipts lists an owner's receipts, newest first, superseded
// history included.
func (s *Store) ArrivalCardReceipts(ctx context.Context, ownerID string) ([]models.ArrivalCardReceipt, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.receipts.GetByOwnerID(ctx, ownerID)
}

// ReceiptsForEntryInfo lists the receipts of one entry info, newest
// first, superseded history included.
func (s *Store) ReceiptsForEntryInfo(ctx context.Context, entryInfoID string) ([]models.ArrivalCardReceipt, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.receipts.ForEntryInfo(ctx, entryInfoID)
}

// ActiveReceipt returns the single authoritative success receipt for an
// (entry info, card type) pair, or nil when none exists.
func (s *Store) ActiveReceipt(ctx context.Context, entryInfoID, cardType string) (*models.ArrivalCardReceipt, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.receipts.Active(ctx, entryInfoID, cardType)
}

// DeleteArrivalCardReceipt removes one receipt.
func (s *Store) DeleteArrivalCardReceipt(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	receipt, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if receipt == nil {
		return common.ErrNotFound
	}
	if err := s.receipts.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, receipt.OwnerID, "delete", "arrival_card_receipts", id, "")
	return nil
}
