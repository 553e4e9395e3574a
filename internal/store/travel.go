package store

import (
	"context"
	"fmt"

	"tripvault/internal/common"
	"tripvault/internal/models"
)

// SaveTripPlan upserts a trip plan. When the plan's entry-info link
// collides with another plan, the repository repairs the conflict; rows
// it deleted in the process come back in the result so the caller can
// tell the user.
func (s *Store) SaveTripPlan(ctx context.Context, plan *models.TripPlan) (*models.TripPlanSaveResult, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	result, err := s.plans.Save(ctx, plan)
	if err != nil {
		return nil, err
	}
	detail := ""
	if len(result.Displaced) > 0 {
		detail = fmt.Sprintf("displaced %d conflicting plan(s)", len(result.Displaced))
	}
	s.record(ctx, result.Plan.OwnerID, "save", "trip_plans", result.Plan.ID, detail)
	return result, nil
}

// TripPlan returns one plan, or nil when absent.
func (s *Store) TripPlan(ctx context.Context, id string) (*models.TripPlan, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.plans.GetByID(ctx, id)
}

// TripPlans lists an owner's plans, newest first.
func (s *Store) TripPlans(ctx context.Context, ownerID string) ([]models.TripPlan, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.plans.GetByOwnerID(ctx, ownerID)
}

// DeleteTripPlan removes one plan.
func (s *Store) DeleteTripPlan(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if plan == nil {
		return common.ErrNotFound
	}
	if err := s.plans.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, plan.OwnerID, "delete", "trip_plans", id, "")
	return nil
}

// SaveFundItem upserts a proof-of-funds record.
func (s *Store) SaveFundItem(ctx context.Context, item *models.FundItem) (*models.FundItem, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	saved, err := s.funds.Save(ctx, item)
	if err != nil {
		return nil, err
	}
	s.record(ctx, saved.OwnerID, "save", "fund_items", saved.ID, "")
	return saved, nil
}

// FundItem returns one fund item, or nil when absent.
func (s *Store) FundItem(ctx context.Context, id string) (*models.FundItem, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.funds.GetByID(ctx, id)
}

// FundItems lists an owner's fund items, newest first.
func (s *Store) FundItems(ctx context.Context, ownerID string) ([]models.FundItem, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.funds.GetByOwnerID(ctx, ownerID)
}

// DeleteFundItem removes one fund item and its entry-info attachments.
func (s *Store) DeleteFundItem(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	item, err := s.funds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return common.ErrNotFound
	}
	if err := s.funds.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, item.OwnerID, "delete", "fund_items", id, "")
	return nil
}

// LinkFundItem attaches a fund item to an entry info; attaching twice is
// a no-op.
func (s *Store) LinkFundItem(ctx context.Context, entryInfoID, fundItemID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	item, err := s.funds.GetByID(ctx, fundItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return common.ErrNotFound
	}
	if err := s.funds.Link(ctx, entryInfoID, fundItemID); err != nil {
		return err
	}
	s.record(ctx, item.OwnerID, "link", "entry_info_fund_items", fundItemID, "entry_info="+entryInfoID)
	return nil
}

// UnlinkFundItem detaches a fund item from an entry info.
func (s *Store) UnlinkFundItem(ctx context.Context, entryInfoID, fundItemID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	item, err := s.funds.GetByID(ctx, fundItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return common.ErrNotFound
	}
	if err := s.funds.Unlink(ctx, entryInfoID, fundItemID); err != nil {
		return err
	}
	s.record(ctx, item.OwnerID, "unlink", "entry_info_fund_items", fundItemID, "entry_info="+entryInfoID)
	return nil
}

// FundItemsForEntryInfo lists the fund items attached to one entry info.
func (s *Store) FundItemsForEntryInfo(ctx context.Context, entryInfoID string) ([]models.FundItem, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.funds.ForEntryInfo(ctx, entryInfoID)
}

// SaveEntryInfo upserts a destination attempt.
func (s *Store) SaveEntryInfo(ctx context.Context, info *models.EntryInfo) (*models.EntryInfo, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	saved, err := s.infos.Save(ctx, info)
	if err != nil {
		return nil, err
	}
	s.record(ctx, saved.OwnerID, "save", "entry_infos", saved.ID, "")
	return saved, nil
}

// EntryInfo returns one entry info, or nil when absent.
func (s *Store) EntryInfo(ctx context.Context, id string) (*models.EntryInfo, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.infos.GetByID(ctx, id)
}

// EntryInfos lists an owner's entry infos, newest first.
func (s *Store) EntryInfos(ctx context.Context, ownerID string) ([]models.EntryInfo, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.infos.GetByOwnerID(ctx, ownerID)
}

// SetEntryInfoStatus moves an entry info to a new lifecycle state.
func (s *Store) SetEntryInfoStatus(ctx context.Context, id string, status models.EntryInfoStatus) error {
	if err := s.guard(); err != nil {
		return err
	}
	info, err := s.infos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if info == nil {
		return common.ErrNotFound
	}
	if err := s.infos.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.record(ctx, info.OwnerID, "status", "entry_infos", id, string(status))
	return nil
}

// DeleteEntryInfo removes one entry info along with its receipt rows and
// fund item attachments.
func (s *Store) DeleteEntryInfo(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	info, err := s.infos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if info == nil {
		return common.ErrNotFound
	}
	if err := s.infos.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.record(ctx, info.OwnerID, "delete", "entry_infos", id, "")
	return nil
}

// EntryInfosWithRelations lists an owner's entry infos with their linked
// document, profile, trip plan, fund items, and non-superseded receipts
// populated. The one-to-one relations resolve in a single left-join query;
// fund items and receipts follow in one IN query each, so the whole
// aggregate costs three queries regardless of how many entry infos the
// owner has.
func (s *Store) EntryInfosWithRelations(ctx context.Context, ownerID string) ([]models.EntryInfoAggregate, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	aggregates, err := s.infos.GetByOwnerWithRelations(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(aggregates))
	for i := range aggregates {
		ids[i] = aggregates[i].EntryInfo.ID
	}
	fundsByEntry, err := s.funds.ForEntryInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	receiptsByEntry, err := s.receipts.ForEntryInfos(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range aggregates {
		id := aggregates[i].EntryInfo.ID
		aggregates[i].FundItems = fundsByEntry[id]
		aggregates[i].Receipts = receiptsByEntry[id]
	}
	return aggregates, nil
}
