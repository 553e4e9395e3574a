package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"tripvault/internal/models"
	"tripvault/internal/serialize"
)

// ImportSummary reports how many records an ImportBundle call saved.
type ImportSummary struct {
	Documents int `json:"documents"`
	Profiles  int `json:"profiles"`
	FundItems int `json:"fundItems"`
}

type importBundle struct {
	IdentityDocuments []json.RawMessage `json:"identityDocuments"`
	PersonalProfiles  []json.RawMessage `json:"personalProfiles"`
	FundItems         []json.RawMessage `json:"fundItems"`
}

// ImportBundle loads records from an exported JSON bundle into an owner's
// account. Photo references are resolved through the historical alias set
// (photoUri, photoPath, imageUri), so bundles produced by older exports
// import cleanly. Records are claimed for ownerID regardless of what the
// bundle says; a record that fails to decode or save is skipped and
// reported, it does not abort the rest of the bundle.
func (s *Store) ImportBundle(ctx context.Context, ownerID string, data []byte) (*ImportSummary, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var bundle importBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	summary := &ImportSummary{}
	var issues error

	for i, raw := range bundle.IdentityDocuments {
		var doc models.IdentityDocument
		if err := serialize.DecodeWithAliases(raw, &doc); err != nil {
			issues = multierr.Append(issues, fmt.Errorf("document %d: %w", i, err))
			continue
		}
		doc.OwnerID = ownerID
		if _, err := s.docs.Save(ctx, &doc); err != nil {
			issues = multierr.Append(issues, fmt.Errorf("document %d: %w", i, err))
			continue
		}
		summary.Documents++
	}

	for i, raw := range bundle.PersonalProfiles {
		var profile models.PersonalProfile
		if err := serialize.DecodeWithAliases(raw, &profile); err != nil {
			issues = multierr.Append(issues, fmt.Errorf("profile %d: %w", i, err))
			continue
		}
		profile.OwnerID = ownerID
		if _, err := s.profiles.Save(ctx, &profile); err != nil {
			issues = multierr.Append(issues, fmt.Errorf("profile %d: %w", i, err))
			continue
		}
		summary.Profiles++
	}

	for i, raw := range bundle.FundItems {
		var item models.FundItem
		if err := serialize.DecodeWithAliases(raw, &item); err != nil {
			issues = multierr.Append(issues, fmt.Errorf("fund item %d: %w", i, err))
			continue
		}
		item.OwnerID = ownerID
		if _, err := s.funds.Save(ctx, &item); err != nil {
			issues = multierr.Append(issues, fmt.Errorf("fund item %d: %w", i, err))
			continue
		}
		summary.FundItems++
	}

	detail := fmt.Sprintf("%d document(s), %d profile(s), %d fund item(s)",
		summary.Documents, summary.Profiles, summary.FundItems)
	s.record(ctx, ownerID, "import", "bundle", "", detail)
	return summary, issues
}
