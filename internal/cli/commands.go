package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Init selects (and creates if needed) the owner every later command
// operates on.
func (a *App) Init(ctx context.Context) error {
	ownerID, err := GetSimpleText(a.reader, "Owner id:", os.Stdout)
	if err != nil {
		return err
	}
	owner, err := a.store.Initialize(ctx, ownerID)
	if err != nil {
		a.log.Error(ctx, "initialize failed", "error", err)
		printlnFn("Initialization failed:", err)
		return err
	}
	a.ownerID = owner.ID
	printlnFn("Owner ready:", owner.ID)
	return nil
}

// Trips prints each entry info with its linked records.
func (a *App) Trips(ctx context.Context) error {
	aggs, err := a.store.EntryInfosWithRelations(ctx, a.ownerID)
	if err != nil {
		printlnFn("Failed to list trips:", err)
		return err
	}
	if len(aggs) == 0 {
		printlnFn("No trips yet.")
		return nil
	}
	for _, agg := range aggs {
		info := agg.EntryInfo
		dest := "(no destination)"
		if info.DestinationID != nil {
			dest = *info.DestinationID
		}
		printlnFn(fmt.Sprintf("%s  %s  %s  %d%%", info.ID, dest, info.Status, info.CompletionPercent))
		if agg.TripPlan != nil {
			printlnFn("  plan:", agg.TripPlan.ID)
		}
		if agg.IdentityDocument != nil {
			printlnFn("  document:", agg.IdentityDocument.ID)
		}
		if agg.PersonalProfile != nil {
			printlnFn("  profile:", agg.PersonalProfile.ID)
		}
		printlnFn(fmt.Sprintf("  funds: %d  receipts: %d", len(agg.FundItems), len(agg.Receipts)))
	}
	return nil
}

// Documents prints the owner's identity documents, primary first.
func (a *App) Documents(ctx context.Context) error {
	docs, err := a.store.IdentityDocuments(ctx, a.ownerID)
	if err != nil {
		printlnFn("Failed to list documents:", err)
		return err
	}
	if len(docs) == 0 {
		printlnFn("No documents yet.")
		return nil
	}
	for _, doc := range docs {
		marker := " "
		if doc.IsPrimary {
			marker = "*"
		}
		name := ""
		if doc.FullName != nil {
			name = *doc.FullName
		}
		printlnFn(fmt.Sprintf("%s %s  %s", marker, doc.ID, name))
	}
	return nil
}

// Profiles prints the owner's personal profiles, default first.
func (a *App) Profiles(ctx context.Context) error {
	profs, err := a.store.PersonalProfiles(ctx, a.ownerID)
	if err != nil {
		printlnFn("Failed to list profiles:", err)
		return err
	}
	if len(profs) == 0 {
		printlnFn("No profiles yet.")
		return nil
	}
	for _, p := range profs {
		marker := " "
		if p.IsDefault {
			marker = "*"
		}
		email := ""
		if p.Email != nil {
			email = *p.Email
		}
		printlnFn(fmt.Sprintf("%s %s  %s", marker, p.ID, email))
	}
	return nil
}

// Funds prints the owner's proof-of-funds items.
func (a *App) Funds(ctx context.Context) error {
	items, err := a.store.FundItems(ctx, a.ownerID)
	if err != nil {
		printlnFn("Failed to list fund items:", err)
		return err
	}
	if len(items) == 0 {
		printlnFn("No fund items yet.")
		return nil
	}
	for _, item := range items {
		currency := ""
		if item.Currency != nil {
			currency = *item.Currency
		}
		printlnFn(fmt.Sprintf("%s  %.2f %s", item.ID, item.Amount, currency))
	}
	return nil
}

// Snapshot takes a point-in-time snapshot of one entry info.
func (a *App) Snapshot(ctx context.Context) error {
	entryInfoID, err := GetSimpleText(a.reader, "Entry info id:", os.Stdout)
	if err != nil {
		return err
	}
	snap, err := a.store.TakeSnapshot(ctx, a.ownerID, entryInfoID)
	if err != nil {
		printlnFn("Snapshot failed:", err)
		return err
	}
	printlnFn(fmt.Sprintf("Snapshot %s taken (complete: %v)", snap.ID, snap.IsComplete))
	return nil
}

// Stats prints per-table record counts for the owner.
func (a *App) Stats(ctx context.Context) error {
	stats, err := a.store.OwnerStats(ctx, a.ownerID)
	if err != nil {
		printlnFn("Failed to collect stats:", err)
		return err
	}
	printlnFn(fmt.Sprintf(
		"documents: %d  profiles: %d  plans: %d  funds: %d  trips: %d  receipts: %d  snapshots: %d",
		stats.IdentityDocuments, stats.PersonalProfiles, stats.TripPlans,
		stats.FundItems, stats.EntryInfos, stats.Receipts, stats.Snapshots))
	return nil
}

// Audit prints the owner's most recent audit entries.
func (a *App) Audit(ctx context.Context) error {
	trail, err := a.store.AuditTrail(ctx, a.ownerID, 20)
	if err != nil {
		printlnFn("Failed to read audit trail:", err)
		return err
	}
	if len(trail) == 0 {
		printlnFn("Audit trail is empty.")
		return nil
	}
	for _, e := range trail {
		printlnFn(fmt.Sprintf("%6d  %s  %-10s %s %s", e.Seq, e.CreatedAt, e.Action, e.TargetTable, e.TargetID))
	}
	return nil
}

// Export writes the owner's full audit trail to a JSON file.
func (a *App) Export(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Export file path:", os.Stdout)
	if err != nil {
		return err
	}
	trail, err := a.store.AuditTrail(ctx, a.ownerID, 0)
	if err != nil {
		printlnFn("Failed to read audit trail:", err)
		return err
	}
	data, err := json.MarshalIndent(trail, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit trail: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		printlnFn("Export failed:", err)
		return err
	}
	printlnFn(fmt.Sprintf("Exported %d entries to %s", len(trail), path))
	return nil
}

// Import loads documents, profiles and fund items from a JSON bundle file
// into the current owner's account. Bundles from older app versions are
// accepted; their legacy photo field names are resolved on the way in.
func (a *App) Import(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Bundle file path:", os.Stdout)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Failed to read bundle:", err)
		return err
	}
	summary, err := a.store.ImportBundle(ctx, a.ownerID, data)
	if err != nil && summary == nil {
		printlnFn("Import failed:", err)
		return err
	}
	if err != nil {
		printlnFn("Some records were skipped:", err)
	}
	printlnFn(fmt.Sprintf("Imported %d document(s), %d profile(s), %d fund item(s)",
		summary.Documents, summary.Profiles, summary.FundItems))
	return nil
}

// Purge deletes every record of the current owner after confirmation.
func (a *App) Purge(ctx context.Context) error {
	if !Confirm(a.reader, "This deletes ALL data of owner "+a.ownerID+".", os.Stdout) {
		printlnFn("Aborted.")
		return nil
	}
	if err := a.store.DeleteAllOwnerData(ctx, a.ownerID); err != nil {
		printlnFn("Purge failed:", err)
		return err
	}
	printlnFn("Owner data deleted.")
	a.ownerID = ""
	return nil
}

// Reset wipes the whole database after confirmation.
func (a *App) Reset(ctx context.Context) error {
	if !Confirm(a.reader, "This deletes the WHOLE database, all owners included.", os.Stdout) {
		printlnFn("Aborted.")
		return nil
	}
	if _, err := a.store.ForceReinitialize(ctx, a.ownerID); err != nil {
		printlnFn("Reset failed:", err)
		a.ownerID = ""
		return err
	}
	if a.ownerID != "" {
		printlnFn("Database reinitialized, owner", a.ownerID, "re-created.")
	} else {
		printlnFn("Database reinitialized.")
	}
	return nil
}
