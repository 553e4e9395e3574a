// Package models defines the record types persisted by the travel-document
// store. All entities belong to exactly one Owner; identifiers are opaque
// generated strings and timestamps are ISO-8601 UTC strings, matching the
// on-disk representation.
package models

// Owner is the single traveler whose records a store instance serves.
type Owner struct {
	ID        string `json:"id" validate:"required"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
