package models

import "encoding/json"

// SnapshotPayload is the fully-serialized copy of an EntryInfo and its
// linked entities at the moment the snapshot was taken.
type SnapshotPayload struct {
	EntryInfo        *EntryInfo           `json:"entryInfo,omitempty"`
	IdentityDocument *IdentityDocument    `json:"identityDocument,omitempty"`
	PersonalProfile  *PersonalProfile     `json:"personalProfile,omitempty"`
	TripPlan         *TripPlan            `json:"tripPlan,omitempty"`
	FundItems        []FundItem           `json:"fundItems,omitempty"`
	Receipts         []ArrivalCardReceipt `json:"receipts,omitempty"`
}

// Snapshot is an immutable point-in-time export kept for history and
// rollback. The payload is stored as one JSON document (encrypted when
// field encryption is active); PhotoManifest lists the externally stored
// photo files referenced by the payload.
type Snapshot struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId" validate:"required"`
	EntryInfoID   *string         `json:"entryInfoId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	IsComplete    bool            `json:"isComplete"`
	PhotoManifest []string        `json:"photoManifest,omitempty"`
	CreatedAt     string          `json:"createdAt"`
}
