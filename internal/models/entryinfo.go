package models

// EntryInfoStatus is the lifecycle state of a destination attempt.
type EntryInfoStatus string

const (
	EntryInfoStatusDraft     EntryInfoStatus = "draft"
	EntryInfoStatusReady     EntryInfoStatus = "ready"
	EntryInfoStatusSubmitted EntryInfoStatus = "submitted"
	EntryInfoStatusArchived  EntryInfoStatus = "archived"
)

// EntryInfo is the per-destination aggregate tying one identity document,
// personal profile, trip plan and a set of fund items together, plus the
// submission lifecycle for that destination attempt. Historical attempts
// are retained, one row per attempt.
type EntryInfo struct {
	ID                 string          `json:"id"`
	OwnerID            string          `json:"ownerId" validate:"required"`
	DestinationID      *string         `json:"destinationId,omitempty"`
	Status             EntryInfoStatus `json:"status"`
	CompletionPercent  int             `json:"completionPercent"`
	AttachedDocuments  []string        `json:"attachedDocuments,omitempty"`
	DisplayStatus      *string         `json:"displayStatus,omitempty"`
	IdentityDocumentID *string         `json:"identityDocumentId,omitempty"`
	PersonalProfileID  *string         `json:"personalProfileId,omitempty"`
	CreatedAt          string          `json:"createdAt"`
	UpdatedAt          string          `json:"updatedAt"`
}

// EntryInfoAggregate is an EntryInfo with its related records populated.
// Produced by the 3-query aggregate fetch on the trips listing hot path.
type EntryInfoAggregate struct {
	EntryInfo        EntryInfo            `json:"entryInfo"`
	IdentityDocument *IdentityDocument    `json:"identityDocument,omitempty"`
	PersonalProfile  *PersonalProfile     `json:"personalProfile,omitempty"`
	TripPlan         *TripPlan            `json:"tripPlan,omitempty"`
	FundItems        []FundItem           `json:"fundItems,omitempty"`
	Receipts         []ArrivalCardReceipt `json:"receipts,omitempty"`
}
