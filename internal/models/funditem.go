package models

// FundItem is one proof-of-funds record. Items are owned independently and
// attached to EntryInfo aggregates through a join table (many-to-many).
type FundItem struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerId" validate:"required"`
	FundType  *string `json:"fundType,omitempty"`
	Amount    float64 `json:"amount"`
	Currency  *string `json:"currency,omitempty"`
	Detail    *string `json:"detail,omitempty"`
	PhotoRef  *string `json:"photoRef,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}
