package models

// IdentityDocument is one passport record. Exactly one document per owner
// carries IsPrimary=true; saving a new primary atomically clears the old one.
type IdentityDocument struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"ownerId" validate:"required"`
	DocumentNumber *string `json:"documentNumber,omitempty"`
	FullName       *string `json:"fullName,omitempty"`
	DateOfBirth    *string `json:"dateOfBirth,omitempty"`
	Nationality    *string `json:"nationality,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	IssueDate      *string `json:"issueDate,omitempty"`
	ExpiryDate     *string `json:"expiryDate,omitempty"`
	PhotoRef       *string `json:"photoRef,omitempty"`
	IsPrimary      bool    `json:"isPrimary"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}
