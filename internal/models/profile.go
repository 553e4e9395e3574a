package models

// PersonalProfile holds contact and residency details, reusable across
// trips. Exactly one profile per owner carries IsDefault=true.
type PersonalProfile struct {
	ID                  string  `json:"id"`
	OwnerID             string  `json:"ownerId" validate:"required"`
	Phone               *string `json:"phone,omitempty"`
	Email               *string `json:"email,omitempty"`
	HomeAddress         *string `json:"homeAddress,omitempty"`
	Occupation          *string `json:"occupation,omitempty"`
	ProvinceOfResidence *string `json:"provinceOfResidence,omitempty"`
	CountryOfResidence  *string `json:"countryOfResidence,omitempty"`
	IdentityDocumentID  *string `json:"identityDocumentId,omitempty"`
	IsDefault           bool    `json:"isDefault"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}
