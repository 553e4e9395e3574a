package models

// TripPlan holds draft travel details for a single trip. At most one plan
// may reference a given EntryInfo; the repository repairs violations of
// that rule on save.
type TripPlan struct {
	ID                   string  `json:"id"`
	OwnerID              string  `json:"ownerId" validate:"required"`
	Destination          *string `json:"destination,omitempty"`
	Purpose              *string `json:"purpose,omitempty"`
	ArrivalFlight        *string `json:"arrivalFlight,omitempty"`
	ArrivalDate          *string `json:"arrivalDate,omitempty"`
	DepartureFlight      *string `json:"departureFlight,omitempty"`
	DepartureDate        *string `json:"departureDate,omitempty"`
	AccommodationType    *string `json:"accommodationType,omitempty"`
	AccommodationName    *string `json:"accommodationName,omitempty"`
	AccommodationAddress *string `json:"accommodationAddress,omitempty"`
	InTransit            bool    `json:"inTransit"`
	EntryInfoID          *string `json:"entryInfoId,omitempty"`
	CreatedAt            string  `json:"createdAt"`
	UpdatedAt            string  `json:"updatedAt"`
}

// TripPlanSaveResult is returned by the trip-plan save path. Displaced
// holds rows deleted while repairing an EntryInfo link conflict; Warning
// is a human-readable notice the caller may surface.
type TripPlanSaveResult struct {
	Plan      *TripPlan  `json:"plan"`
	Displaced []TripPlan `json:"displaced,omitempty"`
	Warning   string     `json:"warning,omitempty"`
}
