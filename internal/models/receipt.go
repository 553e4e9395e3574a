package models

// ReceiptStatus is the submission state of an arrival-card receipt.
// pending → success | failed; a success row can later be superseded by a
// newer success row for the same (EntryInfo, cardType). failed rows are
// historical attempts and are never auto-superseded.
type ReceiptStatus string

const (
	ReceiptStatusPending ReceiptStatus = "pending"
	ReceiptStatusSuccess ReceiptStatus = "success"
	ReceiptStatusFailed  ReceiptStatus = "failed"
)

// SupersededReasonNewer is stamped on rows displaced by a newer successful
// submission of the same card type.
const SupersededReasonNewer = "superseded by newer successful submission"

// ArrivalCardReceipt is a government-issued arrival-card confirmation tied
// to one EntryInfo. At most one non-superseded success row exists per
// (EntryInfo, cardType) pair.
type ArrivalCardReceipt struct {
	ID                 string        `json:"id"`
	OwnerID            string        `json:"ownerId" validate:"required"`
	EntryInfoID        string        `json:"entryInfoId" validate:"required"`
	CardType           string        `json:"cardType" validate:"required"`
	Destination        *string       `json:"destination,omitempty"`
	ConfirmationNumber *string       `json:"confirmationNumber,omitempty"`
	ReceiptImageRef    *string       `json:"receiptImageRef,omitempty"`
	SubmissionMethod   *string       `json:"submissionMethod,omitempty"`
	Status             ReceiptStatus `json:"status"`
	IsSuperseded       bool          `json:"isSuperseded"`
	SupersededAt       *string       `json:"supersededAt,omitempty"`
	SupersededBy       *string       `json:"supersededBy,omitempty"`
	SupersededReason   *string       `json:"supersededReason,omitempty"`
	CreatedAt          string        `json:"createdAt"`
	UpdatedAt          string        `json:"updatedAt"`
}
