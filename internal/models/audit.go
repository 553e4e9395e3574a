package models

// AuditEntry records one mutating store operation for the compliance
// trail. Entries are append-only and globally capped; the oldest are
// trimmed on write.
type AuditEntry struct {
	Seq         int64  `json:"seq"`
	OwnerID     string `json:"ownerId"`
	Action      string `json:"action"`
	TargetTable string `json:"targetTable"`
	TargetID    string `json:"targetId"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"createdAt"`
}
