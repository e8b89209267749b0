package domain

import "time"

// AuditFields holds standard audit information for mutable entities.
// Ledger entries and transactions do not carry them; those are append-only.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}
