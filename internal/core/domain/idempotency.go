package domain

import (
	"encoding/json"
	"time"
)

// IdempotencyStatus is the lifecycle of one idempotency key.
type IdempotencyStatus string

const (
	IdempotencyClaimed   IdempotencyStatus = "CLAIMED"
	IdempotencyCompleted IdempotencyStatus = "COMPLETED"
	IdempotencyFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyRecord tracks one client-supplied key. RequestHash binds the key
// to one logical payload: replaying the same key with a different hash is a
// conflict, never a cache hit. Result holds the serialized success response
// once the record is COMPLETED.
type IdempotencyRecord struct {
	Key         string            `json:"key"`
	RequestHash string            `json:"requestHash"`
	Status      IdempotencyStatus `json:"status"`
	Result      json.RawMessage   `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
