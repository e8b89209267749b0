package repositories

import (
	"context"
	"encoding/json"

	"github.com/sahelpay/sahelpay/internal/core/domain"
)

// IdempotencyRepository implements the claim/complete/fail protocol on top of
// a unique-constraint-backed insert, so the at-most-once guarantee holds even
// when duplicate requests land on independent worker instances.
type IdempotencyRepository interface {
	// ClaimOrLoad attempts to claim the key for execution.
	//   - fresh key: inserts a CLAIMED record and returns it.
	//   - COMPLETED record with the same hash: returns it (cached replay).
	//   - FAILED record with the same hash: re-claims it and returns the
	//     CLAIMED record (the previous attempt is retryable).
	//   - any record with a different hash, or a CLAIMED record held by
	//     another in-flight request: apperrors.ErrIdempotencyConflict.
	ClaimOrLoad(ctx context.Context, key, requestHash string) (*domain.IdempotencyRecord, error)

	// Complete marks a claimed key COMPLETED and caches the serialized result.
	Complete(ctx context.Context, key, requestHash string, result json.RawMessage) error

	// Fail marks a claimed key FAILED so the same (key, hash) pair can be retried.
	Fail(ctx context.Context, key, requestHash string) error
}
