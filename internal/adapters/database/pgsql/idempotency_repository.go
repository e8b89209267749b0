package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

type PgxIdempotencyRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgxIdempotencyRepository creates a new repository for idempotency records.
func NewPgxIdempotencyRepository(pool *pgxpool.Pool) portsrepo.IdempotencyRepository {
	return &PgxIdempotencyRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// ClaimOrLoad races concurrent duplicates on the primary key insert: exactly
// one caller wins the claim, everyone else either gets the cached result or a
// conflict.
func (r *PgxIdempotencyRepository) ClaimOrLoad(ctx context.Context, key, requestHash string) (*domain.IdempotencyRecord, error) {
	now := r.now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, request_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4);
	`, key, requestHash, domain.IdempotencyClaimed, now)
	if err == nil {
		return &domain.IdempotencyRecord{
			Key:         key,
			RequestHash: requestHash,
			Status:      domain.IdempotencyClaimed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil, fmt.Errorf("failed to claim idempotency key %s: %w", key, err)
	}

	existing, err := r.findByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing.RequestHash != requestHash {
		return nil, fmt.Errorf("%w: key %s was used with a different payload", apperrors.ErrIdempotencyConflict, key)
	}

	switch existing.Status {
	case domain.IdempotencyCompleted:
		return existing, nil
	case domain.IdempotencyFailed:
		return r.reclaim(ctx, key, requestHash)
	default:
		return nil, fmt.Errorf("%w: key %s is still in flight", apperrors.ErrIdempotencyConflict, key)
	}
}

// Complete marks a claimed key COMPLETED and caches the serialized result.
func (r *PgxIdempotencyRepository) Complete(ctx context.Context, key, requestHash string, result json.RawMessage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1, result = $2, updated_at = $3
		WHERE key = $4 AND request_hash = $5 AND status = $6;
	`, domain.IdempotencyCompleted, result, r.now(), key, requestHash, domain.IdempotencyClaimed)
	if err != nil {
		return fmt.Errorf("failed to complete idempotency key %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: key %s is not claimed by this request", apperrors.ErrIdempotencyConflict, key)
	}
	return nil
}

// Fail marks a claimed key FAILED so the same (key, hash) pair can be retried.
func (r *PgxIdempotencyRepository) Fail(ctx context.Context, key, requestHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1, updated_at = $2
		WHERE key = $3 AND request_hash = $4 AND status = $5;
	`, domain.IdempotencyFailed, r.now(), key, requestHash, domain.IdempotencyClaimed)
	if err != nil {
		return fmt.Errorf("failed to fail idempotency key %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: key %s is not claimed by this request", apperrors.ErrIdempotencyConflict, key)
	}
	return nil
}

// reclaim flips a FAILED record back to CLAIMED. The status guard in the
// WHERE clause makes concurrent reclaims race safely: the loser conflicts.
func (r *PgxIdempotencyRepository) reclaim(ctx context.Context, key, requestHash string) (*domain.IdempotencyRecord, error) {
	now := r.now()
	tag, err := r.pool.Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1, result = NULL, updated_at = $2
		WHERE key = $3 AND request_hash = $4 AND status = $5;
	`, domain.IdempotencyClaimed, now, key, requestHash, domain.IdempotencyFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim idempotency key %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: key %s was reclaimed concurrently", apperrors.ErrIdempotencyConflict, key)
	}
	return &domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyClaimed,
		UpdatedAt:   now,
	}, nil
}

func (r *PgxIdempotencyRepository) findByKey(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord
	err := r.pool.QueryRow(ctx, `
		SELECT key, request_hash, status, result, created_at, updated_at
		FROM idempotency_keys
		WHERE key = $1;
	`, key).Scan(
		&record.Key,
		&record.RequestHash,
		&record.Status,
		&record.Result,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find idempotency key %s: %w", key, err)
	}
	return &record, nil
}
