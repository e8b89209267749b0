package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
)

type PgxCardRepository struct {
	pool *pgxpool.Pool
}

// NewPgxCardRepository creates a new repository for enrolled card data.
func NewPgxCardRepository(pool *pgxpool.Pool) portsrepo.CardRepository {
	return &PgxCardRepository{pool: pool}
}

const cardColumns = `card_id, client_id, uid, pin_hash, status, failed_pin_attempts, created_at, created_by, last_updated_at, last_updated_by`

func (r *PgxCardRepository) FindCardByID(ctx context.Context, cardID string) (*domain.Card, error) {
	return r.findCard(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE card_id = $1;
	`, cardID)
}

func (r *PgxCardRepository) FindCardByUID(ctx context.Context, uid string) (*domain.Card, error) {
	return r.findCard(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE uid = $1;
	`, uid)
}

func (r *PgxCardRepository) ExistsCardWithUID(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM cards WHERE uid = $1);
	`, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check card uid: %w", err)
	}
	return exists, nil
}

func (r *PgxCardRepository) SaveCard(ctx context.Context, card domain.Card) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cards (card_id, client_id, uid, pin_hash, status, failed_pin_attempts, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (card_id) DO UPDATE SET
			pin_hash = EXCLUDED.pin_hash,
			status = EXCLUDED.status,
			failed_pin_attempts = EXCLUDED.failed_pin_attempts,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`,
		card.CardID,
		card.ClientID,
		card.UID,
		card.PINHash,
		card.Status,
		card.FailedPINAttempts,
		card.CreatedAt,
		card.CreatedBy,
		card.LastUpdatedAt,
		card.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: card uid %q is already enrolled", apperrors.ErrDuplicate, card.UID)
		}
		return fmt.Errorf("failed to save card %s: %w", card.CardID, err)
	}
	return nil
}

func (r *PgxCardRepository) findCard(ctx context.Context, query string, arg string) (*domain.Card, error) {
	var card domain.Card
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&card.CardID,
		&card.ClientID,
		&card.UID,
		&card.PINHash,
		&card.Status,
		&card.FailedPINAttempts,
		&card.CreatedAt,
		&card.CreatedBy,
		&card.LastUpdatedAt,
		&card.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return &card, nil
}
