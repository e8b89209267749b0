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

type PgxMerchantRepository struct {
	pool *pgxpool.Pool
}

// NewPgxMerchantRepository creates a new repository for merchant data.
func NewPgxMerchantRepository(pool *pgxpool.Pool) portsrepo.MerchantRepository {
	return &PgxMerchantRepository{pool: pool}
}

const merchantColumns = `merchant_id, code, name, status, created_at, created_by, last_updated_at, last_updated_by`

func (r *PgxMerchantRepository) FindMerchantByID(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	return r.findMerchant(ctx, `
		SELECT `+merchantColumns+`
		FROM merchants
		WHERE merchant_id = $1;
	`, merchantID)
}

func (r *PgxMerchantRepository) FindMerchantByCode(ctx context.Context, code string) (*domain.Merchant, error) {
	return r.findMerchant(ctx, `
		SELECT `+merchantColumns+`
		FROM merchants
		WHERE code = $1;
	`, code)
}

func (r *PgxMerchantRepository) SaveMerchant(ctx context.Context, merchant domain.Merchant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO merchants (merchant_id, code, name, status, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (merchant_id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`,
		merchant.MerchantID,
		merchant.Code,
		merchant.Name,
		merchant.Status,
		merchant.CreatedAt,
		merchant.CreatedBy,
		merchant.LastUpdatedAt,
		merchant.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: merchant code %q is already taken", apperrors.ErrDuplicate, merchant.Code)
		}
		return fmt.Errorf("failed to save merchant %s: %w", merchant.MerchantID, err)
	}
	return nil
}

func (r *PgxMerchantRepository) findMerchant(ctx context.Context, query string, arg any) (*domain.Merchant, error) {
	var merchant domain.Merchant
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&merchant.MerchantID,
		&merchant.Code,
		&merchant.Name,
		&merchant.Status,
		&merchant.CreatedAt,
		&merchant.CreatedBy,
		&merchant.LastUpdatedAt,
		&merchant.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find merchant: %w", err)
	}
	return &merchant, nil
}
