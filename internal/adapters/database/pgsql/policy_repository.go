package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type PgxPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPgxPolicyRepository creates a new repository for the versioned platform,
// fee and commission configuration. One type serves all three ports; the
// tables share the append-only versioning shape.
func NewPgxPolicyRepository(pool *pgxpool.Pool) *PgxPolicyRepository {
	return &PgxPolicyRepository{pool: pool}
}

var (
	_ portsrepo.PlatformConfigRepository   = (*PgxPolicyRepository)(nil)
	_ portsrepo.FeeConfigRepository        = (*PgxPolicyRepository)(nil)
	_ portsrepo.CommissionConfigRepository = (*PgxPolicyRepository)(nil)
)

func (r *PgxPolicyRepository) CurrentPlatformConfig(ctx context.Context) (*domain.PlatformConfig, error) {
	var (
		cfg       domain.PlatformConfig
		minPer    decimal.Decimal
		maxPer    decimal.Decimal
		daily     decimal.Decimal
		enrollFee decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `
		SELECT version, min_per_transaction, max_per_transaction, daily_debit_limit, pin_attempt_threshold, card_enrollment_price, created_at
		FROM platform_configs
		ORDER BY version DESC
		LIMIT 1;
	`).Scan(&cfg.Version, &minPer, &maxPer, &daily, &cfg.PINAttemptThreshold, &enrollFee, &cfg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load current platform config: %w", err)
	}

	if cfg.MinPerTransaction, err = domain.NewMoney(minPer); err != nil {
		return nil, fmt.Errorf("invalid min_per_transaction in version %d: %w", cfg.Version, err)
	}
	if cfg.MaxPerTransaction, err = domain.NewMoney(maxPer); err != nil {
		return nil, fmt.Errorf("invalid max_per_transaction in version %d: %w", cfg.Version, err)
	}
	if cfg.DailyDebitLimit, err = domain.NewMoney(daily); err != nil {
		return nil, fmt.Errorf("invalid daily_debit_limit in version %d: %w", cfg.Version, err)
	}
	if cfg.CardEnrollmentPrice, err = domain.NewMoney(enrollFee); err != nil {
		return nil, fmt.Errorf("invalid card_enrollment_price in version %d: %w", cfg.Version, err)
	}
	return &cfg, nil
}

func (r *PgxPolicyRepository) SavePlatformConfig(ctx context.Context, cfg domain.PlatformConfig) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO platform_configs (version, min_per_transaction, max_per_transaction, daily_debit_limit, pin_attempt_threshold, card_enrollment_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`,
		cfg.Version,
		cfg.MinPerTransaction.Decimal(),
		cfg.MaxPerTransaction.Decimal(),
		cfg.DailyDebitLimit.Decimal(),
		cfg.PINAttemptThreshold,
		cfg.CardEnrollmentPrice.Decimal(),
		cfg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save platform config version %d: %w", cfg.Version, err)
	}
	return nil
}

func (r *PgxPolicyRepository) CurrentFeeConfig(ctx context.Context, txType domain.TransactionType) (*domain.FeeConfig, error) {
	var (
		cfg    domain.FeeConfig
		minFee decimal.Decimal
		maxFee decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `
		SELECT version, transaction_type, rate, min_fee, max_fee, refundable, created_at
		FROM fee_configs
		WHERE transaction_type = $1
		ORDER BY version DESC
		LIMIT 1;
	`, txType).Scan(&cfg.Version, &cfg.TransactionType, &cfg.Rate, &minFee, &maxFee, &cfg.Refundable, &cfg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load fee config for %s: %w", txType, err)
	}

	if cfg.MinFee, err = domain.NewMoney(minFee); err != nil {
		return nil, fmt.Errorf("invalid min_fee for %s version %d: %w", txType, cfg.Version, err)
	}
	if cfg.MaxFee, err = domain.NewMoney(maxFee); err != nil {
		return nil, fmt.Errorf("invalid max_fee for %s version %d: %w", txType, cfg.Version, err)
	}
	return &cfg, nil
}

func (r *PgxPolicyRepository) SaveFeeConfig(ctx context.Context, cfg domain.FeeConfig) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fee_configs (version, transaction_type, rate, min_fee, max_fee, refundable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`,
		cfg.Version,
		cfg.TransactionType,
		cfg.Rate,
		cfg.MinFee.Decimal(),
		cfg.MaxFee.Decimal(),
		cfg.Refundable,
		cfg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save fee config for %s version %d: %w", cfg.TransactionType, cfg.Version, err)
	}
	return nil
}

func (r *PgxPolicyRepository) CurrentCommissionConfig(ctx context.Context, txType domain.TransactionType) (*domain.CommissionConfig, error) {
	var (
		cfg  domain.CommissionConfig
		flat *decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `
		SELECT version, transaction_type, flat, rate_of_fee, created_at
		FROM commission_configs
		WHERE transaction_type = $1
		ORDER BY version DESC
		LIMIT 1;
	`, txType).Scan(&cfg.Version, &cfg.TransactionType, &flat, &cfg.RateOfFee, &cfg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load commission config for %s: %w", txType, err)
	}

	if flat != nil {
		m, err := domain.NewMoney(*flat)
		if err != nil {
			return nil, fmt.Errorf("invalid flat commission for %s version %d: %w", txType, cfg.Version, err)
		}
		cfg.Flat = &m
	}
	return &cfg, nil
}

func (r *PgxPolicyRepository) SaveCommissionConfig(ctx context.Context, cfg domain.CommissionConfig) error {
	var flat *decimal.Decimal
	if cfg.Flat != nil {
		d := cfg.Flat.Decimal()
		flat = &d
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO commission_configs (version, transaction_type, flat, rate_of_fee, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`,
		cfg.Version,
		cfg.TransactionType,
		flat,
		cfg.RateOfFee,
		cfg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save commission config for %s version %d: %w", cfg.TransactionType, cfg.Version, err)
	}
	return nil
}
