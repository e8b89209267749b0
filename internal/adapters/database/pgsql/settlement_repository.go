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

type PgxSettlementRepository struct {
	pool *pgxpool.Pool
}

// NewPgxSettlementRepository creates a new repository for payout and refund
// workflow records. One type serves both ports; the tables are twins.
func NewPgxSettlementRepository(pool *pgxpool.Pool) *PgxSettlementRepository {
	return &PgxSettlementRepository{pool: pool}
}

var (
	_ portsrepo.PayoutRepository = (*PgxSettlementRepository)(nil)
	_ portsrepo.RefundRepository = (*PgxSettlementRepository)(nil)
)

func (r *PgxSettlementRepository) FindPayoutByID(ctx context.Context, payoutID string) (*domain.Payout, error) {
	var (
		payout domain.Payout
		amount decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `
		SELECT payout_id, merchant_id, transaction_id, amount, status, requested_at, completed_at, failed_at, failure_reason
		FROM payouts
		WHERE payout_id = $1;
	`, payoutID).Scan(
		&payout.PayoutID,
		&payout.MerchantID,
		&payout.TransactionID,
		&amount,
		&payout.Status,
		&payout.RequestedAt,
		&payout.CompletedAt,
		&payout.FailedAt,
		&payout.FailureReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payout %s: %w", payoutID, err)
	}
	money, err := domain.NewMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount on payout %s: %w", payoutID, err)
	}
	payout.Amount = money
	return &payout, nil
}

func (r *PgxSettlementRepository) ExistsRequestedPayoutForMerchant(ctx context.Context, merchantID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM payouts WHERE merchant_id = $1 AND status = $2);
	`, merchantID, domain.SettlementRequested).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check in-flight payouts for merchant %s: %w", merchantID, err)
	}
	return exists, nil
}

func (r *PgxSettlementRepository) SavePayout(ctx context.Context, payout domain.Payout) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payouts (payout_id, merchant_id, transaction_id, amount, status, requested_at, completed_at, failed_at, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (payout_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			failed_at = EXCLUDED.failed_at,
			failure_reason = EXCLUDED.failure_reason;
	`,
		payout.PayoutID,
		payout.MerchantID,
		payout.TransactionID,
		payout.Amount.Decimal(),
		payout.Status,
		payout.RequestedAt,
		payout.CompletedAt,
		payout.FailedAt,
		payout.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save payout %s: %w", payout.PayoutID, err)
	}
	return nil
}

func (r *PgxSettlementRepository) FindRefundByID(ctx context.Context, refundID string) (*domain.ClientRefund, error) {
	var (
		refund domain.ClientRefund
		amount decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `
		SELECT refund_id, client_id, transaction_id, amount, status, requested_at, completed_at, failed_at, failure_reason
		FROM refunds
		WHERE refund_id = $1;
	`, refundID).Scan(
		&refund.RefundID,
		&refund.ClientID,
		&refund.TransactionID,
		&amount,
		&refund.Status,
		&refund.RequestedAt,
		&refund.CompletedAt,
		&refund.FailedAt,
		&refund.FailureReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find refund %s: %w", refundID, err)
	}
	money, err := domain.NewMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount on refund %s: %w", refundID, err)
	}
	refund.Amount = money
	return &refund, nil
}

func (r *PgxSettlementRepository) ExistsRequestedRefundForClient(ctx context.Context, clientID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM refunds WHERE client_id = $1 AND status = $2);
	`, clientID, domain.SettlementRequested).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check in-flight refunds for client %s: %w", clientID, err)
	}
	return exists, nil
}

func (r *PgxSettlementRepository) SaveRefund(ctx context.Context, refund domain.ClientRefund) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refunds (refund_id, client_id, transaction_id, amount, status, requested_at, completed_at, failed_at, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (refund_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			failed_at = EXCLUDED.failed_at,
			failure_reason = EXCLUDED.failure_reason;
	`,
		refund.RefundID,
		refund.ClientID,
		refund.TransactionID,
		refund.Amount.Decimal(),
		refund.Status,
		refund.RequestedAt,
		refund.CompletedAt,
		refund.FailedAt,
		refund.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save refund %s: %w", refund.RefundID, err)
	}
	return nil
}
