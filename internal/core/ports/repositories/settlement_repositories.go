package repositories

import (
	"context"

	"github.com/sahelpay/sahelpay/internal/core/domain"
)

// PayoutRepository persists the two-phase payout workflow records.
type PayoutRepository interface {
	FindPayoutByID(ctx context.Context, payoutID string) (*domain.Payout, error)
	// ExistsRequestedPayoutForMerchant reports whether the merchant already
	// has a payout in the REQUESTED state (single-in-flight invariant).
	ExistsRequestedPayoutForMerchant(ctx context.Context, merchantID string) (bool, error)
	SavePayout(ctx context.Context, payout domain.Payout) error
}

// RefundRepository persists the two-phase client refund workflow records.
type RefundRepository interface {
	FindRefundByID(ctx context.Context, refundID string) (*domain.ClientRefund, error)
	ExistsRequestedRefundForClient(ctx context.Context, clientID string) (bool, error)
	SaveRefund(ctx context.Context, refund domain.ClientRefund) error
}
