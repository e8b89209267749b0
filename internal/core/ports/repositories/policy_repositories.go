package repositories

import (
	"context"

	"github.com/sahelpay/sahelpay/internal/core/domain"
)

// PlatformConfigRepository reads and versions the platform-wide limits.
// Saving always writes a new version row; old versions stay for audit.
type PlatformConfigRepository interface {
	CurrentPlatformConfig(ctx context.Context) (*domain.PlatformConfig, error)
	SavePlatformConfig(ctx context.Context, cfg domain.PlatformConfig) error
}

// FeeConfigRepository reads and versions fee configuration per transaction type.
type FeeConfigRepository interface {
	CurrentFeeConfig(ctx context.Context, txType domain.TransactionType) (*domain.FeeConfig, error)
	SaveFeeConfig(ctx context.Context, cfg domain.FeeConfig) error
}

// CommissionConfigRepository reads and versions agent commission configuration.
type CommissionConfigRepository interface {
	CurrentCommissionConfig(ctx context.Context, txType domain.TransactionType) (*domain.CommissionConfig, error)
	SaveCommissionConfig(ctx context.Context, cfg domain.CommissionConfig) error
}
