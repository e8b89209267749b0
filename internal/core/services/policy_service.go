package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
)

// feeBearingTypes are the transaction types a fee config may target.
var feeBearingTypes = map[domain.TransactionType]bool{
	domain.TxPayByCard:          true,
	domain.TxClientTransfer:     true,
	domain.TxMerchantTransfer:   true,
	domain.TxMerchantWithdrawal: true,
}

// commissionBearingTypes are the transaction types a commission config may target.
var commissionBearingTypes = map[domain.TransactionType]bool{
	domain.TxCardEnrollment:     true,
	domain.TxMerchantWithdrawal: true,
}

// policyService administers the versioned platform, fee and commission
// configuration. Every update writes a new version row; running transactions
// keep the version they loaded.
type policyService struct {
	platformRepo   portsrepo.PlatformConfigRepository
	feeRepo        portsrepo.FeeConfigRepository
	commissionRepo portsrepo.CommissionConfigRepository

	now func() time.Time
}

// NewPolicyService creates a new PolicyService.
func NewPolicyService(
	platformRepo portsrepo.PlatformConfigRepository,
	feeRepo portsrepo.FeeConfigRepository,
	commissionRepo portsrepo.CommissionConfigRepository,
) portssvc.PolicySvcFacade {
	return &policyService{
		platformRepo:   platformRepo,
		feeRepo:        feeRepo,
		commissionRepo: commissionRepo,
		now:            defaultClock,
	}
}

var _ portssvc.PolicySvcFacade = (*policyService)(nil)

// GetPlatformConfig returns the current platform configuration version.
func (s *policyService) GetPlatformConfig(ctx context.Context, actor domain.Actor) (*dto.PlatformConfigResponse, error) {
	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return nil, err
	}
	cfg, err := s.platformRepo.CurrentPlatformConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform config: %w", err)
	}
	return toPlatformConfigResponse(cfg), nil
}

// UpdatePlatformConfig validates and writes a new platform configuration version.
func (s *policyService) UpdatePlatformConfig(ctx context.Context, actor domain.Actor, req dto.UpdatePlatformConfigRequest) (*dto.PlatformConfigResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return nil, err
	}

	minPer, err := domain.NewMoney(req.MinPerTransaction)
	if err != nil {
		return nil, err
	}
	maxPer, err := domain.NewPositiveMoney(req.MaxPerTransaction)
	if err != nil {
		return nil, err
	}
	dailyLimit, err := domain.NewPositiveMoney(req.DailyDebitLimit)
	if err != nil {
		return nil, err
	}
	price, err := domain.NewPositiveMoney(req.CardEnrollmentPrice)
	if err != nil {
		return nil, err
	}

	version, err := s.nextPlatformVersion(ctx)
	if err != nil {
		return nil, err
	}
	cfg := domain.PlatformConfig{
		Version:             version,
		MinPerTransaction:   minPer,
		MaxPerTransaction:   maxPer,
		DailyDebitLimit:     dailyLimit,
		PINAttemptThreshold: req.PINAttemptThreshold,
		CardEnrollmentPrice: price,
		CreatedAt:           s.now(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.platformRepo.SavePlatformConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save platform config: %w", err)
	}

	logger.Info("Platform config updated", "version", cfg.Version, "updated_by", actor.ID)
	return toPlatformConfigResponse(&cfg), nil
}

// UpdateFeeConfig validates and writes a new fee configuration version for
// one transaction type.
func (s *policyService) UpdateFeeConfig(ctx context.Context, actor domain.Actor, req dto.UpdateFeeConfigRequest) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return err
	}
	txType := domain.TransactionType(req.TransactionType)
	if !feeBearingTypes[txType] {
		return apperrors.NewValidationError("transactionType", fmt.Sprintf("%q does not carry a fee", req.TransactionType))
	}

	minFee, err := domain.NewMoney(req.MinFee)
	if err != nil {
		return err
	}
	maxFee, err := domain.NewMoney(req.MaxFee)
	if err != nil {
		return err
	}

	version := 1
	if current, err := s.feeRepo.CurrentFeeConfig(ctx, txType); err == nil {
		version = current.Version + 1
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to load fee config for %s: %w", txType, err)
	}

	cfg := domain.FeeConfig{
		Version:         version,
		TransactionType: txType,
		Rate:            req.Rate,
		MinFee:          minFee,
		MaxFee:          maxFee,
		Refundable:      req.Refundable,
		CreatedAt:       s.now(),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.feeRepo.SaveFeeConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save fee config for %s: %w", txType, err)
	}

	logger.Info("Fee config updated", "transaction_type", string(txType), "version", cfg.Version, "updated_by", actor.ID)
	return nil
}

// UpdateCommissionConfig validates and writes a new commission configuration
// version. A flat commission is checked against the smallest fee its paired
// fee config can produce, so that commission <= fee holds for every amount;
// for card enrollment the reference is the fixed enrollment price.
func (s *policyService) UpdateCommissionConfig(ctx context.Context, actor domain.Actor, req dto.UpdateCommissionConfigRequest) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return err
	}
	txType := domain.TransactionType(req.TransactionType)
	if !commissionBearingTypes[txType] {
		return apperrors.NewValidationError("transactionType", fmt.Sprintf("%q does not carry a commission", req.TransactionType))
	}

	referenceFee, err := s.referenceFeeFor(ctx, txType)
	if err != nil {
		return err
	}

	var flat *domain.Money
	if req.Flat != nil {
		m, err := domain.NewMoney(*req.Flat)
		if err != nil {
			return err
		}
		flat = &m
	}

	version := 1
	if current, err := s.commissionRepo.CurrentCommissionConfig(ctx, txType); err == nil {
		version = current.Version + 1
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to load commission config for %s: %w", txType, err)
	}

	cfg := domain.CommissionConfig{
		Version:         version,
		TransactionType: txType,
		Flat:            flat,
		RateOfFee:       req.RateOfFee,
		CreatedAt:       s.now(),
	}
	if err := cfg.Validate(referenceFee); err != nil {
		return err
	}
	if err := s.commissionRepo.SaveCommissionConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save commission config for %s: %w", txType, err)
	}

	logger.Info("Commission config updated", "transaction_type", string(txType), "version", cfg.Version, "updated_by", actor.ID)
	return nil
}

func (s *policyService) nextPlatformVersion(ctx context.Context) (int, error) {
	current, err := s.platformRepo.CurrentPlatformConfig(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to load platform config: %w", err)
	}
	return current.Version + 1, nil
}

// referenceFeeFor returns the ceiling a commission for txType is validated
// against. The runtime fee is clamped to [MinFee, MaxFee], so MinFee is the
// only flat value the invariant holds for on every amount. Card enrollment
// has no fee config; its commission comes out of the fixed enrollment price.
func (s *policyService) referenceFeeFor(ctx context.Context, txType domain.TransactionType) (domain.Money, error) {
	if txType == domain.TxCardEnrollment {
		platformCfg, err := s.platformRepo.CurrentPlatformConfig(ctx)
		if err != nil {
			return domain.Money{}, fmt.Errorf("failed to load platform config: %w", err)
		}
		return platformCfg.CardEnrollmentPrice, nil
	}
	feeCfg, err := s.feeRepo.CurrentFeeConfig(ctx, txType)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Money{}, apperrors.NewValidationError("transactionType", fmt.Sprintf("no fee config exists for %q yet", txType))
		}
		return domain.Money{}, fmt.Errorf("failed to load fee config for %s: %w", txType, err)
	}
	return feeCfg.MinFee, nil
}

func toPlatformConfigResponse(cfg *domain.PlatformConfig) *dto.PlatformConfigResponse {
	return &dto.PlatformConfigResponse{
		Version:             cfg.Version,
		MinPerTransaction:   cfg.MinPerTransaction.String(),
		MaxPerTransaction:   cfg.MaxPerTransaction.String(),
		DailyDebitLimit:     cfg.DailyDebitLimit.String(),
		PINAttemptThreshold: cfg.PINAttemptThreshold,
		CardEnrollmentPrice: cfg.CardEnrollmentPrice.String(),
	}
}
