package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PolicyServiceTestSuite struct {
	suite.Suite
	policy  *memPolicyRepo
	service *policyService

	admin domain.Actor
}

func (s *PolicyServiceTestSuite) SetupTest() {
	s.policy = newMemPolicyRepo()
	s.admin = domain.Actor{ID: "admin-1", Kind: domain.ActorAdmin}

	svc := NewPolicyService(s.policy, s.policy, s.policy).(*policyService)
	svc.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	s.service = svc
}

func (s *PolicyServiceTestSuite) platformRequest() dto.UpdatePlatformConfigRequest {
	return dto.UpdatePlatformConfigRequest{
		MinPerTransaction:   decimal.RequireFromString("1.00"),
		MaxPerTransaction:   decimal.RequireFromString("100000.00"),
		DailyDebitLimit:     decimal.RequireFromString("200000.00"),
		PINAttemptThreshold: 3,
		CardEnrollmentPrice: decimal.RequireFromString("500.00"),
	}
}

func (s *PolicyServiceTestSuite) TestUpdatePlatformConfig_VersionsIncrement() {
	first, err := s.service.UpdatePlatformConfig(context.Background(), s.admin, s.platformRequest())
	s.Require().NoError(err)
	s.Equal(1, first.Version)
	s.Equal("1.00", first.MinPerTransaction)

	second, err := s.service.UpdatePlatformConfig(context.Background(), s.admin, s.platformRequest())
	s.Require().NoError(err)
	s.Equal(2, second.Version)

	current, err := s.service.GetPlatformConfig(context.Background(), s.admin)
	s.Require().NoError(err)
	s.Equal(2, current.Version)
}

func (s *PolicyServiceTestSuite) TestUpdatePlatformConfig_RejectsInvertedBounds() {
	req := s.platformRequest()
	req.MinPerTransaction = decimal.RequireFromString("500000.00")

	_, err := s.service.UpdatePlatformConfig(context.Background(), s.admin, req)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PolicyServiceTestSuite) TestUpdatePlatformConfig_RejectsNegativeAmount() {
	req := s.platformRequest()
	req.DailyDebitLimit = decimal.RequireFromString("-1.00")

	_, err := s.service.UpdatePlatformConfig(context.Background(), s.admin, req)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PolicyServiceTestSuite) TestUpdatePlatformConfig_AdminOnly() {
	actor := domain.Actor{ID: "merchant-1", Kind: domain.ActorMerchant}
	_, err := s.service.UpdatePlatformConfig(context.Background(), actor, s.platformRequest())
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.GetPlatformConfig(context.Background(), actor)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *PolicyServiceTestSuite) TestUpdateFeeConfig_VersionsIncrementPerType() {
	req := dto.UpdateFeeConfigRequest{
		TransactionType: string(domain.TxClientTransfer),
		Rate:            decimal.RequireFromString("0.01"),
		MinFee:          decimal.RequireFromString("1.00"),
		MaxFee:          decimal.RequireFromString("100.00"),
		Refundable:      true,
	}
	s.Require().NoError(s.service.UpdateFeeConfig(context.Background(), s.admin, req))
	s.Require().NoError(s.service.UpdateFeeConfig(context.Background(), s.admin, req))

	cfg, err := s.policy.CurrentFeeConfig(context.Background(), domain.TxClientTransfer)
	s.Require().NoError(err)
	s.Equal(2, cfg.Version)

	// Other types start from version 1 independently.
	req.TransactionType = string(domain.TxPayByCard)
	s.Require().NoError(s.service.UpdateFeeConfig(context.Background(), s.admin, req))
	cfg, err = s.policy.CurrentFeeConfig(context.Background(), domain.TxPayByCard)
	s.Require().NoError(err)
	s.Equal(1, cfg.Version)
}

func (s *PolicyServiceTestSuite) TestUpdateFeeConfig_RejectsFeeFreeType() {
	req := dto.UpdateFeeConfigRequest{
		TransactionType: string(domain.TxCashIn),
		Rate:            decimal.RequireFromString("0.01"),
		MinFee:          decimal.RequireFromString("1.00"),
		MaxFee:          decimal.RequireFromString("100.00"),
	}
	err := s.service.UpdateFeeConfig(context.Background(), s.admin, req)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Contains(err.Error(), "does not carry a fee")
}

func (s *PolicyServiceTestSuite) TestUpdateFeeConfig_RejectsRateAboveOne() {
	req := dto.UpdateFeeConfigRequest{
		TransactionType: string(domain.TxClientTransfer),
		Rate:            decimal.RequireFromString("1.5"),
		MinFee:          decimal.RequireFromString("1.00"),
		MaxFee:          decimal.RequireFromString("100.00"),
	}
	err := s.service.UpdateFeeConfig(context.Background(), s.admin, req)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PolicyServiceTestSuite) TestUpdateCommissionConfig_RateOfFee() {
	s.Require().NoError(s.service.UpdateFeeConfig(context.Background(), s.admin, dto.UpdateFeeConfigRequest{
		TransactionType: string(domain.TxMerchantWithdrawal),
		Rate:            decimal.RequireFromString("0.01"),
		MinFee:          decimal.RequireFromString("1.00"),
		MaxFee:          decimal.RequireFromString("100.00"),
	}))

	err := s.service.UpdateCommissionConfig(context.Background(), s.admin, dto.UpdateCommissionConfigRequest{
		TransactionType: string(domain.TxMerchantWithdrawal),
		RateOfFee:       decimal.RequireFromString("0.3"),
	})
	s.Require().NoError(err)

	cfg, err := s.policy.CurrentCommissionConfig(context.Background(), domain.TxMerchantWithdrawal)
	s.Require().NoError(err)
	s.Equal(1, cfg.Version)
	s.Nil(cfg.Flat)
}

func (s *PolicyServiceTestSuite) TestUpdateCommissionConfig_FlatCappedByMinFee() {
	// fee = clamp(2% of amount, 1.00, 100.00): a small withdrawal carries a
	// 1.00 fee, so any flat commission above 1.00 could exceed the fee.
	s.Require().NoError(s.service.UpdateFeeConfig(context.Background(), s.admin, dto.UpdateFeeConfigRequest{
		TransactionType: string(domain.TxMerchantWithdrawal),
		Rate:            decimal.RequireFromString("0.02"),
		MinFee:          decimal.RequireFromString("1.00"),
		MaxFee:          decimal.RequireFromString("100.00"),
	}))

	flat := decimal.RequireFromString("50.00")
	err := s.service.UpdateCommissionConfig(context.Background(), s.admin, dto.UpdateCommissionConfigRequest{
		TransactionType: string(domain.TxMerchantWithdrawal),
		Flat:            &flat,
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)

	withinMinFee := decimal.RequireFromString("1.00")
	err = s.service.UpdateCommissionConfig(context.Background(), s.admin, dto.UpdateCommissionConfigRequest{
		TransactionType: string(domain.TxMerchantWithdrawal),
		Flat:            &withinMinFee,
	})
	s.Require().NoError(err)
}

func (s *PolicyServiceTestSuite) TestUpdateCommissionConfig_EnrollmentCheckedAgainstPrice() {
	_, err := s.service.UpdatePlatformConfig(context.Background(), s.admin, s.platformRequest())
	s.Require().NoError(err)

	flat := decimal.RequireFromString("500.01")
	err = s.service.UpdateCommissionConfig(context.Background(), s.admin, dto.UpdateCommissionConfigRequest{
		TransactionType: string(domain.TxCardEnrollment),
		Flat:            &flat,
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)

	withinPrice := decimal.RequireFromString("100.00")
	err = s.service.UpdateCommissionConfig(context.Background(), s.admin, dto.UpdateCommissionConfigRequest{
		TransactionType: string(domain.TxCardEnrollment),
		Flat:            &withinPrice,
	})
	s.Require().NoError(err)
}

func (s *PolicyServiceTestSuite) TestUpdateCommissionConfig_RequiresExistingFeeConfig() {
	err := s.service.UpdateCommissionConfig(context.Background(), s.admin, dto.UpdateCommissionConfigRequest{
		TransactionType: string(domain.TxMerchantWithdrawal),
		RateOfFee:       decimal.RequireFromString("0.3"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Contains(err.Error(), "no fee config exists")
}

func (s *PolicyServiceTestSuite) TestUpdateCommissionConfig_RejectsCommissionFreeType() {
	err := s.service.UpdateCommissionConfig(context.Background(), s.admin, dto.UpdateCommissionConfigRequest{
		TransactionType: string(domain.TxClientTransfer),
		RateOfFee:       decimal.RequireFromString("0.3"),
	})
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Contains(err.Error(), "does not carry a commission")
}

func TestPolicyService(t *testing.T) {
	suite.Run(t, new(PolicyServiceTestSuite))
}
