package domain

import (
	"fmt"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/shopspring/decimal"
)

// PlatformConfig is the versioned set of platform-wide limits. Orchestrators
// fetch the current version once per invocation and pass it around as a
// value; there is no ambient/static configuration state.
type PlatformConfig struct {
	Version             int       `json:"version"`
	MinPerTransaction   Money     `json:"minPerTransaction"`
	MaxPerTransaction   Money     `json:"maxPerTransaction"`
	DailyDebitLimit     Money     `json:"dailyDebitLimit"`
	PINAttemptThreshold int       `json:"pinAttemptThreshold"`
	CardEnrollmentPrice Money     `json:"cardEnrollmentPrice"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Validate rejects inconsistent limit configuration at update time.
func (c PlatformConfig) Validate() error {
	if c.MaxPerTransaction.Decimal().LessThan(c.MinPerTransaction.Decimal()) {
		return apperrors.NewValidationError("maxPerTransaction", "must be greater than or equal to minPerTransaction")
	}
	if c.PINAttemptThreshold < 1 {
		return apperrors.NewValidationError("pinAttemptThreshold", "must be at least 1")
	}
	if c.CardEnrollmentPrice.IsZero() {
		return apperrors.NewValidationError("cardEnrollmentPrice", "must be positive")
	}
	return nil
}

// FeeConfig defines the fee charged on one transaction type:
// fee = clamp(amount * rate, min, max). Refundable controls whether the fee
// flows back to the payer when the transaction is reversed.
type FeeConfig struct {
	Version         int             `json:"version"`
	TransactionType TransactionType `json:"transactionType"`
	Rate            decimal.Decimal `json:"rate"`
	MinFee          Money           `json:"minFee"`
	MaxFee          Money           `json:"maxFee"`
	Refundable      bool            `json:"refundable"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Validate rejects out-of-range fee configuration at update time.
func (c FeeConfig) Validate() error {
	if c.Rate.IsNegative() || c.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return apperrors.NewValidationError("rate", "must be within [0, 1]")
	}
	if c.MaxFee.Decimal().LessThan(c.MinFee.Decimal()) {
		return apperrors.NewValidationError("maxFee", "must be greater than or equal to minFee")
	}
	return nil
}

// FeeFor computes the clamped fee for a base amount.
func (c FeeConfig) FeeFor(amount Money) Money {
	fee := amount.ApplyRate(c.Rate)
	if fee.Decimal().LessThan(c.MinFee.Decimal()) {
		return c.MinFee
	}
	if fee.GreaterThan(c.MaxFee) {
		return c.MaxFee
	}
	return fee
}

// CommissionConfig defines the agent commission on one transaction type.
// Either a flat amount (card enrollment) or a rate applied to the fee.
// The commission must never exceed the fee it derives from; that invariant
// is enforced here, at configuration time, not clamped at transaction time.
type CommissionConfig struct {
	Version         int             `json:"version"`
	TransactionType TransactionType `json:"transactionType"`
	Flat            *Money          `json:"flat,omitempty"`
	RateOfFee       decimal.Decimal `json:"rateOfFee"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Validate rejects commission configuration that could exceed its fee.
// referenceFee is the smallest fee the paired FeeConfig can produce, so a
// flat commission passing here stays within the fee at every amount.
func (c CommissionConfig) Validate(referenceFee Money) error {
	if c.Flat != nil {
		if c.Flat.GreaterThan(referenceFee) {
			return fmt.Errorf("%w: flat commission %s exceeds fee %s", apperrors.ErrForbidden, c.Flat.String(), referenceFee.String())
		}
		return nil
	}
	if c.RateOfFee.IsNegative() || c.RateOfFee.GreaterThan(decimal.NewFromInt(1)) {
		return apperrors.NewValidationError("rateOfFee", "must be within [0, 1]")
	}
	return nil
}

// CommissionFor computes the commission owed to the agent for a given fee.
func (c CommissionConfig) CommissionFor(fee Money) Money {
	if c.Flat != nil {
		return *c.Flat
	}
	return fee.ApplyRate(c.RateOfFee)
}
