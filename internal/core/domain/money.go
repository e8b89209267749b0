package domain

import (
	"fmt"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/shopspring/decimal"
)

// moneyScale is the number of fractional digits every amount is normalized to.
const moneyScale = 2

// Money is a non-negative, fixed-scale decimal amount. Direction (debit vs
// credit) is never encoded here; it lives on the ledger entry type.
type Money struct {
	amount decimal.Decimal
}

// NewMoney builds a Money from a raw decimal. Negative input is rejected.
func NewMoney(raw decimal.Decimal) (Money, error) {
	if raw.IsNegative() {
		return Money{}, fmt.Errorf("%w: amount must not be negative, got %s", apperrors.ErrValidation, raw.String())
	}
	return Money{amount: raw.Round(moneyScale)}, nil
}

// NewPositiveMoney builds a Money from a raw decimal, rejecting zero as well.
func NewPositiveMoney(raw decimal.Decimal) (Money, error) {
	if raw.LessThanOrEqual(decimal.Zero) {
		return Money{}, fmt.Errorf("%w: amount must be positive, got %s", apperrors.ErrValidation, raw.String())
	}
	return Money{amount: raw.Round(moneyScale)}, nil
}

// ZeroMoney returns the zero amount.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other as a raw decimal. The result may be negative;
// deciding what a negative difference means is the caller's job.
func (m Money) Sub(other Money) decimal.Decimal {
	return m.amount.Sub(other.amount)
}

// GreaterThan reports whether m is strictly greater than other.
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String renders the amount with the fixed scale.
func (m Money) String() string {
	return m.amount.StringFixed(moneyScale)
}

// ApplyRate multiplies the amount by a rate and rounds half-up to the money
// scale. This is the single place where a rate meets an amount, so rounding
// behaviour stays uniform across fee and commission computation.
func (m Money) ApplyRate(rate decimal.Decimal) Money {
	// decimal.Round is round-half-away-from-zero, which is half-up for the
	// non-negative amounts Money holds.
	return Money{amount: m.amount.Mul(rate).Round(moneyScale)}
}
