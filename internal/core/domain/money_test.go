package domain_test

import (
	"testing"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMoney(t *testing.T, s string) domain.Money {
	t.Helper()
	m, err := domain.NewMoney(decimal.RequireFromString(s))
	require.NoError(t, err)
	return m
}

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "positive amount", raw: "100.50", want: "100.50"},
		{name: "zero is allowed", raw: "0", want: "0.00"},
		{name: "rounds to two decimals", raw: "10.005", want: "10.01"},
		{name: "negative rejected", raw: "-0.01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := domain.NewMoney(decimal.RequireFromString(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestNewPositiveMoney(t *testing.T) {
	_, err := domain.NewPositiveMoney(decimal.Zero)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	m, err := domain.NewPositiveMoney(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, "0.01", m.String())
}

func TestMoney_Arithmetic(t *testing.T) {
	a := mustMoney(t, "50.00")
	b := mustMoney(t, "1.25")

	assert.Equal(t, "51.25", a.Add(b).String())
	assert.Equal(t, "48.75", a.Sub(b).StringFixed(2))
	assert.Equal(t, "-48.75", b.Sub(a).StringFixed(2))
	assert.True(t, a.GreaterThan(b))
	assert.False(t, b.GreaterThan(a))
	assert.True(t, domain.ZeroMoney().IsZero())
	assert.True(t, a.Equal(mustMoney(t, "50")))
}

func TestMoney_ApplyRate(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{name: "simple percentage", amount: "100.00", rate: "0.01", want: "1.00"},
		{name: "rounds half up", amount: "50.00", rate: "0.0005", want: "0.03"},
		{name: "zero rate", amount: "100.00", rate: "0", want: "0.00"},
		{name: "full rate", amount: "42.42", rate: "1", want: "42.42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMoney(t, tt.amount)
			got := m.ApplyRate(decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.want, got.String())
		})
	}
}
