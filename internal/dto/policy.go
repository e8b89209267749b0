package dto

import (
	"github.com/shopspring/decimal"
)

// UpdatePlatformConfigRequest writes a new platform configuration version.
type UpdatePlatformConfigRequest struct {
	MinPerTransaction   decimal.Decimal `json:"minPerTransaction" binding:"required"`
	MaxPerTransaction   decimal.Decimal `json:"maxPerTransaction" binding:"required"`
	DailyDebitLimit     decimal.Decimal `json:"dailyDebitLimit" binding:"required"`
	PINAttemptThreshold int             `json:"pinAttemptThreshold" binding:"required,min=1"`
	CardEnrollmentPrice decimal.Decimal `json:"cardEnrollmentPrice" binding:"required"`
}

// UpdateFeeConfigRequest writes a new fee configuration version for one
// transaction type.
type UpdateFeeConfigRequest struct {
	TransactionType string          `json:"transactionType" binding:"required"`
	Rate            decimal.Decimal `json:"rate"`
	MinFee          decimal.Decimal `json:"minFee"`
	MaxFee          decimal.Decimal `json:"maxFee"`
	Refundable      bool            `json:"refundable"`
}

// UpdateCommissionConfigRequest writes a new commission configuration
// version for one transaction type. Exactly one of Flat or RateOfFee applies.
type UpdateCommissionConfigRequest struct {
	TransactionType string           `json:"transactionType" binding:"required"`
	Flat            *decimal.Decimal `json:"flat"`
	RateOfFee       decimal.Decimal  `json:"rateOfFee"`
}

// PlatformConfigResponse mirrors domain.PlatformConfig.
type PlatformConfigResponse struct {
	Version             int    `json:"version"`
	MinPerTransaction   string `json:"minPerTransaction"`
	MaxPerTransaction   string `json:"maxPerTransaction"`
	DailyDebitLimit     string `json:"dailyDebitLimit"`
	PINAttemptThreshold int    `json:"pinAttemptThreshold"`
	CardEnrollmentPrice string `json:"cardEnrollmentPrice"`
}
