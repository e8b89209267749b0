package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commands carry the idempotency key outside of their JSON shape (json:"-"):
// the request hash must cover the business payload only, never the key.

// PayByCardCommand is a terminal-initiated card payment.
type PayByCardCommand struct {
	IdempotencyKey string          `json:"-"`
	CardUID        string          `json:"cardUID" binding:"required"`
	PIN            string          `json:"pin" binding:"required,len=4,numeric"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	ReferenceID    *string         `json:"referenceID"`
}

// TransferCommand moves money between two actors of the same kind.
type TransferCommand struct {
	IdempotencyKey string          `json:"-"`
	RecipientID    string          `json:"recipientID" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	ReferenceID    *string         `json:"referenceID"`
}

// CashInCommand converts physical cash held by an agent into client e-money.
type CashInCommand struct {
	IdempotencyKey string          `json:"-"`
	ClientID       string          `json:"clientID" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	ReferenceID    *string         `json:"referenceID"`
}

// EnrollCardCommand enrolls a new card for a client at an agent.
type EnrollCardCommand struct {
	IdempotencyKey string `json:"-"`
	ClientID       string `json:"clientID" binding:"required,uuid"`
	CardUID        string `json:"cardUID" binding:"required"`
	PIN            string `json:"pin" binding:"required,len=4,numeric"`
}

// WithdrawAtAgentCommand pays out merchant balance as cash at an agent.
type WithdrawAtAgentCommand struct {
	IdempotencyKey string          `json:"-"`
	MerchantCode   string          `json:"merchantCode" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	ReferenceID    *string         `json:"referenceID"`
}

// MovementResult is the cached, replay-stable outcome of a money movement.
// Amounts are rendered as fixed-scale strings so a replayed result is
// byte-identical to the first one.
type MovementResult struct {
	TransactionID string    `json:"transactionID"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Fee           string    `json:"fee"`
	Commission    string    `json:"commission,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EnrollCardResult is the outcome of a card enrollment.
type EnrollCardResult struct {
	TransactionID string    `json:"transactionID"`
	CardID        string    `json:"cardID"`
	Price         string    `json:"price"`
	Commission    string    `json:"commission"`
	CreatedAt     time.Time `json:"createdAt"`
}
