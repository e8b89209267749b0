package dto

import "time"

// RequestPayoutCommand asks for the merchant's full balance to be paid out.
// The amount is derived from the ledger, never supplied by the caller.
type RequestPayoutCommand struct {
	IdempotencyKey string `json:"-"`
}

// FinalizePayoutCommand completes or fails a requested payout.
type FinalizePayoutCommand struct {
	IdempotencyKey string  `json:"-"`
	PayoutID       string  `json:"-"`
	FailureReason  *string `json:"failureReason"`
}

// PayoutResult is the cached outcome of a payout operation. AlreadyApplied
// marks a finalize call that found the record in its terminal state.
type PayoutResult struct {
	PayoutID       string    `json:"payoutID"`
	TransactionID  string    `json:"transactionID"`
	Amount         string    `json:"amount"`
	Status         string    `json:"status"`
	AlreadyApplied bool      `json:"alreadyApplied,omitempty"`
	RequestedAt    time.Time `json:"requestedAt"`
}

// RequestRefundCommand asks for the client's full balance to be refunded.
type RequestRefundCommand struct {
	IdempotencyKey string `json:"-"`
}

// FinalizeRefundCommand completes or fails a requested refund.
type FinalizeRefundCommand struct {
	IdempotencyKey string  `json:"-"`
	RefundID       string  `json:"-"`
	FailureReason  *string `json:"failureReason"`
}

// RefundResult is the cached outcome of a refund operation.
type RefundResult struct {
	RefundID       string    `json:"refundID"`
	TransactionID  string    `json:"transactionID"`
	Amount         string    `json:"amount"`
	Status         string    `json:"status"`
	AlreadyApplied bool      `json:"alreadyApplied,omitempty"`
	RequestedAt    time.Time `json:"requestedAt"`
}

// ReverseCommand produces the exact ledger inverse of a prior transaction.
type ReverseCommand struct {
	IdempotencyKey        string `json:"-"`
	OriginalTransactionID string `json:"-"`
}

// ReversalResult is the cached outcome of a reversal.
type ReversalResult struct {
	TransactionID         string    `json:"transactionID"`
	OriginalTransactionID string    `json:"originalTransactionID"`
	EntryCount            int       `json:"entryCount"`
	CreatedAt             time.Time `json:"createdAt"`
}
