package domain

import "time"

// SettlementStatus is the two-phase workflow state shared by payouts and
// client refunds. REQUESTED is the only non-terminal state; COMPLETED and
// FAILED are final and never transition again.
type SettlementStatus string

const (
	SettlementRequested SettlementStatus = "REQUESTED"
	SettlementCompleted SettlementStatus = "COMPLETED"
	SettlementFailed    SettlementStatus = "FAILED"
)

// Payout is a merchant's request to move its balance out to its bank.
// It is the durable record spanning the request call and the later
// complete/fail call.
type Payout struct {
	PayoutID      string           `json:"payoutID"`
	MerchantID    string           `json:"merchantID"`
	TransactionID string           `json:"transactionID"`
	Amount        Money            `json:"amount"`
	Status        SettlementStatus `json:"status"`
	RequestedAt   time.Time        `json:"requestedAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
	FailedAt      *time.Time       `json:"failedAt,omitempty"`
	FailureReason *string          `json:"failureReason,omitempty"`
}

// ClientRefund is a client's request to get its balance paid back out.
type ClientRefund struct {
	RefundID      string           `json:"refundID"`
	ClientID      string           `json:"clientID"`
	TransactionID string           `json:"transactionID"`
	Amount        Money            `json:"amount"`
	Status        SettlementStatus `json:"status"`
	RequestedAt   time.Time        `json:"requestedAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
	FailedAt      *time.Time       `json:"failedAt,omitempty"`
	FailureReason *string          `json:"failureReason,omitempty"`
}
