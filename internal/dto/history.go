package dto

import (
	"time"

	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/shopspring/decimal"
)

// HistoryView selects the projection applied to each transaction group.
type HistoryView string

const (
	ViewSummary    HistoryView = "SUMMARY"
	ViewPayByCard  HistoryView = "PAY_BY_CARD_VIEW"
	ViewCommission HistoryView = "COMMISSION_VIEW"
)

// ScopeRef names a ledger account for admin-specified queries.
type ScopeRef struct {
	AccountType string `json:"accountType" binding:"required"`
	OwnerRef    string `json:"ownerRef" binding:"required"`
}

// SearchHistoryCommand is the transaction-history query. Scope is resolved
// from the actor unless an admin supplies one explicitly.
type SearchHistoryCommand struct {
	Scope     *ScopeRef        `json:"scope"`
	View      HistoryView      `json:"view"`
	Types     []string         `json:"types"`
	From      *time.Time       `json:"from"`
	To        *time.Time       `json:"to"`
	MinAmount *decimal.Decimal `json:"minAmount"`
	MaxAmount *decimal.Decimal `json:"maxAmount"`
	Limit     int              `json:"limit"`
	NextToken *string          `json:"nextToken"`
}

// HistoryItem is one transaction as seen from the queried scope.
// Self* amounts cover only entries on the scope account; the counterparty
// aggregates fold all entries of the transaction by account type.
type HistoryItem struct {
	TransactionID        string    `json:"transactionID"`
	Type                 string    `json:"type"`
	CreatedAt            time.Time `json:"createdAt"`
	RelatedTransactionID *string   `json:"relatedTransactionID,omitempty"`
	Amount               string    `json:"amount"`
	SelfDebit            string    `json:"selfDebit"`
	SelfCredit           string    `json:"selfCredit"`
	ClientDebit          string    `json:"clientDebit"`
	MerchantCredit       string    `json:"merchantCredit"`
	AgentCredit          string    `json:"agentCredit"`
	PlatformFeeCredit    string    `json:"platformFeeCredit"`
}

// SearchHistoryResponse is one page of history items.
type SearchHistoryResponse struct {
	Items     []HistoryItem `json:"items"`
	NextToken *string       `json:"nextToken,omitempty"`
}

// BalanceResponse reports the derived balance of one ledger account.
type BalanceResponse struct {
	Account domain.LedgerAccountRef `json:"account"`
	Balance string                  `json:"balance"`
}
