package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerAccountType is the closed set of balance buckets the platform knows.
type LedgerAccountType string

const (
	ClientAccount                LedgerAccountType = "CLIENT"
	MerchantAccount              LedgerAccountType = "MERCHANT"
	AgentWallet                  LedgerAccountType = "AGENT_WALLET"
	AgentCashClearing            LedgerAccountType = "AGENT_CASH_CLEARING"
	PlatformFeeRevenue           LedgerAccountType = "PLATFORM_FEE_REVENUE"
	PlatformClearing             LedgerAccountType = "PLATFORM_CLEARING"
	PlatformBank                 LedgerAccountType = "PLATFORM_BANK"
	PlatformClientRefundClearing LedgerAccountType = "PLATFORM_CLIENT_REFUND_CLEARING"
)

// PlatformOwnerRef is the sentinel owner for platform-wide accounts.
const PlatformOwnerRef = "PLATFORM"

// LedgerAccountRef addresses one ledger account. It is a value type: two refs
// are the same account iff both fields match. Once assigned to an actor it
// never changes.
type LedgerAccountRef struct {
	AccountType LedgerAccountType `json:"accountType"`
	OwnerRef    string            `json:"ownerRef"`
}

// ClientAccountRef returns the ledger account of a client.
func ClientAccountRef(clientID string) LedgerAccountRef {
	return LedgerAccountRef{AccountType: ClientAccount, OwnerRef: clientID}
}

// MerchantAccountRef returns the ledger account of a merchant.
func MerchantAccountRef(merchantID string) LedgerAccountRef {
	return LedgerAccountRef{AccountType: MerchantAccount, OwnerRef: merchantID}
}

// AgentWalletRef returns the commission wallet of an agent.
func AgentWalletRef(agentID string) LedgerAccountRef {
	return LedgerAccountRef{AccountType: AgentWallet, OwnerRef: agentID}
}

// AgentCashClearingRef returns the cash clearing account of an agent.
func AgentCashClearingRef(agentID string) LedgerAccountRef {
	return LedgerAccountRef{AccountType: AgentCashClearing, OwnerRef: agentID}
}

// PlatformAccountRef returns one of the platform-wide accounts.
func PlatformAccountRef(accountType LedgerAccountType) LedgerAccountRef {
	return LedgerAccountRef{AccountType: accountType, OwnerRef: PlatformOwnerRef}
}

func (r LedgerAccountRef) String() string {
	return fmt.Sprintf("%s/%s", r.AccountType, r.OwnerRef)
}

// EntryType indicates whether an entry debits or credits its account.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// Inverse returns the opposite entry type.
func (t EntryType) Inverse() EntryType {
	if t == Debit {
		return Credit
	}
	return Debit
}

// LedgerEntry is one movement of Money against one ledger account. Entries
// are created by the append operation and never mutated or deleted; all
// entries sharing a transaction ID form a closed, balanced group.
type LedgerEntry struct {
	EntryID       string            `json:"entryID"`
	TransactionID string            `json:"transactionID"`
	Account       LedgerAccountRef  `json:"account"`
	EntryType     EntryType         `json:"entryType"`
	Amount        Money             `json:"amount"`
	ReferenceID   *string           `json:"referenceID,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// TransactionType is the closed set of business operations that move money.
type TransactionType string

const (
	TxPayByCard          TransactionType = "PAY_BY_CARD"
	TxClientTransfer     TransactionType = "CLIENT_TRANSFER"
	TxMerchantTransfer   TransactionType = "MERCHANT_TRANSFER"
	TxCashIn             TransactionType = "CASH_IN"
	TxMerchantWithdrawal TransactionType = "MERCHANT_WITHDRAWAL"
	TxCardEnrollment     TransactionType = "CARD_ENROLLMENT"
	TxPayoutRequest      TransactionType = "PAYOUT_REQUEST"
	TxPayoutCompletion   TransactionType = "PAYOUT_COMPLETION"
	TxPayoutFailure      TransactionType = "PAYOUT_FAILURE"
	TxRefundRequest      TransactionType = "REFUND_REQUEST"
	TxRefundCompletion   TransactionType = "REFUND_COMPLETION"
	TxRefundFailure      TransactionType = "REFUND_FAILURE"
	TxReversal           TransactionType = "REVERSAL"
)

// Transaction is the immutable business event a batch of entries implements.
// RelatedTransactionID links a reversal or a payout/refund finalization back
// to the transaction it follows.
type Transaction struct {
	TransactionID        string          `json:"transactionID"`
	Type                 TransactionType `json:"type"`
	Amount               Money           `json:"amount"`
	CreatedAt            time.Time       `json:"createdAt"`
	RelatedTransactionID *string         `json:"relatedTransactionID,omitempty"`
}

// ValidateEntriesBalance checks the fundamental ledger invariant: for one
// transaction, credits minus debits must be exactly zero. A violation is a
// programming error in the orchestrator that built the batch, never user input.
func ValidateEntriesBalance(entries []LedgerEntry) error {
	if len(entries) < 2 {
		return fmt.Errorf("entry batch must contain at least two entries, got %d", len(entries))
	}
	txID := entries[0].TransactionID
	net := decimal.Zero
	for _, e := range entries {
		if e.TransactionID != txID {
			return fmt.Errorf("entry %s belongs to transaction %s, batch is for %s", e.EntryID, e.TransactionID, txID)
		}
		if e.Amount.IsZero() {
			return fmt.Errorf("entry %s has zero amount", e.EntryID)
		}
		if e.EntryType == Credit {
			net = net.Add(e.Amount.Decimal())
		} else {
			net = net.Sub(e.Amount.Decimal())
		}
	}
	if !net.IsZero() {
		return fmt.Errorf("entries for transaction %s do not balance: net %s", txID, net.String())
	}
	return nil
}

// NetOfEntries folds a set of entries into credits minus debits.
func NetOfEntries(entries []LedgerEntry) decimal.Decimal {
	net := decimal.Zero
	for _, e := range entries {
		if e.EntryType == Credit {
			net = net.Add(e.Amount.Decimal())
		} else {
			net = net.Sub(e.Amount.Decimal())
		}
	}
	return net
}
