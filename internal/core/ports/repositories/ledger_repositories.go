package repositories

import (
	"context"
	"time"

	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReader defines read operations over the append-only ledger.
// Balances are always derived by folding entries at call time; there is no
// materialized balance column to drift from the audit trail.
type LedgerReader interface {
	// FindEntriesByAccount retrieves every entry booked against one account,
	// in insertion order.
	FindEntriesByAccount(ctx context.Context, account domain.LedgerAccountRef) ([]domain.LedgerEntry, error)

	// FindEntriesByTransactionID retrieves the closed entry group of one transaction.
	FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)

	// FindEntriesByTransactionIDs retrieves entry groups for multiple transactions at once.
	FindEntriesByTransactionIDs(ctx context.Context, transactionIDs []string) (map[string][]domain.LedgerEntry, error)

	// FindTransactionByID retrieves one transaction header.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionsByIDs retrieves multiple transaction headers keyed by ID.
	FindTransactionsByIDs(ctx context.Context, transactionIDs []string) (map[string]domain.Transaction, error)

	// FindReversalOf returns the reversal transaction linked to the given
	// original, or apperrors.ErrNotFound when none exists.
	FindReversalOf(ctx context.Context, originalTransactionID string) (*domain.Transaction, error)

	// NetBalance computes credits minus debits over all entries of one account.
	NetBalance(ctx context.Context, account domain.LedgerAccountRef) (decimal.Decimal, error)

	// SumDebitsInWindow sums the debits of one transaction type booked against
	// one account during [from, to). Used by the daily aggregate limit guard.
	SumDebitsInWindow(ctx context.Context, account domain.LedgerAccountRef, txType domain.TransactionType, from, to time.Time) (decimal.Decimal, error)
}

// LedgerWriter is the single write path into the ledger.
type LedgerWriter interface {
	// AppendTransaction atomically persists a transaction and its balanced
	// entry batch. An unbalanced batch is rejected outright; entries are
	// never updated or deleted afterwards.
	AppendTransaction(ctx context.Context, tx domain.Transaction, entries []domain.LedgerEntry) error
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}

// LedgerRepositoryWithLock adds the pessimistic account lock used by
// read-then-decide-then-append sequences. The callback receives a
// lock-scoped facade; every read and append inside it happens while the
// lock on the given account is held, and the lock is released when the
// callback returns (commit on nil, rollback on error).
type LedgerRepositoryWithLock interface {
	LedgerRepositoryFacade

	WithAccountLock(ctx context.Context, account domain.LedgerAccountRef, fn func(ctx context.Context, locked LedgerRepositoryFacade) error) error
}
