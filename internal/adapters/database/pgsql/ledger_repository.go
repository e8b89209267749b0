package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code serves both the plain and the lock-scoped facade.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PgxLedgerRepository struct {
	// pool is nil on lock-scoped copies; those run entirely inside the
	// transaction held in q and must not open their own.
	pool *pgxpool.Pool
	q    querier
}

// NewPgxLedgerRepository creates a new repository for ledger entries and transactions.
func NewPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryWithLock {
	return &PgxLedgerRepository{pool: pool, q: pool}
}

// WithAccountLock runs fn while holding the row lock of the given account.
// The lock anchor row is created on first use; everything fn does through the
// provided facade commits or rolls back atomically with the lock release.
func (r *PgxLedgerRepository) WithAccountLock(ctx context.Context, account domain.LedgerAccountRef, fn func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error) error {
	if r.pool == nil {
		return fmt.Errorf("account lock for %s requested inside an already locked scope", account)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_accounts (account_type, owner_ref)
		VALUES ($1, $2)
		ON CONFLICT (account_type, owner_ref) DO NOTHING;
	`, account.AccountType, account.OwnerRef)
	if err != nil {
		return fmt.Errorf("failed to ensure lock row for %s: %w", account, err)
	}

	var lockedType string
	err = tx.QueryRow(ctx, `
		SELECT account_type FROM ledger_accounts
		WHERE account_type = $1 AND owner_ref = $2
		FOR UPDATE;
	`, account.AccountType, account.OwnerRef).Scan(&lockedType)
	if err != nil {
		return fmt.Errorf("failed to lock account %s: %w", account, err)
	}

	if err := fn(ctx, &PgxLedgerRepository{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit locked scope for %s: %w", account, err)
	}
	return nil
}

// AppendTransaction atomically persists a transaction header and its balanced
// entry batch. The balance invariant is re-checked here so no write path can
// bypass it.
func (r *PgxLedgerRepository) AppendTransaction(ctx context.Context, transaction domain.Transaction, entries []domain.LedgerEntry) error {
	if err := domain.ValidateEntriesBalance(entries); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	if r.pool == nil {
		return r.appendTransaction(ctx, r.q, transaction, entries)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := r.appendTransaction(ctx, tx, transaction, entries); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", transaction.TransactionID, err)
	}
	return nil
}

func (r *PgxLedgerRepository) appendTransaction(ctx context.Context, q querier, transaction domain.Transaction, entries []domain.LedgerEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO transactions (transaction_id, type, amount, related_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`,
		transaction.TransactionID,
		transaction.Type,
		transaction.Amount.Decimal(),
		transaction.RelatedTransactionID,
		transaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", transaction.TransactionID, err)
	}

	batch := &pgx.Batch{}
	entryQuery := `
		INSERT INTO ledger_entries (entry_id, transaction_id, account_type, owner_ref, entry_type, amount, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, e := range entries {
		batch.Queue(entryQuery,
			e.EntryID,
			e.TransactionID,
			e.Account.AccountType,
			e.Account.OwnerRef,
			e.EntryType,
			e.Amount.Decimal(),
			e.ReferenceID,
			e.CreatedAt,
		)
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert entries for transaction %s: %w", transaction.TransactionID, err)
	}
	return nil
}

const entryColumns = `entry_id, transaction_id, account_type, owner_ref, entry_type, amount, reference_id, created_at`

// FindEntriesByAccount retrieves every entry booked against one account, in
// insertion order.
func (r *PgxLedgerRepository) FindEntriesByAccount(ctx context.Context, account domain.LedgerAccountRef) ([]domain.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_type = $1 AND owner_ref = $2
		ORDER BY created_at, entry_id;
	`, account.AccountType, account.OwnerRef)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for account %s: %w", account, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindEntriesByTransactionID retrieves the closed entry group of one transaction.
func (r *PgxLedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY entry_id;
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for transaction %s: %w", transactionID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindEntriesByTransactionIDs retrieves entry groups for multiple transactions at once.
func (r *PgxLedgerRepository) FindEntriesByTransactionIDs(ctx context.Context, transactionIDs []string) (map[string][]domain.LedgerEntry, error) {
	if len(transactionIDs) == 0 {
		return map[string][]domain.LedgerEntry{}, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, entry_id;
	`, transactionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for %d transactions: %w", len(transactionIDs), err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]domain.LedgerEntry, len(transactionIDs))
	for _, e := range entries {
		groups[e.TransactionID] = append(groups[e.TransactionID], e)
	}
	return groups, nil
}

const transactionColumns = `transaction_id, type, amount, related_transaction_id, created_at`

// FindTransactionByID retrieves one transaction header.
func (r *PgxLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_id = $1;
	`, transactionID)
	transaction, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return transaction, nil
}

// FindTransactionsByIDs retrieves multiple transaction headers keyed by ID.
func (r *PgxLedgerRepository) FindTransactionsByIDs(ctx context.Context, transactionIDs []string) (map[string]domain.Transaction, error) {
	if len(transactionIDs) == 0 {
		return map[string]domain.Transaction{}, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_id = ANY($1);
	`, transactionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query %d transactions: %w", len(transactionIDs), err)
	}
	defer rows.Close()

	transactions := make(map[string]domain.Transaction, len(transactionIDs))
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions[transaction.TransactionID] = *transaction
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

// FindReversalOf returns the reversal transaction linked to the given
// original, or apperrors.ErrNotFound when none exists.
func (r *PgxLedgerRepository) FindReversalOf(ctx context.Context, originalTransactionID string) (*domain.Transaction, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE related_transaction_id = $1 AND type = $2;
	`, originalTransactionID, domain.TxReversal)
	transaction, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reversal of %s: %w", originalTransactionID, err)
	}
	return transaction, nil
}

// NetBalance computes credits minus debits over all entries of one account.
func (r *PgxLedgerRepository) NetBalance(ctx context.Context, account domain.LedgerAccountRef) (decimal.Decimal, error) {
	var net decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN entry_type = $1 THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE account_type = $2 AND owner_ref = $3;
	`, domain.Credit, account.AccountType, account.OwnerRef).Scan(&net)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute net balance for %s: %w", account, err)
	}
	return net, nil
}

// SumDebitsInWindow sums the debits of one transaction type booked against
// one account during [from, to).
func (r *PgxLedgerRepository) SumDebitsInWindow(ctx context.Context, account domain.LedgerAccountRef, txType domain.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(e.amount), 0)
		FROM ledger_entries e
		JOIN transactions t ON t.transaction_id = e.transaction_id
		WHERE e.account_type = $1 AND e.owner_ref = $2
		  AND e.entry_type = $3
		  AND t.type = $4
		  AND e.created_at >= $5 AND e.created_at < $6;
	`, account.AccountType, account.OwnerRef, domain.Debit, txType, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum debits for %s: %w", account, err)
	}
	return sum, nil
}

func scanEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	entries := []domain.LedgerEntry{}
	for rows.Next() {
		var (
			e           domain.LedgerEntry
			accountType domain.LedgerAccountType
			ownerRef    string
			amount      decimal.Decimal
		)
		if err := rows.Scan(
			&e.EntryID,
			&e.TransactionID,
			&accountType,
			&ownerRef,
			&e.EntryType,
			&amount,
			&e.ReferenceID,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row: %w", err)
		}
		e.Account = domain.LedgerAccountRef{AccountType: accountType, OwnerRef: ownerRef}
		money, err := domain.NewMoney(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount on entry %s: %w", e.EntryID, err)
		}
		e.Amount = money
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}
	return entries, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		transaction domain.Transaction
		amount      decimal.Decimal
	)
	if err := row.Scan(
		&transaction.TransactionID,
		&transaction.Type,
		&amount,
		&transaction.RelatedTransactionID,
		&transaction.CreatedAt,
	); err != nil {
		return nil, err
	}
	money, err := domain.NewMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount on transaction %s: %w", transaction.TransactionID, err)
	}
	transaction.Amount = money
	return &transaction, nil
}
