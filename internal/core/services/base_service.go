package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	"github.com/sahelpay/sahelpay/internal/middleware"
	"github.com/sahelpay/sahelpay/internal/utils/hashing"
)

// runIdempotent wraps an orchestrator body in the claim/complete/fail
// protocol. The body runs at most once per (key, payload hash); a replay of a
// completed request is answered from the cached result without re-running
// side effects, and a failed attempt releases the key for retry with the
// same payload.
func runIdempotent[T any](ctx context.Context, idemRepo portsrepo.IdempotencyRepository, key string, payload any, fn func(ctx context.Context) (*T, error)) (*T, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if key == "" {
		return nil, apperrors.NewValidationError("idempotencyKey", "Idempotency-Key header is required")
	}

	requestHash, err := hashing.HashRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}

	record, err := idemRepo.ClaimOrLoad(ctx, key, requestHash)
	if err != nil {
		return nil, err
	}

	if record.Status == domain.IdempotencyCompleted {
		var cached T
		if err := json.Unmarshal(record.Result, &cached); err != nil {
			logger.Error("Failed to decode cached idempotency result", "key", key, "error", err)
			return nil, fmt.Errorf("%w: corrupt idempotency result for key %s", apperrors.ErrInternal, key)
		}
		logger.Info("Request served from idempotency cache", "key", key)
		return &cached, nil
	}

	result, err := fn(ctx)
	if err != nil {
		if failErr := idemRepo.Fail(ctx, key, requestHash); failErr != nil {
			logger.Error("Failed to release idempotency key after error", "key", key, "error", failErr)
		}
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize result: %v", apperrors.ErrInternal, err)
	}
	if err := idemRepo.Complete(ctx, key, requestHash, raw); err != nil {
		return nil, fmt.Errorf("failed to complete idempotency record for key %s: %w", key, err)
	}
	return result, nil
}

// authorizeActor checks the caller against the actor kinds an operation accepts.
func authorizeActor(actor domain.Actor, kinds ...domain.ActorKind) error {
	for _, kind := range kinds {
		if actor.Kind == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: actor kind %s may not perform this operation", apperrors.ErrForbidden, actor.Kind)
}

// checkPerTransactionBounds validates the amount against the platform's
// per-transaction window.
func checkPerTransactionBounds(cfg domain.PlatformConfig, amount domain.Money) error {
	if cfg.MinPerTransaction.GreaterThan(amount) {
		return apperrors.NewValidationError("amount",
			fmt.Sprintf("amount %s is below the per-transaction minimum %s", amount.String(), cfg.MinPerTransaction.String()))
	}
	if amount.GreaterThan(cfg.MaxPerTransaction) {
		return apperrors.NewValidationError("amount",
			fmt.Sprintf("amount %s is above the per-transaction maximum %s", amount.String(), cfg.MaxPerTransaction.String()))
	}
	return nil
}

// checkDailyDebitLimit folds today's debits of the given type on the account
// and rejects the operation when the new debit would exceed the daily cap.
// Days are UTC calendar days.
func checkDailyDebitLimit(ctx context.Context, ledger portsrepo.LedgerReader, account domain.LedgerAccountRef, txType domain.TransactionType, debit domain.Money, cfg domain.PlatformConfig, now time.Time) error {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	already, err := ledger.SumDebitsInWindow(ctx, account, txType, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to sum daily debits for %s: %w", account, err)
	}
	if already.Add(debit.Decimal()).GreaterThan(cfg.DailyDebitLimit.Decimal()) {
		return apperrors.NewValidationError("amount",
			fmt.Sprintf("daily limit exceeded: %s already debited today, limit is %s", already.StringFixed(2), cfg.DailyDebitLimit.String()))
	}
	return nil
}

// checkAgentCashPosition projects the agent's cash exposure after the
// operation and rejects it beyond the agent's global cash limit. The cash
// position is debits minus credits on the agent's cash clearing account:
// the physical cash the agent has taken in and not yet settled.
func checkAgentCashPosition(ctx context.Context, ledger portsrepo.LedgerReader, agent domain.Agent, incomingDebit, outgoingCredit domain.Money) error {
	net, err := ledger.NetBalance(ctx, domain.AgentCashClearingRef(agent.AgentID))
	if err != nil {
		return fmt.Errorf("failed to compute cash position for agent %s: %w", agent.AgentID, err)
	}
	position := net.Neg()
	projected := position.Add(incomingDebit.Decimal()).Sub(outgoingCredit.Decimal())
	if projected.GreaterThan(agent.CashLimit.Decimal()) {
		return fmt.Errorf("%w: operation would bring agent cash position to %s, limit is %s",
			apperrors.ErrForbidden, projected.StringFixed(2), agent.CashLimit.String())
	}
	return nil
}

// checkSufficientBalance compares the derived balance of the locked account
// against the required total.
func checkSufficientBalance(ctx context.Context, ledger portsrepo.LedgerReader, account domain.LedgerAccountRef, required domain.Money) error {
	available, err := ledger.NetBalance(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to compute balance for %s: %w", account, err)
	}
	if available.LessThan(required.Decimal()) {
		return &apperrors.InsufficientFundsError{Required: required.Decimal(), Available: available}
	}
	return nil
}

// entryBuilder assembles the balanced entry batch of one transaction.
// Zero-amount legs are dropped; they carry no information and the append
// path rejects them.
type entryBuilder struct {
	transactionID string
	referenceID   *string
	createdAt     time.Time
	newID         func() string
	entries       []domain.LedgerEntry
}

func newEntryBuilder(transactionID string, referenceID *string, createdAt time.Time, newID func() string) *entryBuilder {
	return &entryBuilder{transactionID: transactionID, referenceID: referenceID, createdAt: createdAt, newID: newID}
}

func (b *entryBuilder) add(entryType domain.EntryType, account domain.LedgerAccountRef, amount domain.Money) *entryBuilder {
	if amount.IsZero() {
		return b
	}
	b.entries = append(b.entries, domain.LedgerEntry{
		EntryID:       b.newID(),
		TransactionID: b.transactionID,
		Account:       account,
		EntryType:     entryType,
		Amount:        amount,
		ReferenceID:   b.referenceID,
		CreatedAt:     b.createdAt,
	})
	return b
}

func (b *entryBuilder) debit(account domain.LedgerAccountRef, amount domain.Money) *entryBuilder {
	return b.add(domain.Debit, account, amount)
}

func (b *entryBuilder) credit(account domain.LedgerAccountRef, amount domain.Money) *entryBuilder {
	return b.add(domain.Credit, account, amount)
}

func (b *entryBuilder) build() []domain.LedgerEntry {
	return b.entries
}

// defaultClock and defaultIDGen are the production implementations injected
// into every service; tests replace them for determinism.
func defaultClock() time.Time { return time.Now().UTC() }

func defaultIDGen() string { return uuid.NewString() }

// positiveAmount converts raw command input into Money, mapping failures to
// a field-level validation error.
func positiveAmount(raw decimal.Decimal) (domain.Money, error) {
	amount, err := domain.NewPositiveMoney(raw)
	if err != nil {
		return domain.Money{}, apperrors.NewValidationError("amount", "must be a positive amount")
	}
	return amount, nil
}
