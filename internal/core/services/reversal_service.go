package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/sahelpay/sahelpay/internal/core/ports"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
)

// reversalService appends the exact ledger inverse of a prior transaction.
// A reversal never edits history: the original entries stay untouched and a
// new linked transaction neutralizes them.
type reversalService struct {
	ledgerRepo portsrepo.LedgerRepositoryWithLock
	idemRepo   portsrepo.IdempotencyRepository
	feeRepo    portsrepo.FeeConfigRepository
	audit      ports.AuditPublisher

	now   func() time.Time
	newID func() string
}

// NewReversalService creates a new ReversalService.
func NewReversalService(
	ledgerRepo portsrepo.LedgerRepositoryWithLock,
	idemRepo portsrepo.IdempotencyRepository,
	feeRepo portsrepo.FeeConfigRepository,
	audit ports.AuditPublisher,
) portssvc.ReversalSvcFacade {
	return &reversalService{
		ledgerRepo: ledgerRepo,
		idemRepo:   idemRepo,
		feeRepo:    feeRepo,
		audit:      audit,
		now:        defaultClock,
		newID:      defaultIDGen,
	}
}

var _ portssvc.ReversalSvcFacade = (*reversalService)(nil)

// Reverse books the inverse entry batch of the given transaction under a new
// REVERSAL transaction. Each transaction can be reversed at most once, and a
// reversal itself can never be reversed. When the fee charged by the original
// transaction is configured as non-refundable, the fee revenue entry is kept
// as booked and the payer gets back the amount net of that fee.
func (s *reversalService) Reverse(ctx context.Context, actor domain.Actor, cmd dto.ReverseCommand) (*dto.ReversalResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payload := struct {
		OriginalTransactionID string `json:"originalTransactionID"`
	}{cmd.OriginalTransactionID}

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, payload, func(ctx context.Context) (*dto.ReversalResult, error) {
		if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
			return nil, err
		}

		original, err := s.ledgerRepo.FindTransactionByID(ctx, cmd.OriginalTransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transaction %s: %w", cmd.OriginalTransactionID, err)
		}
		if original.Type == domain.TxReversal {
			return nil, fmt.Errorf("%w: a reversal cannot be reversed", apperrors.ErrForbidden)
		}

		existing, err := s.ledgerRepo.FindReversalOf(ctx, original.TransactionID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check prior reversals: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: transaction %s was already reversed by %s",
				apperrors.ErrForbidden, original.TransactionID, existing.TransactionID)
		}

		originalEntries, err := s.ledgerRepo.FindEntriesByTransactionID(ctx, original.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load entries of %s: %w", original.TransactionID, err)
		}
		if len(originalEntries) == 0 {
			return nil, fmt.Errorf("%w: transaction %s has no entries", apperrors.ErrNotFound, original.TransactionID)
		}

		keepFee, err := s.feeIsNonRefundable(ctx, original.Type)
		if err != nil {
			return nil, err
		}

		now := s.now()
		reversalID := s.newID()
		entries, err := buildInverseEntries(originalEntries, keepFee, reversalID, now, s.newID)
		if err != nil {
			return nil, err
		}

		tx := domain.Transaction{
			TransactionID:        reversalID,
			Type:                 domain.TxReversal,
			Amount:               original.Amount,
			CreatedAt:            now,
			RelatedTransactionID: &original.TransactionID,
		}
		if err := s.ledgerRepo.AppendTransaction(ctx, tx, entries); err != nil {
			return nil, err
		}

		s.audit.Publish(ctx, ports.AuditEvent{
			ActorID:       actor.ID,
			ActorKind:     string(actor.Kind),
			Operation:     string(domain.TxReversal),
			TransactionID: tx.TransactionID,
			Properties: map[string]any{
				"original_transaction_id": original.TransactionID,
				"original_type":           string(original.Type),
			},
		})
		logger.Info("Transaction reversed",
			"transaction_id", tx.TransactionID,
			"original_transaction_id", original.TransactionID)

		return &dto.ReversalResult{
			TransactionID:         tx.TransactionID,
			OriginalTransactionID: original.TransactionID,
			EntryCount:            len(entries),
			CreatedAt:             tx.CreatedAt,
		}, nil
	})
}

// feeIsNonRefundable reports whether the current fee configuration for the
// original transaction type marks its fee as kept on reversal. Types without
// fee configuration carry no fee, so there is nothing to keep.
func (s *reversalService) feeIsNonRefundable(ctx context.Context, txType domain.TransactionType) (bool, error) {
	cfg, err := s.feeRepo.CurrentFeeConfig(ctx, txType)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load fee config for %s: %w", txType, err)
	}
	return !cfg.Refundable, nil
}

// buildInverseEntries flips every original entry, preserving account, amount
// and reference. With keepFee set, fee revenue credits are left in place and
// the fee total is deducted from the inverse of the original debit leg, which
// keeps the batch balanced because every entry set books exactly one debit.
func buildInverseEntries(originalEntries []domain.LedgerEntry, keepFee bool, transactionID string, createdAt time.Time, newID func() string) ([]domain.LedgerEntry, error) {
	feeRevenue := domain.PlatformAccountRef(domain.PlatformFeeRevenue)
	feeTotal := domain.ZeroMoney()

	entries := make([]domain.LedgerEntry, 0, len(originalEntries))
	for _, orig := range originalEntries {
		if keepFee && orig.EntryType == domain.Credit && orig.Account == feeRevenue {
			feeTotal = feeTotal.Add(orig.Amount)
			continue
		}
		entries = append(entries, domain.LedgerEntry{
			EntryID:       newID(),
			TransactionID: transactionID,
			Account:       orig.Account,
			EntryType:     orig.EntryType.Inverse(),
			Amount:        orig.Amount,
			ReferenceID:   orig.ReferenceID,
			CreatedAt:     createdAt,
		})
	}

	if !feeTotal.IsZero() {
		for i := range entries {
			if entries[i].EntryType != domain.Credit {
				continue
			}
			reduced, err := domain.NewMoney(entries[i].Amount.Sub(feeTotal))
			if err != nil {
				return nil, fmt.Errorf("fee exceeds reversible amount: %w", err)
			}
			entries[i].Amount = reduced
			break
		}
		entries = dropZeroAmountEntries(entries)
	}

	if len(entries) < 2 {
		return nil, fmt.Errorf("%w: transaction has no reversible amount after fee retention", apperrors.ErrForbidden)
	}
	return entries, nil
}

func dropZeroAmountEntries(entries []domain.LedgerEntry) []domain.LedgerEntry {
	kept := entries[:0]
	for _, e := range entries {
		if !e.Amount.IsZero() {
			kept = append(kept, e)
		}
	}
	return kept
}
