package services

import (
	"context"
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

// payoutService runs the two-phase merchant payout workflow: the request
// stages the merchant's full balance on the platform clearing account, and a
// later complete/fail call settles or returns it.
type payoutService struct {
	ledgerRepo   portsrepo.LedgerRepositoryWithLock
	idemRepo     portsrepo.IdempotencyRepository
	merchantRepo portsrepo.MerchantRepository
	payoutRepo   portsrepo.PayoutRepository
	audit        ports.AuditPublisher

	now   func() time.Time
	newID func() string
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(
	ledgerRepo portsrepo.LedgerRepositoryWithLock,
	idemRepo portsrepo.IdempotencyRepository,
	merchantRepo portsrepo.MerchantRepository,
	payoutRepo portsrepo.PayoutRepository,
	audit ports.AuditPublisher,
) portssvc.PayoutSvcFacade {
	return &payoutService{
		ledgerRepo:   ledgerRepo,
		idemRepo:     idemRepo,
		merchantRepo: merchantRepo,
		payoutRepo:   payoutRepo,
		audit:        audit,
		now:          defaultClock,
		newID:        defaultIDGen,
	}
}

var _ portssvc.PayoutSvcFacade = (*payoutService)(nil)

// RequestPayout moves the merchant's entire current balance into the
// platform clearing account and records a REQUESTED payout. Only one payout
// may be in flight per merchant.
func (s *payoutService) RequestPayout(ctx context.Context, actor domain.Actor, cmd dto.RequestPayoutCommand) (*dto.PayoutResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, cmd, func(ctx context.Context) (*dto.PayoutResult, error) {
		if err := authorizeActor(actor, domain.ActorMerchant); err != nil {
			return nil, err
		}
		merchant, err := s.merchantRepo.FindMerchantByID(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load merchant %s: %w", actor.ID, err)
		}
		if merchant.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: merchant %s is %s", apperrors.ErrForbidden, merchant.MerchantID, merchant.Status)
		}

		inFlight, err := s.payoutRepo.ExistsRequestedPayoutForMerchant(ctx, merchant.MerchantID)
		if err != nil {
			return nil, fmt.Errorf("failed to check in-flight payouts: %w", err)
		}
		if inFlight {
			return nil, fmt.Errorf("%w: a payout is already in flight for this merchant", apperrors.ErrForbidden)
		}

		merchantAccount := domain.MerchantAccountRef(merchant.MerchantID)
		now := s.now()
		var payout domain.Payout

		err = s.ledgerRepo.WithAccountLock(ctx, merchantAccount, func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error {
			balance, err := locked.NetBalance(ctx, merchantAccount)
			if err != nil {
				return fmt.Errorf("failed to compute merchant balance: %w", err)
			}
			if !balance.IsPositive() {
				return fmt.Errorf("%w: no payout due, balance is %s", apperrors.ErrForbidden, balance.StringFixed(2))
			}
			amount, err := domain.NewMoney(balance)
			if err != nil {
				return err
			}

			tx := domain.Transaction{
				TransactionID: s.newID(),
				Type:          domain.TxPayoutRequest,
				Amount:        amount,
				CreatedAt:     now,
			}
			entries := newEntryBuilder(tx.TransactionID, nil, now, s.newID).
				debit(merchantAccount, amount).
				credit(domain.PlatformAccountRef(domain.PlatformClearing), amount).
				build()
			if err := locked.AppendTransaction(ctx, tx, entries); err != nil {
				return err
			}

			payout = domain.Payout{
				PayoutID:      s.newID(),
				MerchantID:    merchant.MerchantID,
				TransactionID: tx.TransactionID,
				Amount:        amount,
				Status:        domain.SettlementRequested,
				RequestedAt:   now,
			}
			return s.payoutRepo.SavePayout(ctx, payout)
		})
		if err != nil {
			return nil, err
		}

		s.audit.Publish(ctx, ports.AuditEvent{
			ActorID:       actor.ID,
			ActorKind:     string(actor.Kind),
			Operation:     string(domain.TxPayoutRequest),
			TransactionID: payout.TransactionID,
			Properties:    map[string]any{"payout_id": payout.PayoutID, "amount": payout.Amount.String()},
		})
		logger.Info("Payout requested", "payout_id", payout.PayoutID, "amount", payout.Amount.String())

		return &dto.PayoutResult{
			PayoutID:      payout.PayoutID,
			TransactionID: payout.TransactionID,
			Amount:        payout.Amount.String(),
			Status:        string(payout.Status),
			RequestedAt:   payout.RequestedAt,
		}, nil
	})
}

// CompletePayout settles a requested payout to the platform bank account.
// Completing an already-completed payout reports "already applied" instead
// of erroring; completing a failed payout is forbidden.
func (s *payoutService) CompletePayout(ctx context.Context, actor domain.Actor, cmd dto.FinalizePayoutCommand) (*dto.PayoutResult, error) {
	return s.finalizePayout(ctx, actor, cmd, domain.SettlementCompleted)
}

// FailPayout returns the staged funds to the merchant and records the
// failure reason. Symmetric to CompletePayout in its terminal-state handling.
func (s *payoutService) FailPayout(ctx context.Context, actor domain.Actor, cmd dto.FinalizePayoutCommand) (*dto.PayoutResult, error) {
	return s.finalizePayout(ctx, actor, cmd, domain.SettlementFailed)
}

func (s *payoutService) finalizePayout(ctx context.Context, actor domain.Actor, cmd dto.FinalizePayoutCommand, target domain.SettlementStatus) (*dto.PayoutResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payload := struct {
		dto.FinalizePayoutCommand
		PayoutID string `json:"payoutID"`
		Target   string `json:"target"`
	}{cmd, cmd.PayoutID, string(target)}

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, payload, func(ctx context.Context) (*dto.PayoutResult, error) {
		if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
			return nil, err
		}

		payout, err := s.payoutRepo.FindPayoutByID(ctx, cmd.PayoutID)
		if err != nil {
			return nil, fmt.Errorf("failed to load payout %s: %w", cmd.PayoutID, err)
		}

		// Finalization is idempotent at the business-state layer too: hitting
		// the target terminal state again is a no-op, but crossing terminal
		// states is a forbidden transition.
		if payout.Status == target {
			return &dto.PayoutResult{
				PayoutID:       payout.PayoutID,
				TransactionID:  payout.TransactionID,
				Amount:         payout.Amount.String(),
				Status:         string(payout.Status),
				AlreadyApplied: true,
				RequestedAt:    payout.RequestedAt,
			}, nil
		}
		if payout.Status != domain.SettlementRequested {
			return nil, fmt.Errorf("%w: payout %s is %s and cannot transition to %s",
				apperrors.ErrForbidden, payout.PayoutID, payout.Status, target)
		}

		now := s.now()
		var (
			txType      domain.TransactionType
			destination domain.LedgerAccountRef
		)
		if target == domain.SettlementCompleted {
			txType = domain.TxPayoutCompletion
			destination = domain.PlatformAccountRef(domain.PlatformBank)
			payout.Status = domain.SettlementCompleted
			payout.CompletedAt = &now
		} else {
			txType = domain.TxPayoutFailure
			destination = domain.MerchantAccountRef(payout.MerchantID)
			payout.Status = domain.SettlementFailed
			payout.FailedAt = &now
			payout.FailureReason = cmd.FailureReason
		}

		tx := domain.Transaction{
			TransactionID:        s.newID(),
			Type:                 txType,
			Amount:               payout.Amount,
			CreatedAt:            now,
			RelatedTransactionID: &payout.TransactionID,
		}
		entries := newEntryBuilder(tx.TransactionID, nil, now, s.newID).
			debit(domain.PlatformAccountRef(domain.PlatformClearing), payout.Amount).
			credit(destination, payout.Amount).
			build()

		if err := s.ledgerRepo.AppendTransaction(ctx, tx, entries); err != nil {
			return nil, err
		}
		if err := s.payoutRepo.SavePayout(ctx, *payout); err != nil {
			return nil, fmt.Errorf("failed to update payout %s: %w", payout.PayoutID, err)
		}

		s.audit.Publish(ctx, ports.AuditEvent{
			ActorID:       actor.ID,
			ActorKind:     string(actor.Kind),
			Operation:     string(txType),
			TransactionID: tx.TransactionID,
			Properties:    map[string]any{"payout_id": payout.PayoutID, "amount": payout.Amount.String()},
		})
		logger.Info("Payout finalized", "payout_id", payout.PayoutID, "status", payout.Status)

		return &dto.PayoutResult{
			PayoutID:      payout.PayoutID,
			TransactionID: payout.TransactionID,
			Amount:        payout.Amount.String(),
			Status:        string(payout.Status),
			RequestedAt:   payout.RequestedAt,
		}, nil
	})
}
