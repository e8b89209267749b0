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

// refundService runs the two-phase client balance refund workflow. It mirrors
// the payout workflow with the client refund clearing account as the staging
// area.
type refundService struct {
	ledgerRepo portsrepo.LedgerRepositoryWithLock
	idemRepo   portsrepo.IdempotencyRepository
	clientRepo portsrepo.ClientRepository
	refundRepo portsrepo.RefundRepository
	audit      ports.AuditPublisher

	now   func() time.Time
	newID func() string
}

// NewRefundService creates a new RefundService.
func NewRefundService(
	ledgerRepo portsrepo.LedgerRepositoryWithLock,
	idemRepo portsrepo.IdempotencyRepository,
	clientRepo portsrepo.ClientRepository,
	refundRepo portsrepo.RefundRepository,
	audit ports.AuditPublisher,
) portssvc.RefundSvcFacade {
	return &refundService{
		ledgerRepo: ledgerRepo,
		idemRepo:   idemRepo,
		clientRepo: clientRepo,
		refundRepo: refundRepo,
		audit:      audit,
		now:        defaultClock,
		newID:      defaultIDGen,
	}
}

var _ portssvc.RefundSvcFacade = (*refundService)(nil)

// RequestRefund stages the client's entire current balance on the refund
// clearing account and records a REQUESTED refund. Only one refund may be in
// flight per client.
func (s *refundService) RequestRefund(ctx context.Context, actor domain.Actor, cmd dto.RequestRefundCommand) (*dto.RefundResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, cmd, func(ctx context.Context) (*dto.RefundResult, error) {
		if err := authorizeActor(actor, domain.ActorClient); err != nil {
			return nil, err
		}
		client, err := s.clientRepo.FindClientByID(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load client %s: %w", actor.ID, err)
		}
		if client.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: client %s is %s", apperrors.ErrForbidden, client.ClientID, client.Status)
		}

		inFlight, err := s.refundRepo.ExistsRequestedRefundForClient(ctx, client.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to check in-flight refunds: %w", err)
		}
		if inFlight {
			return nil, fmt.Errorf("%w: a refund is already in flight for this client", apperrors.ErrForbidden)
		}

		clientAccount := domain.ClientAccountRef(client.ClientID)
		now := s.now()
		var refund domain.ClientRefund

		err = s.ledgerRepo.WithAccountLock(ctx, clientAccount, func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error {
			balance, err := locked.NetBalance(ctx, clientAccount)
			if err != nil {
				return fmt.Errorf("failed to compute client balance: %w", err)
			}
			if !balance.IsPositive() {
				return fmt.Errorf("%w: no refund due, balance is %s", apperrors.ErrForbidden, balance.StringFixed(2))
			}
			amount, err := domain.NewMoney(balance)
			if err != nil {
				return err
			}

			tx := domain.Transaction{
				TransactionID: s.newID(),
				Type:          domain.TxRefundRequest,
				Amount:        amount,
				CreatedAt:     now,
			}
			entries := newEntryBuilder(tx.TransactionID, nil, now, s.newID).
				debit(clientAccount, amount).
				credit(domain.PlatformAccountRef(domain.PlatformClientRefundClearing), amount).
				build()
			if err := locked.AppendTransaction(ctx, tx, entries); err != nil {
				return err
			}

			refund = domain.ClientRefund{
				RefundID:      s.newID(),
				ClientID:      client.ClientID,
				TransactionID: tx.TransactionID,
				Amount:        amount,
				Status:        domain.SettlementRequested,
				RequestedAt:   now,
			}
			return s.refundRepo.SaveRefund(ctx, refund)
		})
		if err != nil {
			return nil, err
		}

		s.audit.Publish(ctx, ports.AuditEvent{
			ActorID:       actor.ID,
			ActorKind:     string(actor.Kind),
			Operation:     string(domain.TxRefundRequest),
			TransactionID: refund.TransactionID,
			Properties:    map[string]any{"refund_id": refund.RefundID, "amount": refund.Amount.String()},
		})
		logger.Info("Refund requested", "refund_id", refund.RefundID, "amount", refund.Amount.String())

		return &dto.RefundResult{
			RefundID:      refund.RefundID,
			TransactionID: refund.TransactionID,
			Amount:        refund.Amount.String(),
			Status:        string(refund.Status),
			RequestedAt:   refund.RequestedAt,
		}, nil
	})
}

// CompleteRefund settles a requested refund out through the platform bank
// account. Repeating a completed refund reports "already applied"; completing
// a failed refund is forbidden.
func (s *refundService) CompleteRefund(ctx context.Context, actor domain.Actor, cmd dto.FinalizeRefundCommand) (*dto.RefundResult, error) {
	return s.finalizeRefund(ctx, actor, cmd, domain.SettlementCompleted)
}

// FailRefund returns the staged funds to the client and records the failure
// reason.
func (s *refundService) FailRefund(ctx context.Context, actor domain.Actor, cmd dto.FinalizeRefundCommand) (*dto.RefundResult, error) {
	return s.finalizeRefund(ctx, actor, cmd, domain.SettlementFailed)
}

func (s *refundService) finalizeRefund(ctx context.Context, actor domain.Actor, cmd dto.FinalizeRefundCommand, target domain.SettlementStatus) (*dto.RefundResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payload := struct {
		dto.FinalizeRefundCommand
		RefundID string `json:"refundID"`
		Target   string `json:"target"`
	}{cmd, cmd.RefundID, string(target)}

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, payload, func(ctx context.Context) (*dto.RefundResult, error) {
		if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
			return nil, err
		}

		refund, err := s.refundRepo.FindRefundByID(ctx, cmd.RefundID)
		if err != nil {
			return nil, fmt.Errorf("failed to load refund %s: %w", cmd.RefundID, err)
		}

		if refund.Status == target {
			return &dto.RefundResult{
				RefundID:       refund.RefundID,
				TransactionID:  refund.TransactionID,
				Amount:         refund.Amount.String(),
				Status:         string(refund.Status),
				AlreadyApplied: true,
				RequestedAt:    refund.RequestedAt,
			}, nil
		}
		if refund.Status != domain.SettlementRequested {
			return nil, fmt.Errorf("%w: refund %s is %s and cannot transition to %s",
				apperrors.ErrForbidden, refund.RefundID, refund.Status, target)
		}

		now := s.now()
		var (
			txType      domain.TransactionType
			destination domain.LedgerAccountRef
		)
		if target == domain.SettlementCompleted {
			txType = domain.TxRefundCompletion
			destination = domain.PlatformAccountRef(domain.PlatformBank)
			refund.Status = domain.SettlementCompleted
			refund.CompletedAt = &now
		} else {
			txType = domain.TxRefundFailure
			destination = domain.ClientAccountRef(refund.ClientID)
			refund.Status = domain.SettlementFailed
			refund.FailedAt = &now
			refund.FailureReason = cmd.FailureReason
		}

		tx := domain.Transaction{
			TransactionID:        s.newID(),
			Type:                 txType,
			Amount:               refund.Amount,
			CreatedAt:            now,
			RelatedTransactionID: &refund.TransactionID,
		}
		entries := newEntryBuilder(tx.TransactionID, nil, now, s.newID).
			debit(domain.PlatformAccountRef(domain.PlatformClientRefundClearing), refund.Amount).
			credit(destination, refund.Amount).
			build()

		if err := s.ledgerRepo.AppendTransaction(ctx, tx, entries); err != nil {
			return nil, err
		}
		if err := s.refundRepo.SaveRefund(ctx, *refund); err != nil {
			return nil, fmt.Errorf("failed to update refund %s: %w", refund.RefundID, err)
		}

		s.audit.Publish(ctx, ports.AuditEvent{
			ActorID:       actor.ID,
			ActorKind:     string(actor.Kind),
			Operation:     string(txType),
			TransactionID: tx.TransactionID,
			Properties:    map[string]any{"refund_id": refund.RefundID, "amount": refund.Amount.String()},
		})
		logger.Info("Refund finalized", "refund_id", refund.RefundID, "status", refund.Status)

		return &dto.RefundResult{
			RefundID:      refund.RefundID,
			TransactionID: refund.TransactionID,
			Amount:        refund.Amount.String(),
			Status:        string(refund.Status),
			RequestedAt:   refund.RequestedAt,
		}, nil
	})
}
