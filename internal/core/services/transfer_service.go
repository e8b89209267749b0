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

// transferService moves money between two clients or two merchants.
type transferService struct {
	ledgerRepo   portsrepo.LedgerRepositoryWithLock
	idemRepo     portsrepo.IdempotencyRepository
	clientRepo   portsrepo.ClientRepository
	merchantRepo portsrepo.MerchantRepository
	platformRepo portsrepo.PlatformConfigRepository
	feeRepo      portsrepo.FeeConfigRepository
	audit        ports.AuditPublisher

	now   func() time.Time
	newID func() string
}

// NewTransferService creates a new TransferService.
func NewTransferService(
	ledgerRepo portsrepo.LedgerRepositoryWithLock,
	idemRepo portsrepo.IdempotencyRepository,
	clientRepo portsrepo.ClientRepository,
	merchantRepo portsrepo.MerchantRepository,
	platformRepo portsrepo.PlatformConfigRepository,
	feeRepo portsrepo.FeeConfigRepository,
	audit ports.AuditPublisher,
) portssvc.TransferSvcFacade {
	return &transferService{
		ledgerRepo:   ledgerRepo,
		idemRepo:     idemRepo,
		clientRepo:   clientRepo,
		merchantRepo: merchantRepo,
		platformRepo: platformRepo,
		feeRepo:      feeRepo,
		audit:        audit,
		now:          defaultClock,
		newID:        defaultIDGen,
	}
}

var _ portssvc.TransferSvcFacade = (*transferService)(nil)

// Transfer moves an amount from the calling actor to a recipient of the same
// kind. The sender is debited amount+fee under an account lock; the
// recipient and the platform fee account are only credited and need no lock.
func (s *transferService) Transfer(ctx context.Context, actor domain.Actor, cmd dto.TransferCommand) (*dto.MovementResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, cmd, func(ctx context.Context) (*dto.MovementResult, error) {
		if err := authorizeActor(actor, domain.ActorClient, domain.ActorMerchant); err != nil {
			return nil, err
		}
		if actor.ID == cmd.RecipientID {
			return nil, apperrors.NewValidationError("recipientID", "cannot transfer to yourself")
		}

		var (
			txType           domain.TransactionType
			senderAccount    domain.LedgerAccountRef
			recipientAccount domain.LedgerAccountRef
		)
		switch actor.Kind {
		case domain.ActorClient:
			txType = domain.TxClientTransfer
			if err := s.requireActiveClient(ctx, actor.ID, "sender"); err != nil {
				return nil, err
			}
			if err := s.requireActiveClient(ctx, cmd.RecipientID, "recipient"); err != nil {
				return nil, err
			}
			senderAccount = domain.ClientAccountRef(actor.ID)
			recipientAccount = domain.ClientAccountRef(cmd.RecipientID)
		case domain.ActorMerchant:
			txType = domain.TxMerchantTransfer
			if err := s.requireActiveMerchant(ctx, actor.ID, "sender"); err != nil {
				return nil, err
			}
			if err := s.requireActiveMerchant(ctx, cmd.RecipientID, "recipient"); err != nil {
				return nil, err
			}
			senderAccount = domain.MerchantAccountRef(actor.ID)
			recipientAccount = domain.MerchantAccountRef(cmd.RecipientID)
		}

		amount, err := positiveAmount(cmd.Amount)
		if err != nil {
			return nil, err
		}

		platformCfg, err := s.platformRepo.CurrentPlatformConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load platform config: %w", err)
		}
		if err := checkPerTransactionBounds(*platformCfg, amount); err != nil {
			return nil, err
		}

		feeCfg, err := s.feeRepo.CurrentFeeConfig(ctx, txType)
		if err != nil {
			return nil, fmt.Errorf("failed to load fee config for %s: %w", txType, err)
		}
		fee := feeCfg.FeeFor(amount)
		total := amount.Add(fee)

		now := s.now()
		if err := checkDailyDebitLimit(ctx, s.ledgerRepo, senderAccount, txType, total, *platformCfg, now); err != nil {
			return nil, err
		}

		tx := domain.Transaction{
			TransactionID: s.newID(),
			Type:          txType,
			Amount:        amount,
			CreatedAt:     now,
		}
		entries := newEntryBuilder(tx.TransactionID, cmd.ReferenceID, now, s.newID).
			debit(senderAccount, total).
			credit(recipientAccount, amount).
			credit(domain.PlatformAccountRef(domain.PlatformFeeRevenue), fee).
			build()

		err = s.ledgerRepo.WithAccountLock(ctx, senderAccount, func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error {
			if err := checkSufficientBalance(ctx, locked, senderAccount, total); err != nil {
				return err
			}
			return locked.AppendTransaction(ctx, tx, entries)
		})
		if err != nil {
			return nil, err
		}

		s.audit.Publish(ctx, ports.AuditEvent{
			ActorID:       actor.ID,
			ActorKind:     string(actor.Kind),
			Operation:     string(txType),
			TransactionID: tx.TransactionID,
			Properties:    map[string]any{"amount": amount.String(), "fee": fee.String(), "recipient": cmd.RecipientID},
		})
		logger.Info("Transfer completed", "transaction_id", tx.TransactionID, "type", txType, "amount", amount.String())

		return &dto.MovementResult{
			TransactionID: tx.TransactionID,
			Type:          string(txType),
			Amount:        amount.String(),
			Fee:           fee.String(),
			CreatedAt:     now,
		}, nil
	})
}

func (s *transferService) requireActiveClient(ctx context.Context, clientID, role string) error {
	client, err := s.clientRepo.FindClientByID(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to load %s client %s: %w", role, clientID, err)
	}
	if client.Status != domain.ActorActive {
		return fmt.Errorf("%w: %s client %s is %s", apperrors.ErrForbidden, role, clientID, client.Status)
	}
	return nil
}

func (s *transferService) requireActiveMerchant(ctx context.Context, merchantID, role string) error {
	merchant, err := s.merchantRepo.FindMerchantByID(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("failed to load %s merchant %s: %w", role, merchantID, err)
	}
	if merchant.Status != domain.ActorActive {
		return fmt.Errorf("%w: %s merchant %s is %s", apperrors.ErrForbidden, role, merchantID, merchant.Status)
	}
	return nil
}
