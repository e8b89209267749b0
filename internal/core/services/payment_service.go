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
	"github.com/sahelpay/sahelpay/internal/utils"
)

// paymentService executes card payments initiated by merchant terminals.
type paymentService struct {
	ledgerRepo   portsrepo.LedgerRepositoryWithLock
	idemRepo     portsrepo.IdempotencyRepository
	clientRepo   portsrepo.ClientRepository
	merchantRepo portsrepo.MerchantRepository
	terminalRepo portsrepo.TerminalRepository
	cardRepo     portsrepo.CardRepository
	platformRepo portsrepo.PlatformConfigRepository
	feeRepo      portsrepo.FeeConfigRepository
	audit        ports.AuditPublisher

	now   func() time.Time
	newID func() string

	checkPIN func(pin, hash string) bool
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	ledgerRepo portsrepo.LedgerRepositoryWithLock,
	idemRepo portsrepo.IdempotencyRepository,
	clientRepo portsrepo.ClientRepository,
	merchantRepo portsrepo.MerchantRepository,
	terminalRepo portsrepo.TerminalRepository,
	cardRepo portsrepo.CardRepository,
	platformRepo portsrepo.PlatformConfigRepository,
	feeRepo portsrepo.FeeConfigRepository,
	audit ports.AuditPublisher,
) portssvc.PaymentSvcFacade {
	return &paymentService{
		ledgerRepo:   ledgerRepo,
		idemRepo:     idemRepo,
		clientRepo:   clientRepo,
		merchantRepo: merchantRepo,
		terminalRepo: terminalRepo,
		cardRepo:     cardRepo,
		platformRepo: platformRepo,
		feeRepo:      feeRepo,
		audit:        audit,
		now:          defaultClock,
		newID:        defaultIDGen,
		checkPIN:     utils.CheckPINHash,
	}
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// PayByCard debits the card's client for amount+fee, credits the terminal's
// merchant for the amount and the platform for the fee. A wrong PIN counts
// against the card and blocks it at the configured threshold; that state
// change is persisted even though the payment itself is rejected.
func (s *paymentService) PayByCard(ctx context.Context, actor domain.Actor, cmd dto.PayByCardCommand) (*dto.MovementResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, cmd, func(ctx context.Context) (*dto.MovementResult, error) {
		if err := authorizeActor(actor, domain.ActorTerminal); err != nil {
			return nil, err
		}

		terminal, err := s.terminalRepo.FindTerminalByID(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load terminal %s: %w", actor.ID, err)
		}
		if terminal.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: terminal %s is %s", apperrors.ErrForbidden, terminal.TerminalID, terminal.Status)
		}

		merchant, err := s.merchantRepo.FindMerchantByID(ctx, terminal.MerchantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load merchant %s: %w", terminal.MerchantID, err)
		}
		if merchant.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: merchant %s is %s", apperrors.ErrForbidden, merchant.MerchantID, merchant.Status)
		}

		card, err := s.cardRepo.FindCardByUID(ctx, cmd.CardUID)
		if err != nil {
			return nil, fmt.Errorf("failed to load card: %w", err)
		}
		if card.Status != domain.CardActive {
			return nil, fmt.Errorf("%w: card is %s", apperrors.ErrForbidden, card.Status)
		}

		client, err := s.clientRepo.FindClientByID(ctx, card.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to load client %s: %w", card.ClientID, err)
		}
		if client.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: client %s is %s", apperrors.ErrForbidden, client.ClientID, client.Status)
		}

		platformCfg, err := s.platformRepo.CurrentPlatformConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load platform config: %w", err)
		}

		now := s.now()
		if !s.checkPIN(cmd.PIN, card.PINHash) {
			blocked := card.RegisterFailedPIN(platformCfg.PINAttemptThreshold)
			card.LastUpdatedAt = now
			card.LastUpdatedBy = actor.ID
			if saveErr := s.cardRepo.SaveCard(ctx, *card); saveErr != nil {
				logger.Error("Failed to persist PIN failure", "card_id", card.CardID, "error", saveErr)
			}
			if blocked {
				logger.Warn("Card blocked after repeated PIN failures", "card_id", card.CardID, "attempts", card.FailedPINAttempts)
				return nil, fmt.Errorf("%w: invalid PIN, card is now blocked", apperrors.ErrForbidden)
			}
			return nil, fmt.Errorf("%w: invalid PIN", apperrors.ErrForbidden)
		}
		if card.FailedPINAttempts > 0 {
			card.ResetPINFailures()
			card.LastUpdatedAt = now
			card.LastUpdatedBy = actor.ID
			if saveErr := s.cardRepo.SaveCard(ctx, *card); saveErr != nil {
				logger.Error("Failed to reset PIN failure counter", "card_id", card.CardID, "error", saveErr)
			}
		}

		amount, err := positiveAmount(cmd.Amount)
		if err != nil {
			return nil, err
		}
		if err := checkPerTransactionBounds(*platformCfg, amount); err != nil {
			return nil, err
		}

		feeCfg, err := s.feeRepo.CurrentFeeConfig(ctx, domain.TxPayByCard)
		if err != nil {
			return nil, fmt.Errorf("failed to load fee config: %w", err)
		}
		fee := feeCfg.FeeFor(amount)
		total := amount.Add(fee)

		clientAccount := domain.ClientAccountRef(client.ClientID)
		if err := checkDailyDebitLimit(ctx, s.ledgerRepo, clientAccount, domain.TxPayByCard, total, *platformCfg, now); err != nil {
			return nil, err
		}

		tx := domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxPayByCard,
			Amount:        amount,
			CreatedAt:     now,
		}
		entries := newEntryBuilder(tx.TransactionID, cmd.ReferenceID, now, s.newID).
			debit(clientAccount, total).
			credit(domain.MerchantAccountRef(merchant.MerchantID), amount).
			credit(domain.PlatformAccountRef(domain.PlatformFeeRevenue), fee).
			build()

		err = s.ledgerRepo.WithAccountLock(ctx, clientAccount, func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error {
			if err := checkSufficientBalance(ctx, locked, clientAccount, total); err != nil {
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
			Operation:     string(domain.TxPayByCard),
			TransactionID: tx.TransactionID,
			Properties:    map[string]any{"amount": amount.String(), "fee": fee.String(), "merchant": merchant.MerchantID},
		})
		logger.Info("Card payment completed", "transaction_id", tx.TransactionID, "amount", amount.String())

		return &dto.MovementResult{
			TransactionID: tx.TransactionID,
			Type:          string(domain.TxPayByCard),
			Amount:        amount.String(),
			Fee:           fee.String(),
			CreatedAt:     now,
		}, nil
	})
}
