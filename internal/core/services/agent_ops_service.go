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

// agentOpsService executes the cash-side operations an agent performs:
// cash-in, card enrollment and merchant withdrawals.
type agentOpsService struct {
	ledgerRepo     portsrepo.LedgerRepositoryWithLock
	idemRepo       portsrepo.IdempotencyRepository
	clientRepo     portsrepo.ClientRepository
	merchantRepo   portsrepo.MerchantRepository
	agentRepo      portsrepo.AgentRepository
	cardRepo       portsrepo.CardRepository
	platformRepo   portsrepo.PlatformConfigRepository
	feeRepo        portsrepo.FeeConfigRepository
	commissionRepo portsrepo.CommissionConfigRepository
	audit          ports.AuditPublisher

	now     func() time.Time
	newID   func() string
	hashPIN func(pin string) (string, error)
}

// NewAgentOpsService creates a new AgentOpsService.
func NewAgentOpsService(
	ledgerRepo portsrepo.LedgerRepositoryWithLock,
	idemRepo portsrepo.IdempotencyRepository,
	clientRepo portsrepo.ClientRepository,
	merchantRepo portsrepo.MerchantRepository,
	agentRepo portsrepo.AgentRepository,
	cardRepo portsrepo.CardRepository,
	platformRepo portsrepo.PlatformConfigRepository,
	feeRepo portsrepo.FeeConfigRepository,
	commissionRepo portsrepo.CommissionConfigRepository,
	audit ports.AuditPublisher,
) portssvc.AgentOpsSvcFacade {
	return &agentOpsService{
		ledgerRepo:     ledgerRepo,
		idemRepo:       idemRepo,
		clientRepo:     clientRepo,
		merchantRepo:   merchantRepo,
		agentRepo:      agentRepo,
		cardRepo:       cardRepo,
		platformRepo:   platformRepo,
		feeRepo:        feeRepo,
		commissionRepo: commissionRepo,
		audit:          audit,
		now:            defaultClock,
		newID:          defaultIDGen,
		hashPIN:        utils.HashPIN,
	}
}

var _ portssvc.AgentOpsSvcFacade = (*agentOpsService)(nil)

// loadActiveAgent loads and status-checks the calling agent. Cash-position
// serialization happens on the agent's cash clearing account lock, not here.
func (s *agentOpsService) loadActiveAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := s.agentRepo.FindAgentByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent %s: %w", agentID, err)
	}
	if agent.Status != domain.ActorActive {
		return nil, fmt.Errorf("%w: agent %s is %s", apperrors.ErrForbidden, agent.AgentID, agent.Status)
	}
	return agent, nil
}

// CashIn converts physical cash handed to the agent into client e-money:
// the agent's cash clearing account is debited (it now owes the platform the
// collected cash) and the client is credited. No fee applies.
func (s *agentOpsService) CashIn(ctx context.Context, actor domain.Actor, cmd dto.CashInCommand) (*dto.MovementResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, cmd, func(ctx context.Context) (*dto.MovementResult, error) {
		if err := authorizeActor(actor, domain.ActorAgent); err != nil {
			return nil, err
		}
		agent, err := s.loadActiveAgent(ctx, actor.ID)
		if err != nil {
			return nil, err
		}

		client, err := s.clientRepo.FindClientByID(ctx, cmd.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to load client %s: %w", cmd.ClientID, err)
		}
		if client.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: client %s is %s", apperrors.ErrForbidden, client.ClientID, client.Status)
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

		clearing := domain.AgentCashClearingRef(agent.AgentID)
		now := s.now()
		tx := domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxCashIn,
			Amount:        amount,
			CreatedAt:     now,
		}
		entries := newEntryBuilder(tx.TransactionID, cmd.ReferenceID, now, s.newID).
			debit(clearing, amount).
			credit(domain.ClientAccountRef(client.ClientID), amount).
			build()

		// The cash-position guard and the append hold the same clearing-account
		// lock, so concurrent cash-ins for one agent serialize.
		err = s.ledgerRepo.WithAccountLock(ctx, clearing, func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error {
			if err := checkAgentCashPosition(ctx, locked, *agent, amount, domain.ZeroMoney()); err != nil {
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
			Operation:     string(domain.TxCashIn),
			TransactionID: tx.TransactionID,
			Properties:    map[string]any{"amount": amount.String(), "client": client.ClientID},
		})
		logger.Info("Cash-in completed", "transaction_id", tx.TransactionID, "amount", amount.String())

		return &dto.MovementResult{
			TransactionID: tx.TransactionID,
			Type:          string(domain.TxCashIn),
			Amount:        amount.String(),
			Fee:           domain.ZeroMoney().String(),
			CreatedAt:     now,
		}, nil
	})
}

// EnrollCard creates a card for a client, collecting the enrollment price in
// cash at the agent: the agent's cash clearing is debited for the price, the
// agent wallet is credited its commission and the platform keeps the rest.
func (s *agentOpsService) EnrollCard(ctx context.Context, actor domain.Actor, cmd dto.EnrollCardCommand) (*dto.EnrollCardResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, cmd, func(ctx context.Context) (*dto.EnrollCardResult, error) {
		if err := authorizeActor(actor, domain.ActorAgent); err != nil {
			return nil, err
		}
		agent, err := s.loadActiveAgent(ctx, actor.ID)
		if err != nil {
			return nil, err
		}

		client, err := s.clientRepo.FindClientByID(ctx, cmd.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to load client %s: %w", cmd.ClientID, err)
		}
		if client.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: client %s is %s", apperrors.ErrForbidden, client.ClientID, client.Status)
		}

		exists, err := s.cardRepo.ExistsCardWithUID(ctx, cmd.CardUID)
		if err != nil {
			return nil, fmt.Errorf("failed to check card UID: %w", err)
		}
		if exists {
			return nil, apperrors.NewValidationError("cardUID", "a card with this UID is already enrolled")
		}

		platformCfg, err := s.platformRepo.CurrentPlatformConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load platform config: %w", err)
		}
		price := platformCfg.CardEnrollmentPrice

		commissionCfg, err := s.commissionRepo.CurrentCommissionConfig(ctx, domain.TxCardEnrollment)
		if err != nil {
			return nil, fmt.Errorf("failed to load commission config: %w", err)
		}
		commission := commissionCfg.CommissionFor(price)
		platformRevenue, err := domain.NewMoney(price.Sub(commission))
		if err != nil {
			return nil, fmt.Errorf("%w: enrollment commission %s exceeds price %s", apperrors.ErrInternal, commission.String(), price.String())
		}

		pinHash, err := s.hashPIN(cmd.PIN)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to hash PIN", apperrors.ErrInternal)
		}

		now := s.now()
		card := domain.Card{
			CardID:   s.newID(),
			ClientID: client.ClientID,
			UID:      cmd.CardUID,
			PINHash:  pinHash,
			Status:   domain.CardActive,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actor.ID,
				LastUpdatedAt: now,
				LastUpdatedBy: actor.ID,
			},
		}

		tx := domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxCardEnrollment,
			Amount:        price,
			CreatedAt:     now,
		}
		clearing := domain.AgentCashClearingRef(agent.AgentID)
		entries := newEntryBuilder(tx.TransactionID, nil, now, s.newID).
			debit(clearing, price).
			credit(domain.AgentWalletRef(agent.AgentID), commission).
			credit(domain.PlatformAccountRef(domain.PlatformFeeRevenue), platformRevenue).
			build()

		// Same lock discipline as cash-in: the collected price raises the
		// agent's cash position, so guard and append share the clearing lock.
		err = s.ledgerRepo.WithAccountLock(ctx, clearing, func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error {
			if err := checkAgentCashPosition(ctx, locked, *agent, price, domain.ZeroMoney()); err != nil {
				return err
			}
			return locked.AppendTransaction(ctx, tx, entries)
		})
		if err != nil {
			return nil, err
		}
		if err := s.cardRepo.SaveCard(ctx, card); err != nil {
			return nil, fmt.Errorf("failed to save card: %w", err)
		}

		s.audit.Publish(ctx, ports.AuditEvent{
			ActorID:       actor.ID,
			ActorKind:     string(actor.Kind),
			Operation:     string(domain.TxCardEnrollment),
			TransactionID: tx.TransactionID,
			Properties:    map[string]any{"price": price.String(), "client": client.ClientID},
		})
		logger.Info("Card enrolled", "transaction_id", tx.TransactionID, "card_id", card.CardID)

		return &dto.EnrollCardResult{
			TransactionID: tx.TransactionID,
			CardID:        card.CardID,
			Price:         price.String(),
			Commission:    commission.String(),
			CreatedAt:     now,
		}, nil
	})
}

// WithdrawAtAgent pays out merchant balance as physical cash at the agent.
// The merchant is debited amount+fee under its account lock; the amount is
// staged on the platform clearing account, the agent earns its commission
// and the platform keeps the fee remainder.
func (s *agentOpsService) WithdrawAtAgent(ctx context.Context, actor domain.Actor, cmd dto.WithdrawAtAgentCommand) (*dto.MovementResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	return runIdempotent(ctx, s.idemRepo, cmd.IdempotencyKey, cmd, func(ctx context.Context) (*dto.MovementResult, error) {
		if err := authorizeActor(actor, domain.ActorAgent); err != nil {
			return nil, err
		}
		agent, err := s.loadActiveAgent(ctx, actor.ID)
		if err != nil {
			return nil, err
		}

		merchant, err := s.merchantRepo.FindMerchantByCode(ctx, cmd.MerchantCode)
		if err != nil {
			return nil, fmt.Errorf("failed to load merchant by code: %w", err)
		}
		if merchant.Status != domain.ActorActive {
			return nil, fmt.Errorf("%w: merchant %s is %s", apperrors.ErrForbidden, merchant.MerchantID, merchant.Status)
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

		feeCfg, err := s.feeRepo.CurrentFeeConfig(ctx, domain.TxMerchantWithdrawal)
		if err != nil {
			return nil, fmt.Errorf("failed to load fee config: %w", err)
		}
		fee := feeCfg.FeeFor(amount)
		total := amount.Add(fee)

		commissionCfg, err := s.commissionRepo.CurrentCommissionConfig(ctx, domain.TxMerchantWithdrawal)
		if err != nil {
			return nil, fmt.Errorf("failed to load commission config: %w", err)
		}
		commission := commissionCfg.CommissionFor(fee)
		platformRevenue, err := domain.NewMoney(fee.Sub(commission))
		if err != nil {
			return nil, fmt.Errorf("%w: commission %s exceeds fee %s", apperrors.ErrInternal, commission.String(), fee.String())
		}

		merchantAccount := domain.MerchantAccountRef(merchant.MerchantID)
		now := s.now()
		if err := checkDailyDebitLimit(ctx, s.ledgerRepo, merchantAccount, domain.TxMerchantWithdrawal, total, *platformCfg, now); err != nil {
			return nil, err
		}
		// The agent hands out cash here, so the projection only shrinks its
		// position; the guard still runs to keep the discipline uniform.
		if err := checkAgentCashPosition(ctx, s.ledgerRepo, *agent, domain.ZeroMoney(), amount); err != nil {
			return nil, err
		}

		tx := domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxMerchantWithdrawal,
			Amount:        amount,
			CreatedAt:     now,
		}
		entries := newEntryBuilder(tx.TransactionID, cmd.ReferenceID, now, s.newID).
			debit(merchantAccount, total).
			credit(domain.PlatformAccountRef(domain.PlatformClearing), amount).
			credit(domain.AgentWalletRef(agent.AgentID), commission).
			credit(domain.PlatformAccountRef(domain.PlatformFeeRevenue), platformRevenue).
			build()

		err = s.ledgerRepo.WithAccountLock(ctx, merchantAccount, func(ctx context.Context, locked portsrepo.LedgerRepositoryFacade) error {
			if err := checkSufficientBalance(ctx, locked, merchantAccount, total); err != nil {
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
			Operation:     string(domain.TxMerchantWithdrawal),
			TransactionID: tx.TransactionID,
			Properties:    map[string]any{"amount": amount.String(), "fee": fee.String(), "merchant": merchant.MerchantID},
		})
		logger.Info("Merchant withdrawal completed", "transaction_id", tx.TransactionID, "amount", amount.String())

		return &dto.MovementResult{
			TransactionID: tx.TransactionID,
			Type:          string(domain.TxMerchantWithdrawal),
			Amount:        amount.String(),
			Fee:           fee.String(),
			Commission:    commission.String(),
			CreatedAt:     now,
		}, nil
	})
}
