package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
)

// registryService covers the no-money CRUD flows: registering clients,
// merchants, agents and terminals, and flipping their status. Creation and
// status changes are admin operations; reads also allow the subject itself.
type registryService struct {
	clientRepo   portsrepo.ClientRepository
	merchantRepo portsrepo.MerchantRepository
	agentRepo    portsrepo.AgentRepository
	terminalRepo portsrepo.TerminalRepository

	now   func() time.Time
	newID func() string
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(
	clientRepo portsrepo.ClientRepository,
	merchantRepo portsrepo.MerchantRepository,
	agentRepo portsrepo.AgentRepository,
	terminalRepo portsrepo.TerminalRepository,
) portssvc.RegistrySvcFacade {
	return &registryService{
		clientRepo:   clientRepo,
		merchantRepo: merchantRepo,
		agentRepo:    agentRepo,
		terminalRepo: terminalRepo,
		now:          defaultClock,
		newID:        defaultIDGen,
	}
}

var _ portssvc.RegistrySvcFacade = (*registryService)(nil)

func (s *registryService) CreateClient(ctx context.Context, actor domain.Actor, req dto.CreateClientRequest) (*domain.Client, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return nil, err
	}
	client := domain.Client{
		ClientID:    s.newID(),
		PhoneNumber: req.PhoneNumber,
		FullName:    req.FullName,
		Status:      domain.ActorActive,
		AuditFields: s.newAuditFields(actor),
	}
	if err := s.clientRepo.SaveClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}
	logger.Info("Client created", "client_id", client.ClientID, "created_by", actor.ID)
	return &client, nil
}

func (s *registryService) CreateMerchant(ctx context.Context, actor domain.Actor, req dto.CreateMerchantRequest) (*domain.Merchant, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return nil, err
	}
	if existing, err := s.merchantRepo.FindMerchantByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: merchant code %q is already taken", apperrors.ErrDuplicate, req.Code)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check merchant code: %w", err)
	}

	merchant := domain.Merchant{
		MerchantID:  s.newID(),
		Code:        req.Code,
		Name:        req.Name,
		Status:      domain.ActorActive,
		AuditFields: s.newAuditFields(actor),
	}
	if err := s.merchantRepo.SaveMerchant(ctx, merchant); err != nil {
		return nil, fmt.Errorf("failed to save merchant: %w", err)
	}
	logger.Info("Merchant created", "merchant_id", merchant.MerchantID, "code", merchant.Code, "created_by", actor.ID)
	return &merchant, nil
}

func (s *registryService) CreateAgent(ctx context.Context, actor domain.Actor, req dto.CreateAgentRequest) (*domain.Agent, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return nil, err
	}
	cashLimit, err := domain.NewPositiveMoney(req.CashLimit)
	if err != nil {
		return nil, err
	}
	agent := domain.Agent{
		AgentID:     s.newID(),
		Code:        req.Code,
		Name:        req.Name,
		Status:      domain.ActorActive,
		CashLimit:   cashLimit,
		AuditFields: s.newAuditFields(actor),
	}
	if err := s.agentRepo.SaveAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to save agent: %w", err)
	}
	logger.Info("Agent created", "agent_id", agent.AgentID, "cash_limit", agent.CashLimit.String(), "created_by", actor.ID)
	return &agent, nil
}

func (s *registryService) CreateTerminal(ctx context.Context, actor domain.Actor, req dto.CreateTerminalRequest) (*domain.Terminal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return nil, err
	}
	merchant, err := s.merchantRepo.FindMerchantByID(ctx, req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant %s: %w", req.MerchantID, err)
	}

	terminal := domain.Terminal{
		TerminalID:  s.newID(),
		MerchantID:  merchant.MerchantID,
		Serial:      req.Serial,
		Status:      domain.ActorActive,
		AuditFields: s.newAuditFields(actor),
	}
	if err := s.terminalRepo.SaveTerminal(ctx, terminal); err != nil {
		return nil, fmt.Errorf("failed to save terminal: %w", err)
	}
	logger.Info("Terminal created", "terminal_id", terminal.TerminalID, "merchant_id", terminal.MerchantID, "created_by", actor.ID)
	return &terminal, nil
}

func (s *registryService) UpdateClientStatus(ctx context.Context, actor domain.Actor, clientID string, status domain.ActorStatus) error {
	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return err
	}
	client, err := s.clientRepo.FindClientByID(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to load client %s: %w", clientID, err)
	}
	client.Status = status
	s.touchAuditFields(&client.AuditFields, actor)
	if err := s.clientRepo.SaveClient(ctx, *client); err != nil {
		return fmt.Errorf("failed to update client %s: %w", clientID, err)
	}
	middleware.GetLoggerFromCtx(ctx).Info("Client status updated", "client_id", clientID, "status", string(status))
	return nil
}

func (s *registryService) UpdateMerchantStatus(ctx context.Context, actor domain.Actor, merchantID string, status domain.ActorStatus) error {
	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return err
	}
	merchant, err := s.merchantRepo.FindMerchantByID(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("failed to load merchant %s: %w", merchantID, err)
	}
	merchant.Status = status
	s.touchAuditFields(&merchant.AuditFields, actor)
	if err := s.merchantRepo.SaveMerchant(ctx, *merchant); err != nil {
		return fmt.Errorf("failed to update merchant %s: %w", merchantID, err)
	}
	middleware.GetLoggerFromCtx(ctx).Info("Merchant status updated", "merchant_id", merchantID, "status", string(status))
	return nil
}

func (s *registryService) UpdateAgentStatus(ctx context.Context, actor domain.Actor, agentID string, status domain.ActorStatus) error {
	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return err
	}
	agent, err := s.agentRepo.FindAgentByID(ctx, agentID)
	if err != nil {
		return fmt.Errorf("failed to load agent %s: %w", agentID, err)
	}
	agent.Status = status
	s.touchAuditFields(&agent.AuditFields, actor)
	if err := s.agentRepo.SaveAgent(ctx, *agent); err != nil {
		return fmt.Errorf("failed to update agent %s: %w", agentID, err)
	}
	middleware.GetLoggerFromCtx(ctx).Info("Agent status updated", "agent_id", agentID, "status", string(status))
	return nil
}

func (s *registryService) UpdateTerminalStatus(ctx context.Context, actor domain.Actor, terminalID string, status domain.ActorStatus) error {
	if err := authorizeActor(actor, domain.ActorAdmin); err != nil {
		return err
	}
	terminal, err := s.terminalRepo.FindTerminalByID(ctx, terminalID)
	if err != nil {
		return fmt.Errorf("failed to load terminal %s: %w", terminalID, err)
	}
	terminal.Status = status
	s.touchAuditFields(&terminal.AuditFields, actor)
	if err := s.terminalRepo.SaveTerminal(ctx, *terminal); err != nil {
		return fmt.Errorf("failed to update terminal %s: %w", terminalID, err)
	}
	middleware.GetLoggerFromCtx(ctx).Info("Terminal status updated", "terminal_id", terminalID, "status", string(status))
	return nil
}

func (s *registryService) GetClient(ctx context.Context, actor domain.Actor, clientID string) (*domain.Client, error) {
	if err := authorizeSelfOrAdmin(actor, domain.ActorClient, clientID); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindClientByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client %s: %w", clientID, err)
	}
	return client, nil
}

func (s *registryService) GetMerchant(ctx context.Context, actor domain.Actor, merchantID string) (*domain.Merchant, error) {
	if err := authorizeSelfOrAdmin(actor, domain.ActorMerchant, merchantID); err != nil {
		return nil, err
	}
	merchant, err := s.merchantRepo.FindMerchantByID(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant %s: %w", merchantID, err)
	}
	return merchant, nil
}

func (s *registryService) GetAgent(ctx context.Context, actor domain.Actor, agentID string) (*domain.Agent, error) {
	if err := authorizeSelfOrAdmin(actor, domain.ActorAgent, agentID); err != nil {
		return nil, err
	}
	agent, err := s.agentRepo.FindAgentByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent %s: %w", agentID, err)
	}
	return agent, nil
}

func (s *registryService) newAuditFields(actor domain.Actor) domain.AuditFields {
	now := s.now()
	return domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     actor.ID,
		LastUpdatedAt: now,
		LastUpdatedBy: actor.ID,
	}
}

func (s *registryService) touchAuditFields(fields *domain.AuditFields, actor domain.Actor) {
	fields.LastUpdatedAt = s.now()
	fields.LastUpdatedBy = actor.ID
}

// authorizeSelfOrAdmin admits admins and the subject entity itself.
func authorizeSelfOrAdmin(actor domain.Actor, selfKind domain.ActorKind, subjectID string) error {
	if actor.Kind == domain.ActorAdmin {
		return nil
	}
	if actor.Kind == selfKind && actor.ID == subjectID {
		return nil
	}
	return fmt.Errorf("%w: actor %s (%s) may not read this entity", apperrors.ErrForbidden, actor.ID, actor.Kind)
}
