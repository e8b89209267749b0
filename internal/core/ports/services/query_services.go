package services

import (
	"context"

	"github.com/sahelpay/sahelpay/internal/core/domain"
	"github.com/sahelpay/sahelpay/internal/dto"
)

// HistorySvcFacade serves the read side of the ledger: balances and the
// scoped, filtered, cursor-paginated transaction history.
type HistorySvcFacade interface {
	SearchTransactionHistory(ctx context.Context, actor domain.Actor, cmd dto.SearchHistoryCommand) (*dto.SearchHistoryResponse, error)
	GetBalance(ctx context.Context, actor domain.Actor, scope *dto.ScopeRef) (*dto.BalanceResponse, error)
}

// PolicySvcFacade administers the versioned fee/commission/platform configuration.
type PolicySvcFacade interface {
	GetPlatformConfig(ctx context.Context, actor domain.Actor) (*dto.PlatformConfigResponse, error)
	UpdatePlatformConfig(ctx context.Context, actor domain.Actor, req dto.UpdatePlatformConfigRequest) (*dto.PlatformConfigResponse, error)
	UpdateFeeConfig(ctx context.Context, actor domain.Actor, req dto.UpdateFeeConfigRequest) error
	UpdateCommissionConfig(ctx context.Context, actor domain.Actor, req dto.UpdateCommissionConfigRequest) error
}

// RegistrySvcFacade covers the simple no-money CRUD flows for actors.
type RegistrySvcFacade interface {
	CreateClient(ctx context.Context, actor domain.Actor, req dto.CreateClientRequest) (*domain.Client, error)
	CreateMerchant(ctx context.Context, actor domain.Actor, req dto.CreateMerchantRequest) (*domain.Merchant, error)
	CreateAgent(ctx context.Context, actor domain.Actor, req dto.CreateAgentRequest) (*domain.Agent, error)
	CreateTerminal(ctx context.Context, actor domain.Actor, req dto.CreateTerminalRequest) (*domain.Terminal, error)
	UpdateClientStatus(ctx context.Context, actor domain.Actor, clientID string, status domain.ActorStatus) error
	UpdateMerchantStatus(ctx context.Context, actor domain.Actor, merchantID string, status domain.ActorStatus) error
	UpdateAgentStatus(ctx context.Context, actor domain.Actor, agentID string, status domain.ActorStatus) error
	UpdateTerminalStatus(ctx context.Context, actor domain.Actor, terminalID string, status domain.ActorStatus) error
	GetClient(ctx context.Context, actor domain.Actor, clientID string) (*domain.Client, error)
	GetMerchant(ctx context.Context, actor domain.Actor, merchantID string) (*domain.Merchant, error)
	GetAgent(ctx context.Context, actor domain.Actor, agentID string) (*domain.Agent, error)
}
