package repositories

import (
	"context"

	"github.com/sahelpay/sahelpay/internal/core/domain"
)

// ClientRepository persists mobile-money clients.
type ClientRepository interface {
	FindClientByID(ctx context.Context, clientID string) (*domain.Client, error)
	SaveClient(ctx context.Context, client domain.Client) error
	ListClients(ctx context.Context, limit int, offset int) ([]domain.Client, error)
}

// MerchantRepository persists merchants.
type MerchantRepository interface {
	FindMerchantByID(ctx context.Context, merchantID string) (*domain.Merchant, error)
	FindMerchantByCode(ctx context.Context, code string) (*domain.Merchant, error)
	SaveMerchant(ctx context.Context, merchant domain.Merchant) error
}

// AgentRepository persists agents. Cash-affecting operations serialize on
// the agent's cash clearing account lock, not on the agent row.
type AgentRepository interface {
	FindAgentByID(ctx context.Context, agentID string) (*domain.Agent, error)
	SaveAgent(ctx context.Context, agent domain.Agent) error
}

// CardRepository persists enrolled cards.
type CardRepository interface {
	FindCardByID(ctx context.Context, cardID string) (*domain.Card, error)
	FindCardByUID(ctx context.Context, uid string) (*domain.Card, error)
	ExistsCardWithUID(ctx context.Context, uid string) (bool, error)
	SaveCard(ctx context.Context, card domain.Card) error
}

// TerminalRepository persists merchant terminals.
type TerminalRepository interface {
	FindTerminalByID(ctx context.Context, terminalID string) (*domain.Terminal, error)
	SaveTerminal(ctx context.Context, terminal domain.Terminal) error
}
