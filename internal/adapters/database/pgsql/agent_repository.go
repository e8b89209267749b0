package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sahelpay/sahelpay/internal/apperrors"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portsrepo "github.com/sahelpay/sahelpay/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type PgxAgentRepository struct {
	pool *pgxpool.Pool
}

// NewPgxAgentRepository creates a new repository for agent data.
func NewPgxAgentRepository(pool *pgxpool.Pool) portsrepo.AgentRepository {
	return &PgxAgentRepository{pool: pool}
}

const agentColumns = `agent_id, code, name, status, cash_limit, created_at, created_by, last_updated_at, last_updated_by`

func (r *PgxAgentRepository) FindAgentByID(ctx context.Context, agentID string) (*domain.Agent, error) {
	return r.findAgent(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE agent_id = $1;
	`, agentID)
}

func (r *PgxAgentRepository) SaveAgent(ctx context.Context, agent domain.Agent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agents (agent_id, code, name, status, cash_limit, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (agent_id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			cash_limit = EXCLUDED.cash_limit,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`,
		agent.AgentID,
		agent.Code,
		agent.Name,
		agent.Status,
		agent.CashLimit.Decimal(),
		agent.CreatedAt,
		agent.CreatedBy,
		agent.LastUpdatedAt,
		agent.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save agent %s: %w", agent.AgentID, err)
	}
	return nil
}

func (r *PgxAgentRepository) findAgent(ctx context.Context, query string, agentID string) (*domain.Agent, error) {
	var (
		agent     domain.Agent
		cashLimit decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, query, agentID).Scan(
		&agent.AgentID,
		&agent.Code,
		&agent.Name,
		&agent.Status,
		&cashLimit,
		&agent.CreatedAt,
		&agent.CreatedBy,
		&agent.LastUpdatedAt,
		&agent.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find agent %s: %w", agentID, err)
	}
	limit, err := domain.NewMoney(cashLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid cash limit on agent %s: %w", agentID, err)
	}
	agent.CashLimit = limit
	return &agent, nil
}
