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
)

type PgxTerminalRepository struct {
	pool *pgxpool.Pool
}

// NewPgxTerminalRepository creates a new repository for terminal data.
func NewPgxTerminalRepository(pool *pgxpool.Pool) portsrepo.TerminalRepository {
	return &PgxTerminalRepository{pool: pool}
}

func (r *PgxTerminalRepository) FindTerminalByID(ctx context.Context, terminalID string) (*domain.Terminal, error) {
	var terminal domain.Terminal
	err := r.pool.QueryRow(ctx, `
		SELECT terminal_id, merchant_id, serial, status, created_at, created_by, last_updated_at, last_updated_by
		FROM terminals
		WHERE terminal_id = $1;
	`, terminalID).Scan(
		&terminal.TerminalID,
		&terminal.MerchantID,
		&terminal.Serial,
		&terminal.Status,
		&terminal.CreatedAt,
		&terminal.CreatedBy,
		&terminal.LastUpdatedAt,
		&terminal.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find terminal %s: %w", terminalID, err)
	}
	return &terminal, nil
}

func (r *PgxTerminalRepository) SaveTerminal(ctx context.Context, terminal domain.Terminal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO terminals (terminal_id, merchant_id, serial, status, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (terminal_id) DO UPDATE SET
			merchant_id = EXCLUDED.merchant_id,
			serial = EXCLUDED.serial,
			status = EXCLUDED.status,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`,
		terminal.TerminalID,
		terminal.MerchantID,
		terminal.Serial,
		terminal.Status,
		terminal.CreatedAt,
		terminal.CreatedBy,
		terminal.LastUpdatedAt,
		terminal.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save terminal %s: %w", terminal.TerminalID, err)
	}
	return nil
}
