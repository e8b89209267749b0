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

type PgxClientRepository struct {
	pool *pgxpool.Pool
}

// NewPgxClientRepository creates a new repository for client data.
func NewPgxClientRepository(pool *pgxpool.Pool) portsrepo.ClientRepository {
	return &PgxClientRepository{pool: pool}
}

const clientColumns = `client_id, phone_number, full_name, status, created_at, created_by, last_updated_at, last_updated_by`

func (r *PgxClientRepository) FindClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	var client domain.Client
	err := r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE client_id = $1;
	`, clientID).Scan(
		&client.ClientID,
		&client.PhoneNumber,
		&client.FullName,
		&client.Status,
		&client.CreatedAt,
		&client.CreatedBy,
		&client.LastUpdatedAt,
		&client.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find client %s: %w", clientID, err)
	}
	return &client, nil
}

func (r *PgxClientRepository) SaveClient(ctx context.Context, client domain.Client) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clients (client_id, phone_number, full_name, status, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (client_id) DO UPDATE SET
			phone_number = EXCLUDED.phone_number,
			full_name = EXCLUDED.full_name,
			status = EXCLUDED.status,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`,
		client.ClientID,
		client.PhoneNumber,
		client.FullName,
		client.Status,
		client.CreatedAt,
		client.CreatedBy,
		client.LastUpdatedAt,
		client.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save client %s: %w", client.ClientID, err)
	}
	return nil
}

func (r *PgxClientRepository) ListClients(ctx context.Context, limit int, offset int) ([]domain.Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		ORDER BY created_at, client_id
		LIMIT $1 OFFSET $2;
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		var client domain.Client
		if err := rows.Scan(
			&client.ClientID,
			&client.PhoneNumber,
			&client.FullName,
			&client.Status,
			&client.CreatedAt,
			&client.CreatedBy,
			&client.LastUpdatedAt,
			&client.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client rows: %w", err)
	}
	return clients, nil
}
