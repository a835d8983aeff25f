package postgres

import (
	"context"
	"fmt"

	"agentscan/internal/domain"
	"agentscan/internal/storage"
)

// AgentStore implements storage.AgentStore using PostgreSQL.
type AgentStore struct {
	pool *Pool
}

// NewAgentStore creates a new AgentStore.
func NewAgentStore(pool *Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AgentStore = (*AgentStore)(nil)

// Register inserts a new agent. Returns ErrDuplicateKey if the wallet is
// already registered, delisted rows included.
func (s *AgentStore) Register(ctx context.Context, a *domain.Agent) error {
	query := `
		INSERT INTO agents (wallet, name, description, twitter, profile_url, verified_at, delisted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		a.Wallet,
		a.Name,
		a.Description,
		a.Twitter,
		a.ProfileURL,
		a.VerifiedAt,
		a.Delisted,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetByWallet retrieves a non-delisted agent by wallet.
func (s *AgentStore) GetByWallet(ctx context.Context, wallet string) (*domain.Agent, error) {
	query := `
		SELECT wallet, name, description, twitter, profile_url, verified_at, delisted
		FROM agents
		WHERE wallet = $1 AND delisted = FALSE
	`

	var a domain.Agent
	err := s.pool.QueryRow(ctx, query, wallet).Scan(
		&a.Wallet,
		&a.Name,
		&a.Description,
		&a.Twitter,
		&a.ProfileURL,
		&a.VerifiedAt,
		&a.Delisted,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get agent by wallet: %w", err)
	}
	return &a, nil
}

// ListVerified returns all non-delisted agents ordered by name, wallet.
func (s *AgentStore) ListVerified(ctx context.Context) ([]*domain.Agent, error) {
	query := `
		SELECT wallet, name, description, twitter, profile_url, verified_at, delisted
		FROM agents
		WHERE delisted = FALSE
		ORDER BY name ASC, wallet ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list verified agents: %w", err)
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		var a domain.Agent
		err := rows.Scan(
			&a.Wallet,
			&a.Name,
			&a.Description,
			&a.Twitter,
			&a.ProfileURL,
			&a.VerifiedAt,
			&a.Delisted,
		)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		agents = append(agents, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent rows: %w", err)
	}

	return agents, nil
}

// Delist tombstones an agent. Returns ErrNotFound for unknown wallets.
func (s *AgentStore) Delist(ctx context.Context, wallet string) error {
	query := `UPDATE agents SET delisted = TRUE WHERE wallet = $1`

	tag, err := s.pool.Exec(ctx, query, wallet)
	if err != nil {
		return fmt.Errorf("delist agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
