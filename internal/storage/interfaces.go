package storage

import (
	"context"

	"agentscan/internal/domain"
)

// AgentStore is the authoritative registry of agents.
type AgentStore interface {
	// Register inserts a new agent. Returns ErrDuplicateKey if the
	// wallet is already registered (delisted or not).
	Register(ctx context.Context, a *domain.Agent) error

	// GetByWallet retrieves an agent. Returns ErrNotFound if not
	// registered or delisted.
	GetByWallet(ctx context.Context, wallet string) (*domain.Agent, error)

	// ListVerified returns all verified, non-delisted agents ordered by
	// name. The result is a consistent snapshot.
	ListVerified(ctx context.Context) ([]*domain.Agent, error)

	// Delist tombstones an agent, excluding it from the pipeline and
	// from reads. Returns ErrNotFound for unknown wallets.
	Delist(ctx context.Context, wallet string) error
}

// TradeStore is the system of record for decoded trades.
type TradeStore interface {
	// UpsertTrades appends trades for a wallet, idempotent on signature:
	// existing records are left untouched. Returns the number of newly
	// inserted trades. The write is atomic relative to readers.
	UpsertTrades(ctx context.Context, wallet string, trades []*domain.Trade) (int, error)

	// Load returns all trades for a wallet, newest first by timestamp.
	Load(ctx context.Context, wallet string) ([]*domain.Trade, error)
}

// SnapshotStore holds the current leaderboard snapshot.
type SnapshotStore interface {
	// Publish replaces the snapshot and its updated-at marker
	// atomically; readers see either the old or the new snapshot.
	Publish(ctx context.Context, s *domain.Snapshot) error

	// Current returns the latest published snapshot. Returns
	// ErrNotFound when no cycle has ever completed.
	Current(ctx context.Context) (*domain.Snapshot, error)
}
