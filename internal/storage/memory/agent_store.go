package memory

import (
	"context"
	"sort"
	"sync"

	"agentscan/internal/domain"
	"agentscan/internal/storage"
)

// AgentStore is an in-memory implementation of storage.AgentStore.
type AgentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Agent // keyed by wallet
}

// NewAgentStore creates a new in-memory agent store.
func NewAgentStore() *AgentStore {
	return &AgentStore{data: make(map[string]*domain.Agent)}
}

// Compile-time interface check.
var _ storage.AgentStore = (*AgentStore)(nil)

// Register inserts a new agent. Returns ErrDuplicateKey if the wallet
// already exists.
func (s *AgentStore) Register(_ context.Context, a *domain.Agent) error {
	if a == nil || a.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.Wallet]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *a
	s.data[a.Wallet] = &cp
	return nil
}

// GetByWallet retrieves a verified agent by wallet.
func (s *AgentStore) GetByWallet(_ context.Context, wallet string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[wallet]
	if !ok || a.Delisted {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// ListVerified returns all non-delisted agents ordered by name.
func (s *AgentStore) ListVerified(_ context.Context) ([]*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]*domain.Agent, 0, len(s.data))
	for _, a := range s.data {
		if a.Delisted {
			continue
		}
		cp := *a
		agents = append(agents, &cp)
	}

	sort.Slice(agents, func(i, j int) bool {
		if agents[i].Name != agents[j].Name {
			return agents[i].Name < agents[j].Name
		}
		return agents[i].Wallet < agents[j].Wallet
	})
	return agents, nil
}

// Delist tombstones an agent.
func (s *AgentStore) Delist(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data[wallet]
	if !ok {
		return storage.ErrNotFound
	}
	a.Delisted = true
	return nil
}
