package memory

import (
	"context"
	"sort"
	"sync"

	"agentscan/internal/domain"
	"agentscan/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.Trade // wallet -> signature -> trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[string]map[string]*domain.Trade)}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// UpsertTrades appends trades idempotently on signature. Existing records
// are left untouched. Returns the number of newly inserted trades.
func (s *TradeStore) UpsertTrades(_ context.Context, wallet string, trades []*domain.Trade) (int, error) {
	if wallet == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bySig, ok := s.data[wallet]
	if !ok {
		bySig = make(map[string]*domain.Trade)
		s.data[wallet] = bySig
	}

	inserted := 0
	for _, t := range trades {
		if t == nil || t.Signature == "" {
			return inserted, storage.ErrInvalidInput
		}
		if _, exists := bySig[t.Signature]; exists {
			continue
		}
		cp := *t
		bySig[t.Signature] = &cp
		inserted++
	}
	return inserted, nil
}

// Load returns all trades for a wallet, newest first by timestamp.
func (s *TradeStore) Load(_ context.Context, wallet string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySig := s.data[wallet]
	trades := make([]*domain.Trade, 0, len(bySig))
	for _, t := range bySig {
		cp := *t
		trades = append(trades, &cp)
	}

	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp > trades[j].Timestamp
		}
		return trades[i].Signature < trades[j].Signature
	})
	return trades, nil
}
