package memory

import (
	"context"
	"sync/atomic"

	"agentscan/internal/domain"
	"agentscan/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// Publication swaps a pointer, so readers always observe a complete
// snapshot.
type SnapshotStore struct {
	current atomic.Pointer[domain.Snapshot]
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Publish atomically replaces the current snapshot.
func (s *SnapshotStore) Publish(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	cp := domain.Snapshot{
		Entries:   make([]domain.LeaderboardEntry, len(snap.Entries)),
		UpdatedAt: snap.UpdatedAt,
	}
	copy(cp.Entries, snap.Entries)
	s.current.Store(&cp)
	return nil
}

// Current returns the latest published snapshot.
func (s *SnapshotStore) Current(_ context.Context) (*domain.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, storage.ErrNotFound
	}

	cp := domain.Snapshot{
		Entries:   make([]domain.LeaderboardEntry, len(snap.Entries)),
		UpdatedAt: snap.UpdatedAt,
	}
	copy(cp.Entries, snap.Entries)
	return &cp, nil
}
