package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentscan/internal/domain"
	"agentscan/internal/storage"
)

// metaKeyLastUpdate marks the publish time of the current snapshot.
// Its absence means no cycle has ever completed.
const metaKeyLastUpdate = "leaderboard_last_update"

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Publish rewrites the leaderboard_entries table in one transaction so
// readers never observe a half-built snapshot.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Publish atomically replaces the snapshot and its updated-at marker.
func (s *SnapshotStore) Publish(ctx context.Context, snap *domain.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries`); err != nil {
		return fmt.Errorf("clear leaderboard entries: %w", err)
	}

	query := `
		INSERT INTO leaderboard_entries (
			rank, wallet, name, twitter, pnl_24h, pnl_7d, pnl_all,
			win_rate, total_trades, last_trade
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for i, e := range snap.Entries {
		var lastTrade []byte
		if e.LastTrade != nil {
			lastTrade, err = json.Marshal(e.LastTrade)
			if err != nil {
				return fmt.Errorf("marshal last trade: %w", err)
			}
		}

		_, err := tx.Exec(ctx, query,
			i+1,
			e.Wallet,
			e.Name,
			e.Twitter,
			e.PnL24h,
			e.PnL7d,
			e.PnLAll,
			e.WinRate,
			e.TotalTrades,
			lastTrade,
		)
		if err != nil {
			return fmt.Errorf("insert leaderboard entry: %w", err)
		}
	}

	metaQuery := `
		INSERT INTO meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := tx.Exec(ctx, metaQuery, metaKeyLastUpdate, snap.UpdatedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update snapshot marker: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Current returns the latest published snapshot. Returns ErrNotFound
// when no cycle has ever completed.
func (s *SnapshotStore) Current(ctx context.Context) (*domain.Snapshot, error) {
	var marker string
	err := s.pool.QueryRow(ctx, `SELECT value FROM meta WHERE key = $1`, metaKeyLastUpdate).Scan(&marker)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot marker: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339, marker)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot marker: %w", err)
	}

	query := `
		SELECT wallet, name, twitter, pnl_24h, pnl_7d, pnl_all,
		       win_rate, total_trades, last_trade
		FROM leaderboard_entries
		ORDER BY rank ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard entries: %w", err)
	}
	defer rows.Close()

	snap := &domain.Snapshot{UpdatedAt: updatedAt}
	for rows.Next() {
		var e domain.LeaderboardEntry
		var lastTrade []byte

		err := rows.Scan(
			&e.Wallet,
			&e.Name,
			&e.Twitter,
			&e.PnL24h,
			&e.PnL7d,
			&e.PnLAll,
			&e.WinRate,
			&e.TotalTrades,
			&lastTrade,
		)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}

		if len(lastTrade) > 0 {
			var t domain.Trade
			if err := json.Unmarshal(lastTrade, &t); err != nil {
				return nil, fmt.Errorf("unmarshal last trade: %w", err)
			}
			e.LastTrade = &t
		}

		snap.Entries = append(snap.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}

	return snap, nil
}
