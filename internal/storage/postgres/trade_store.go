package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"agentscan/internal/domain"
	"agentscan/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// UpsertTrades appends trades for a wallet inside one transaction,
// idempotent on (wallet, signature). Returns the number of newly
// inserted rows.
func (s *TradeStore) UpsertTrades(ctx context.Context, wallet string, trades []*domain.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trades (
			wallet, signature, ts, token_in_mint, token_in_symbol,
			token_out_mint, token_out_symbol, amount_in, amount_out, dex
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (wallet, signature) DO NOTHING
	`

	inserted := 0
	for _, t := range trades {
		tag, err := tx.Exec(ctx, query,
			wallet,
			t.Signature,
			t.Timestamp,
			t.TokenInMint,
			t.TokenInSymbol,
			t.TokenOutMint,
			t.TokenOutSymbol,
			t.AmountIn,
			t.AmountOut,
			t.DEX,
		)
		if err != nil {
			return 0, fmt.Errorf("insert trade: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// Load returns all trades for a wallet, newest first.
func (s *TradeStore) Load(ctx context.Context, wallet string) ([]*domain.Trade, error) {
	query := `
		SELECT signature, wallet, ts, token_in_mint, token_in_symbol,
		       token_out_mint, token_out_symbol, amount_in, amount_out, dex
		FROM trades
		WHERE wallet = $1
		ORDER BY ts DESC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade

		err := rows.Scan(
			&t.Signature,
			&t.Wallet,
			&t.Timestamp,
			&t.TokenInMint,
			&t.TokenInSymbol,
			&t.TokenOutMint,
			&t.TokenOutSymbol,
			&t.AmountIn,
			&t.AmountOut,
			&t.DEX,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
