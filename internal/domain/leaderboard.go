package domain

import "time"

// LeaderboardEntry is one agent's derived performance row in a snapshot.
type LeaderboardEntry struct {
	Wallet      string  `json:"wallet"`
	Name        string  `json:"name"`
	Twitter     string  `json:"twitter,omitempty"`
	PnL24h      float64 `json:"pnl_24h"`
	PnL7d       float64 `json:"pnl_7d"`
	PnLAll      float64 `json:"pnl_all"`
	WinRate     float64 `json:"win_rate"`     // percentage in [0, 100]
	TotalTrades int     `json:"total_trades"`
	LastTrade   *Trade  `json:"last_trade,omitempty"`
}

// Snapshot is the ranked leaderboard result of one builder cycle.
// Entries are ordered by 24h PnL descending at publish time; readers
// re-sort by the requested window without rebuilding.
type Snapshot struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// PnL returns the entry's PnL for the given window key
// ("24h", "7d" or "all"). Unknown keys fall back to 24h.
func (e *LeaderboardEntry) PnL(period string) float64 {
	switch period {
	case "7d":
		return e.PnL7d
	case "all":
		return e.PnLAll
	default:
		return e.PnL24h
	}
}
