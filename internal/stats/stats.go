// Package stats derives per-wallet performance figures from decoded
// trades and current oracle prices.
package stats

import (
	"context"
	"time"

	"agentscan/internal/domain"
	"agentscan/internal/pricing"
)

// Rolling PnL windows.
const (
	Window24h = 24 * time.Hour
	Window7d  = 168 * time.Hour
	WindowAll = 8760 * time.Hour // one year, the "all" window
)

// Summary is the derived statistics set for one wallet.
type Summary struct {
	PnL24h      float64
	PnL7d       float64
	PnLAll      float64
	WinRate     float64 // percentage in [0, 100]
	TotalTrades int
}

// Compute derives a summary over a wallet's full trade history. A missing
// price contributes 0 to PnL and never produces an error.
func Compute(ctx context.Context, trades []*domain.Trade, oracle pricing.Oracle, now time.Time) Summary {
	return Summary{
		PnL24h:      PnL(ctx, trades, Window24h, oracle, now),
		PnL7d:       PnL(ctx, trades, Window7d, oracle, now),
		PnLAll:      PnL(ctx, trades, WindowAll, oracle, now),
		WinRate:     WinRate(trades),
		TotalTrades: len(trades),
	}
}

// PnL sums received_usd - spent_usd across trades inside the window.
// Only trades with a native leg are valued: the native side at the native
// price, the token side at its mint price. Token-to-token trades
// contribute 0 because their value is not derivable without cost basis.
func PnL(ctx context.Context, trades []*domain.Trade, window time.Duration, oracle pricing.Oracle, now time.Time) float64 {
	cutoff := now.Add(-window).Unix()

	var pnl float64
	for _, t := range trades {
		if t.Timestamp <= cutoff {
			continue
		}

		switch {
		case t.NativeIn():
			spent := t.AmountIn * oracle.PriceUSD(ctx, domain.NativeSymbol)
			received := t.AmountOut * oracle.PriceUSD(ctx, t.TokenOutMint)
			pnl += received - spent
		case t.NativeOut():
			spent := t.AmountIn * oracle.PriceUSD(ctx, t.TokenInMint)
			received := t.AmountOut * oracle.PriceUSD(ctx, domain.NativeSymbol)
			pnl += received - spent
		}
	}
	return pnl
}

// WinRate is the share of trades whose out-leg is the native token,
// as a percentage. "Sold back to native" approximates a realized exit.
func WinRate(trades []*domain.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	exits := 0
	for _, t := range trades {
		if t.NativeOut() {
			exits++
		}
	}
	if exits == 0 {
		return 0
	}
	return float64(exits) / float64(len(trades)) * 100
}
