// Package dex decodes parsed Solana transactions into normalized swap
// trades by inspecting DEX program invocations and wallet balance deltas.
package dex

import (
	"math"
	"strings"

	"agentscan/internal/domain"
	"agentscan/internal/solana"
)

// Known DEX program IDs.
const (
	JupiterV6   = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	JupiterV4   = "JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB"
	RaydiumAMM  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCLMM = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	PumpFun     = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	Orca        = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
)

// dexProgram pairs a program ID with its normalized name. Scan order is
// fixed so that the same transaction always resolves to the same DEX.
type dexProgram struct {
	id   string
	name string
}

var dexPrograms = []dexProgram{
	{JupiterV6, "JUPITER_V6"},
	{JupiterV4, "JUPITER_V4"},
	{RaydiumAMM, "RAYDIUM_AMM"},
	{RaydiumCLMM, "RAYDIUM_CLMM"},
	{PumpFun, "PUMP_FUN"},
	{Orca, "ORCA"},
}

// Decoding thresholds.
const (
	// minTokenDelta filters rounding noise in token balance deltas.
	minTokenDelta = 1e-6
	// minNativeDelta separates swap legs from fee-only lamport movement.
	minNativeDelta = 0.001

	lamportsPerSOL = 1e9
)

// tokenDelta is a wallet-owned mint whose balance changed in the tx.
type tokenDelta struct {
	mint  string
	delta float64 // UI units, positive = received
}

// Decode returns the normalized Trade for a swap transaction, or nil when
// the transaction is not a recognizable swap by this wallet. It is a pure
// function of its inputs.
func Decode(tx *solana.ParsedTx, wallet string) *domain.Trade {
	if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
		return nil
	}

	dexName := matchProgram(tx.AccountKeys)
	if dexName == "" {
		return nil // not a swap
	}

	deltas := tokenDeltas(tx.Meta, wallet)
	nativeDelta := nativeDelta(tx, wallet)

	type leg struct {
		mint   string
		symbol string
		amount float64
	}
	var in, out leg

	switch {
	case nativeDelta < -minNativeDelta:
		// Native spent: bought a token with SOL
		in = leg{domain.WrappedSOLMint, domain.NativeSymbol, math.Abs(nativeDelta)}
		if recv := dominant(deltas, true); recv != nil {
			out = leg{recv.mint, fallbackSymbol(recv.mint), recv.delta}
		}
	case nativeDelta > minNativeDelta:
		// Native received: sold a token for SOL
		out = leg{domain.WrappedSOLMint, domain.NativeSymbol, nativeDelta}
		if spent := dominant(deltas, false); spent != nil {
			in = leg{spent.mint, fallbackSymbol(spent.mint), math.Abs(spent.delta)}
		}
	default:
		// Token-to-token swap
		spent := dominant(deltas, false)
		recv := dominant(deltas, true)
		if spent != nil && recv != nil {
			in = leg{spent.mint, fallbackSymbol(spent.mint), math.Abs(spent.delta)}
			out = leg{recv.mint, fallbackSymbol(recv.mint), recv.delta}
		}
	}

	if in.amount == 0 || out.amount == 0 {
		return nil
	}

	return &domain.Trade{
		Signature:      tx.Signature,
		Wallet:         wallet,
		Timestamp:      tx.BlockTime,
		TokenInSymbol:  in.symbol,
		TokenInMint:    in.mint,
		TokenOutSymbol: out.symbol,
		TokenOutMint:   out.mint,
		AmountIn:       in.amount,
		AmountOut:      out.amount,
		DEX:            dexName,
	}
}

// matchProgram returns the normalized name of the first known DEX program
// present in the account keys, or "" when none matches.
func matchProgram(accountKeys []string) string {
	keys := make(map[string]bool, len(accountKeys))
	for _, k := range accountKeys {
		keys[k] = true
	}
	for _, p := range dexPrograms {
		if keys[p.id] {
			return strings.ReplaceAll(strings.ToLower(p.name), "_", "-")
		}
	}
	return ""
}

// tokenDeltas computes the wallet's per-mint balance changes, including
// mints fully sold (present only pre) and newly held (present only post).
func tokenDeltas(meta *solana.TxMeta, wallet string) []tokenDelta {
	var deltas []tokenDelta

	for _, post := range meta.PostTokenBalances {
		if post.Owner != wallet {
			continue
		}
		var preAmount float64
		for _, pre := range meta.PreTokenBalances {
			if pre.Mint == post.Mint && pre.Owner == wallet {
				if pre.UITokenAmt.UIAmount != nil {
					preAmount = *pre.UITokenAmt.UIAmount
				}
				break
			}
		}
		var postAmount float64
		if post.UITokenAmt.UIAmount != nil {
			postAmount = *post.UITokenAmt.UIAmount
		}
		if d := postAmount - preAmount; math.Abs(d) > minTokenDelta {
			deltas = append(deltas, tokenDelta{mint: post.Mint, delta: d})
		}
	}

	for _, pre := range meta.PreTokenBalances {
		if pre.Owner != wallet || pre.UITokenAmt.UIAmount == nil || *pre.UITokenAmt.UIAmount == 0 {
			continue
		}
		inPost := false
		for _, post := range meta.PostTokenBalances {
			if post.Mint == pre.Mint && post.Owner == wallet {
				inPost = true
				break
			}
		}
		if !inPost {
			deltas = append(deltas, tokenDelta{mint: pre.Mint, delta: -*pre.UITokenAmt.UIAmount})
		}
	}

	return deltas
}

// nativeDelta computes the wallet's lamport balance change in whole SOL.
func nativeDelta(tx *solana.ParsedTx, wallet string) float64 {
	idx := -1
	for i, key := range tx.AccountKeys {
		if key == wallet {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(tx.Meta.PreBalances) || idx >= len(tx.Meta.PostBalances) {
		return 0
	}
	return (float64(tx.Meta.PostBalances[idx]) - float64(tx.Meta.PreBalances[idx])) / lamportsPerSOL
}

// dominant picks the delta with the largest absolute value among positive
// (received) or negative (spent) candidates. Aggregator swaps fan out
// through intermediate pools; the dominant leg is the one the wallet
// actually traded.
func dominant(deltas []tokenDelta, positive bool) *tokenDelta {
	var best *tokenDelta
	for i := range deltas {
		d := &deltas[i]
		if positive && d.delta <= 0 || !positive && d.delta >= 0 {
			continue
		}
		if best == nil || math.Abs(d.delta) > math.Abs(best.delta) {
			best = d
		}
	}
	return best
}

// fallbackSymbol derives a display symbol from a mint when no metadata is
// available.
func fallbackSymbol(mint string) string {
	if len(mint) > 6 {
		return mint[:6]
	}
	return mint
}
