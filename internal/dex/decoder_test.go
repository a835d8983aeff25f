package dex

import (
	"math"
	"reflect"
	"testing"

	"agentscan/internal/domain"
	"agentscan/internal/solana"
)

const (
	testWallet = "EARNsm7JPDHeYmmKkEYrzBVYkXot3tdiQW2Q2zWsiTZQ"
	testMint   = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	otherMint  = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
)

func ptr(f float64) *float64 { return &f }

// buyTx is a SOL -> token swap through Jupiter v6.
func buyTx() *solana.ParsedTx {
	return &solana.ParsedTx{
		Signature:   "sig-buy-1",
		BlockTime:   1700000000,
		AccountKeys: []string{testWallet, JupiterV6, "pool111111111111111111111111111111111111111"},
		Meta: &solana.TxMeta{
			PreBalances:  []uint64{5_000_000_000, 0, 0},
			PostBalances: []uint64{3_995_000_000, 0, 0},
			PostTokenBalances: []solana.TokenBalance{
				{Mint: testMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(100.0)}},
			},
		},
	}
}

func TestDecode_NativeBuy(t *testing.T) {
	trade := Decode(buyTx(), testWallet)
	if trade == nil {
		t.Fatal("expected trade, got nil")
	}

	if trade.TokenInSymbol != domain.NativeSymbol {
		t.Errorf("token_in symbol: got %q, want SOL", trade.TokenInSymbol)
	}
	if trade.TokenInMint != domain.WrappedSOLMint {
		t.Errorf("token_in mint: got %q", trade.TokenInMint)
	}
	if math.Abs(trade.AmountIn-1.005) > 1e-9 {
		t.Errorf("amount_in: got %f, want 1.005", trade.AmountIn)
	}
	if trade.TokenOutMint != testMint || trade.AmountOut != 100.0 {
		t.Errorf("token_out: got %q/%f", trade.TokenOutMint, trade.AmountOut)
	}
	if trade.TokenOutSymbol != testMint[:6] {
		t.Errorf("token_out symbol: got %q, want mint prefix", trade.TokenOutSymbol)
	}
	if trade.DEX != "jupiter-v6" {
		t.Errorf("dex: got %q, want jupiter-v6", trade.DEX)
	}
	if trade.Timestamp != 1700000000 {
		t.Errorf("timestamp: got %d", trade.Timestamp)
	}
}

func TestDecode_NativeSellFullExit(t *testing.T) {
	// Token fully sold: present in pre balances only.
	tx := &solana.ParsedTx{
		Signature:   "sig-sell-1",
		BlockTime:   1700000100,
		AccountKeys: []string{testWallet, RaydiumAMM},
		Meta: &solana.TxMeta{
			PreBalances:  []uint64{1_000_000_000, 0},
			PostBalances: []uint64{3_500_000_000, 0},
			PreTokenBalances: []solana.TokenBalance{
				{Mint: testMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(500.0)}},
			},
		},
	}

	trade := Decode(tx, testWallet)
	if trade == nil {
		t.Fatal("expected trade, got nil")
	}
	if !trade.NativeOut() {
		t.Error("expected native out leg")
	}
	if trade.AmountOut != 2.5 {
		t.Errorf("amount_out: got %f, want 2.5", trade.AmountOut)
	}
	if trade.TokenInMint != testMint || trade.AmountIn != 500.0 {
		t.Errorf("token_in: got %q/%f", trade.TokenInMint, trade.AmountIn)
	}
	if trade.DEX != "raydium-amm" {
		t.Errorf("dex: got %q", trade.DEX)
	}
}

func TestDecode_TokenToToken(t *testing.T) {
	tx := &solana.ParsedTx{
		Signature:   "sig-swap-1",
		BlockTime:   1700000200,
		AccountKeys: []string{testWallet, Orca},
		Meta: &solana.TxMeta{
			PreBalances:  []uint64{1_000_000_000, 0},
			PostBalances: []uint64{999_995_000, 0}, // fee only, below threshold
			PreTokenBalances: []solana.TokenBalance{
				{Mint: testMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(200.0)}},
				{Mint: otherMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(1.0)}},
			},
			PostTokenBalances: []solana.TokenBalance{
				{Mint: testMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(50.0)}},
				{Mint: otherMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(31.0)}},
			},
		},
	}

	trade := Decode(tx, testWallet)
	if trade == nil {
		t.Fatal("expected trade, got nil")
	}
	if trade.TokenInMint != testMint || trade.AmountIn != 150.0 {
		t.Errorf("token_in: got %q/%f", trade.TokenInMint, trade.AmountIn)
	}
	if trade.TokenOutMint != otherMint || trade.AmountOut != 30.0 {
		t.Errorf("token_out: got %q/%f", trade.TokenOutMint, trade.AmountOut)
	}
	if trade.DEX != "orca" {
		t.Errorf("dex: got %q", trade.DEX)
	}
}

func TestDecode_DominantLeg(t *testing.T) {
	// Aggregator fan-out: two positive deltas, the larger one is the real
	// output leg regardless of balance-list order.
	tx := buyTx()
	tx.Meta.PostTokenBalances = []solana.TokenBalance{
		{Mint: otherMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(0.5)}},
		{Mint: testMint, Owner: testWallet, UITokenAmt: solana.UITokenAmount{UIAmount: ptr(100.0)}},
	}

	trade := Decode(tx, testWallet)
	if trade == nil {
		t.Fatal("expected trade, got nil")
	}
	if trade.TokenOutMint != testMint {
		t.Errorf("expected dominant leg %q, got %q", testMint, trade.TokenOutMint)
	}
}

func TestDecode_RejectsNonSwap(t *testing.T) {
	tx := buyTx()
	tx.AccountKeys = []string{testWallet, "11111111111111111111111111111111"}
	if trade := Decode(tx, testWallet); trade != nil {
		t.Errorf("expected nil for non-DEX transaction, got %+v", trade)
	}
}

func TestDecode_RejectsFailedTx(t *testing.T) {
	tx := buyTx()
	tx.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	if trade := Decode(tx, testWallet); trade != nil {
		t.Error("expected nil for failed transaction")
	}
}

func TestDecode_RejectsZeroLeg(t *testing.T) {
	// SOL spent but nothing received.
	tx := buyTx()
	tx.Meta.PostTokenBalances = nil
	if trade := Decode(tx, testWallet); trade != nil {
		t.Error("expected nil when a leg has zero amount")
	}
}

func TestDecode_OtherWalletBalancesIgnored(t *testing.T) {
	tx := buyTx()
	tx.Meta.PostTokenBalances = append(tx.Meta.PostTokenBalances,
		solana.TokenBalance{Mint: otherMint, Owner: "someone-else", UITokenAmt: solana.UITokenAmount{UIAmount: ptr(9999.0)}},
	)

	trade := Decode(tx, testWallet)
	if trade == nil {
		t.Fatal("expected trade, got nil")
	}
	if trade.TokenOutMint != testMint {
		t.Errorf("counterparty balance leaked into decode: %q", trade.TokenOutMint)
	}
}

func TestDecode_Deterministic(t *testing.T) {
	a := Decode(buyTx(), testWallet)
	b := Decode(buyTx(), testWallet)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("decode not deterministic: %+v vs %+v", a, b)
	}
}

func TestMatchProgram_Normalization(t *testing.T) {
	cases := map[string]string{
		JupiterV6:   "jupiter-v6",
		JupiterV4:   "jupiter-v4",
		RaydiumAMM:  "raydium-amm",
		RaydiumCLMM: "raydium-clmm",
		PumpFun:     "pump-fun",
		Orca:        "orca",
	}
	for id, want := range cases {
		if got := matchProgram([]string{"somekey", id}); got != want {
			t.Errorf("matchProgram(%s): got %q, want %q", id, got, want)
		}
	}
	if got := matchProgram([]string{"somekey"}); got != "" {
		t.Errorf("matchProgram without DEX: got %q, want empty", got)
	}
}
