package domain

// Native token constants.
const (
	// NativeSymbol is the display symbol used for the chain's base unit.
	NativeSymbol = "SOL"
	// WrappedSOLMint is the wrapped SOL mint address.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// Trade is one decoded DEX swap, normalized to UI units.
// Created once by the decoder and never mutated; re-ingestion is
// idempotent on (Wallet, Signature).
type Trade struct {
	Signature      string  `json:"signature"`
	Wallet         string  `json:"wallet"`
	Timestamp      int64   `json:"timestamp"` // block time, seconds since epoch
	TokenInSymbol  string  `json:"token_in_symbol"`
	TokenInMint    string  `json:"token_in_mint"`
	TokenOutSymbol string  `json:"token_out_symbol"`
	TokenOutMint   string  `json:"token_out_mint"`
	AmountIn       float64 `json:"amount_in"`
	AmountOut      float64 `json:"amount_out"`
	DEX            string  `json:"dex"`
}

// NativeIn reports whether the input leg is the native token.
func (t *Trade) NativeIn() bool {
	return t.TokenInSymbol == NativeSymbol || t.TokenInMint == WrappedSOLMint
}

// NativeOut reports whether the output leg is the native token.
func (t *Trade) NativeOut() bool {
	return t.TokenOutSymbol == NativeSymbol || t.TokenOutMint == WrappedSOLMint
}
