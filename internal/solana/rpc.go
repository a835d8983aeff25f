package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface the pipeline consumes.
type RPCClient interface {
	// GetSignaturesForAddress retrieves up to limit signatures for an
	// address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureRef, error)

	// GetParsedTransaction retrieves a transaction by signature with
	// jsonParsed encoding. Returns nil when the transaction is not found.
	GetParsedTransaction(ctx context.Context, signature string) (*ParsedTx, error)
}
