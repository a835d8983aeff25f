package solana

import "encoding/json"

// SignatureRef is one item from getSignaturesForAddress.
type SignatureRef struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// ParsedTx is a transaction payload with the metadata the swap decoder
// needs. Fields not used by the pipeline are dropped at the boundary.
type ParsedTx struct {
	Signature   string
	Slot        int64
	BlockTime   int64 // Unix timestamp (seconds)
	AccountKeys []string
	Meta        *TxMeta
}

// TxMeta contains transaction metadata.
type TxMeta struct {
	Err               interface{}
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is one pre/post token balance entry.
type TokenBalance struct {
	AccountIndex int           `json:"accountIndex"`
	Mint         string        `json:"mint"`
	Owner        string        `json:"owner"`
	UITokenAmt   UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount is the uiTokenAmount object of a token balance.
type UITokenAmount struct {
	UIAmount *float64 `json:"uiAmount"`
	Decimals int      `json:"decimals"`
	Amount   string   `json:"amount"`
}

// accountKey accepts both the plain-string form ("json" encoding) and the
// object form ("jsonParsed" encoding) of an account key.
type accountKey struct {
	Pubkey string
}

func (k *accountKey) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &k.Pubkey)
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	k.Pubkey = obj.Pubkey
	return nil
}
