// Package tokens resolves mint addresses to display symbols using a token
// metadata endpoint. Resolution is best-effort enrichment: callers keep
// their mint-prefix fallback symbols when the endpoint has no answer.
package tokens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"agentscan/internal/domain"
)

const resolverTimeout = 10 * time.Second

// Resolver fetches token symbols and caches them by mint.
type Resolver struct {
	endpoint string
	client   *http.Client
	cache    Cache
	logger   *log.Logger
}

// NewResolver creates a symbol resolver. The endpoint is a Helius-style
// token-metadata URL (API key included in the query string).
func NewResolver(endpoint string, cache Cache, logger *log.Logger) *Resolver {
	return &Resolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: resolverTimeout},
		cache:    cache,
		logger:   logger,
	}
}

// metadataRequest is the token-metadata POST body.
type metadataRequest struct {
	MintAccounts []string `json:"mintAccounts"`
}

// metadataResponse mirrors the slice shape of the metadata endpoint.
type metadataResponse []struct {
	OnChainMetadata struct {
		Metadata struct {
			Data struct {
				Symbol string `json:"symbol"`
			} `json:"data"`
		} `json:"metadata"`
	} `json:"onChainMetadata"`
}

// Symbol returns the display symbol for a mint and whether one was found.
// The native mint always resolves without a network call.
func (r *Resolver) Symbol(ctx context.Context, mint string) (string, bool) {
	if mint == domain.WrappedSOLMint {
		return domain.NativeSymbol, true
	}

	if s, ok := r.cache.Get(ctx, mint); ok {
		return s, s != ""
	}

	symbol, err := r.fetch(ctx, mint)
	if err != nil {
		r.logger.Printf("symbol lookup failed for %s: %v", mint, err)
		return "", false
	}

	// Cache negative results too so unknown mints are asked once.
	r.cache.Put(ctx, mint, symbol)
	return symbol, symbol != ""
}

func (r *Resolver) fetch(ctx context.Context, mint string) (string, error) {
	body, err := json.Marshal(metadataRequest{MintAccounts: []string{mint}})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed metadataResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", err
	}
	if len(parsed) == 0 {
		return "", nil
	}
	return parsed[0].OnChainMetadata.Metadata.Data.Symbol, nil
}

// Enrich upgrades a trade's fallback symbols in place when the resolver
// knows better ones. Native legs are left untouched.
func (r *Resolver) Enrich(ctx context.Context, trade *domain.Trade) {
	if trade.TokenInSymbol != domain.NativeSymbol {
		if s, ok := r.Symbol(ctx, trade.TokenInMint); ok {
			trade.TokenInSymbol = s
		}
	}
	if trade.TokenOutSymbol != domain.NativeSymbol {
		if s, ok := r.Symbol(ctx, trade.TokenOutMint); ok {
			trade.TokenOutSymbol = s
		}
	}
}
