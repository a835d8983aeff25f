// Package pricing resolves token mints to USD prices using external
// providers. Failures degrade to defined fallback values instead of
// surfacing as errors: a missing price contributes 0 downstream.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"agentscan/internal/domain"
	"agentscan/internal/observability"
)

// Default provider endpoints.
const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	DefaultJupiterURL   = "https://api.jup.ag/price/v2"

	// SOLFallbackPrice is used when the native price provider is down.
	SOLFallbackPrice = 170.0

	defaultTimeout = 10 * time.Second
)

// Stablecoin mint prefixes (USDC, USDT) priced at exactly $1.
var stablePrefixes = []string{"EPjFWdd", "Es9vMF"}

// Oracle resolves a mint to a non-negative USD price.
type Oracle interface {
	PriceUSD(ctx context.Context, mint string) float64
}

// Client is an Oracle backed by CoinGecko (native token) and the Jupiter
// price API (everything else).
type Client struct {
	client       *http.Client
	coingeckoURL string
	jupiterURL   string
	logger       *log.Logger
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Client) { o.client = c }
}

// WithCoinGeckoURL overrides the native-token price endpoint.
func WithCoinGeckoURL(url string) Option {
	return func(o *Client) { o.coingeckoURL = url }
}

// WithJupiterURL overrides the aggregator price endpoint.
func WithJupiterURL(url string) Option {
	return func(o *Client) { o.jupiterURL = url }
}

// NewClient creates a price oracle client.
func NewClient(logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{Timeout: defaultTimeout},
		coingeckoURL: DefaultCoinGeckoURL,
		jupiterURL:   DefaultJupiterURL,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PriceUSD resolves a mint to a USD price. The native token falls back to
// a hard-coded price when the provider fails; unknown tokens yield 0.
func (c *Client) PriceUSD(ctx context.Context, mint string) float64 {
	if mint == domain.NativeSymbol || mint == domain.WrappedSOLMint {
		return c.nativePrice(ctx)
	}

	for _, prefix := range stablePrefixes {
		if strings.HasPrefix(mint, prefix) {
			return 1.0
		}
	}

	return c.tokenPrice(ctx, mint)
}

// nativePrice fetches the SOL/USD price from CoinGecko.
func (c *Client) nativePrice(ctx context.Context) float64 {
	body, err := c.get(ctx, c.coingeckoURL)
	if err != nil {
		c.logger.Printf("native price fetch failed, using fallback: %v", err)
		observability.RecordPriceLookup("coingecko", "fallback")
		return SOLFallbackPrice
	}

	var resp struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Solana.USD == 0 {
		observability.RecordPriceLookup("coingecko", "fallback")
		return SOLFallbackPrice
	}

	observability.RecordPriceLookup("coingecko", "ok")
	return resp.Solana.USD
}

// tokenPrice fetches a token price from the Jupiter price API. Missing or
// errored responses yield 0.
func (c *Client) tokenPrice(ctx context.Context, mint string) float64 {
	body, err := c.get(ctx, fmt.Sprintf("%s?ids=%s", c.jupiterURL, mint))
	if err != nil {
		c.logger.Printf("token price fetch failed for %s: %v", mint, err)
		observability.RecordPriceLookup("jupiter", "error")
		return 0
	}

	// The price field arrives as a string in v2, a number in older
	// versions; json.Number accepts both.
	var resp struct {
		Data map[string]struct {
			Price json.Number `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		observability.RecordPriceLookup("jupiter", "error")
		return 0
	}

	point, ok := resp.Data[mint]
	if !ok {
		observability.RecordPriceLookup("jupiter", "missing")
		return 0
	}

	price, err := point.Price.Float64()
	if err != nil || price < 0 {
		observability.RecordPriceLookup("jupiter", "error")
		return 0
	}

	observability.RecordPriceLookup("jupiter", "ok")
	return price
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Memo wraps an Oracle with a per-cycle in-memory cache so the builder
// never looks the same mint up twice within one run. Not meant to be
// shared across cycles.
type Memo struct {
	next Oracle

	mu     sync.Mutex
	prices map[string]float64
}

// NewMemo creates a cycle-scoped memoizing oracle.
func NewMemo(next Oracle) *Memo {
	return &Memo{
		next:   next,
		prices: make(map[string]float64),
	}
}

// PriceUSD returns the memoized price, consulting the wrapped oracle once
// per mint.
func (m *Memo) PriceUSD(ctx context.Context, mint string) float64 {
	m.mu.Lock()
	if p, ok := m.prices[mint]; ok {
		m.mu.Unlock()
		return p
	}
	m.mu.Unlock()

	p := m.next.PriceUSD(ctx, mint)

	m.mu.Lock()
	m.prices[mint] = p
	m.mu.Unlock()
	return p
}
