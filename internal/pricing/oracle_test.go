package pricing

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"agentscan/internal/domain"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestPriceUSD_Native(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"solana":{"usd":182.44}}`))
	}))
	defer srv.Close()

	c := NewClient(discardLogger(), WithCoinGeckoURL(srv.URL))

	got := c.PriceUSD(context.Background(), domain.NativeSymbol)
	if got != 182.44 {
		t.Errorf("expected 182.44, got %f", got)
	}

	// The wrapped mint resolves the same way.
	got = c.PriceUSD(context.Background(), domain.WrappedSOLMint)
	if got != 182.44 {
		t.Errorf("expected 182.44 for wrapped mint, got %f", got)
	}
}

func TestPriceUSD_NativeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(discardLogger(), WithCoinGeckoURL(srv.URL))

	if got := c.PriceUSD(context.Background(), domain.NativeSymbol); got != SOLFallbackPrice {
		t.Errorf("expected fallback %f, got %f", SOLFallbackPrice, got)
	}
}

func TestPriceUSD_Stablecoins(t *testing.T) {
	// No server: stables never hit the network.
	c := NewClient(discardLogger(), WithCoinGeckoURL("http://127.0.0.1:0"), WithJupiterURL("http://127.0.0.1:0"))

	usdc := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	usdt := "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	if got := c.PriceUSD(context.Background(), usdc); got != 1.0 {
		t.Errorf("expected 1.0 for USDC, got %f", got)
	}
	if got := c.PriceUSD(context.Background(), usdt); got != 1.0 {
		t.Errorf("expected 1.0 for USDT, got %f", got)
	}
}

func TestPriceUSD_Token(t *testing.T) {
	mint := "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != mint {
			t.Errorf("expected ids=%s, got %s", mint, got)
		}
		// v2 returns the price as a string.
		w.Write([]byte(`{"data":{"` + mint + `":{"price":"0.00002145"}}}`))
	}))
	defer srv.Close()

	c := NewClient(discardLogger(), WithJupiterURL(srv.URL))

	if got := c.PriceUSD(context.Background(), mint); got != 0.00002145 {
		t.Errorf("expected 0.00002145, got %f", got)
	}
}

func TestPriceUSD_TokenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(discardLogger(), WithJupiterURL(srv.URL))

	if got := c.PriceUSD(context.Background(), "unknown-mint"); got != 0 {
		t.Errorf("expected 0 for unknown mint, got %f", got)
	}
}

func TestPriceUSD_TokenProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(discardLogger(), WithJupiterURL(srv.URL))

	if got := c.PriceUSD(context.Background(), "some-mint"); got != 0 {
		t.Errorf("expected 0 when provider is down, got %f", got)
	}
}

func TestMemo_SingleLookupPerMint(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"solana":{"usd":170}}`))
	}))
	defer srv.Close()

	memo := NewMemo(NewClient(discardLogger(), WithCoinGeckoURL(srv.URL)))

	for i := 0; i < 5; i++ {
		if got := memo.PriceUSD(context.Background(), domain.NativeSymbol); got != 170 {
			t.Fatalf("expected 170, got %f", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 provider call, got %d", n)
	}
}
