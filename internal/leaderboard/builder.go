// Package leaderboard builds the ranked performance snapshot.
// One cycle walks every verified agent: fetch recent signatures, decode
// swaps, persist new trades, recompute stats, then publish the merged
// ranking atomically.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"agentscan/internal/dex"
	"agentscan/internal/domain"
	"agentscan/internal/observability"
	"agentscan/internal/pricing"
	"agentscan/internal/solana"
	"agentscan/internal/stats"
	"agentscan/internal/storage"
	"agentscan/internal/tokens"
)

// ErrAlreadyRunning is returned when a cycle is requested while another
// one is in flight. Callers treat it as "nothing to do".
var ErrAlreadyRunning = errors.New("leaderboard: build cycle already running")

// Cycle pacing defaults match public RPC rate limits.
const (
	defaultSignatureLimit = 50
	defaultPace           = 200 * time.Millisecond
	defaultRetryWait      = 2 * time.Second
)

// Builder produces leaderboard snapshots from on-chain activity.
type Builder struct {
	agents    storage.AgentStore
	trades    storage.TradeStore
	snapshots storage.SnapshotStore
	rpc       solana.RPCClient
	oracle    pricing.Oracle
	resolver  *tokens.Resolver // optional symbol enrichment
	logger    *log.Logger

	sigLimit  int
	pace      time.Duration
	retryWait time.Duration
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration)

	mu      sync.Mutex
	running bool
}

// Options for creating a Builder.
type Options struct {
	AgentStore    storage.AgentStore
	TradeStore    storage.TradeStore
	SnapshotStore storage.SnapshotStore
	RPC           solana.RPCClient
	Oracle        pricing.Oracle
	Resolver      *tokens.Resolver
	Logger        *log.Logger

	// SignatureLimit caps how many recent signatures are examined per
	// wallet each cycle. Zero means the default of 50.
	SignatureLimit int
	// Pace is the delay between transaction fetches. Zero means 200ms.
	Pace time.Duration
	// RetryWait is the back-off after a rate-limited fetch. Zero means 2s.
	RetryWait time.Duration
}

// New creates a Builder.
func New(opts Options) *Builder {
	b := &Builder{
		agents:    opts.AgentStore,
		trades:    opts.TradeStore,
		snapshots: opts.SnapshotStore,
		rpc:       opts.RPC,
		oracle:    opts.Oracle,
		resolver:  opts.Resolver,
		logger:    opts.Logger,
		sigLimit:  opts.SignatureLimit,
		pace:      opts.Pace,
		retryWait: opts.RetryWait,
		now:       time.Now,
		sleep:     sleepCtx,
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	if b.sigLimit <= 0 {
		b.sigLimit = defaultSignatureLimit
	}
	if b.pace <= 0 {
		b.pace = defaultPace
	}
	if b.retryWait <= 0 {
		b.retryWait = defaultRetryWait
	}
	return b
}

// RunCycle executes one full build cycle. Concurrent calls coalesce:
// only one cycle runs at a time and the losers get ErrAlreadyRunning.
func (b *Builder) RunCycle(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	b.running = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	started := b.now()
	err := b.runCycle(ctx)
	elapsed := b.now().Sub(started).Seconds()

	if err != nil {
		observability.RecordCycle("error", elapsed)
		return err
	}
	observability.RecordCycle("ok", elapsed)
	return nil
}

func (b *Builder) runCycle(ctx context.Context) error {
	// The agent list is frozen at cycle start; registrations landing
	// mid-cycle appear in the next one.
	agents, err := b.agents.ListVerified(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	b.logger.Printf("cycle start: %d agents", len(agents))

	// Previous snapshot backfills agents whose refresh fails this cycle.
	var previous map[string]domain.LeaderboardEntry
	if prev, err := b.snapshots.Current(ctx); err == nil {
		previous = make(map[string]domain.LeaderboardEntry, len(prev.Entries))
		for _, e := range prev.Entries {
			previous[e.Wallet] = e
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load previous snapshot: %w", err)
	}

	// One price memo per cycle: every wallet shares the same view of
	// prices so rankings are internally consistent.
	oracle := pricing.NewMemo(b.oracle)
	now := b.now()

	var entries []domain.LeaderboardEntry
	updated, skipped := 0, 0

	for _, agent := range agents {
		if err := ctx.Err(); err != nil {
			// Shutdown mid-cycle: drop the partial result, the old
			// snapshot stays published.
			return fmt.Errorf("cycle cancelled: %w", err)
		}

		entry, err := b.refreshAgent(ctx, agent, oracle, now)
		if err != nil {
			b.logger.Printf("agent %s refresh failed: %v", agent.Wallet, err)
			observability.DefaultMetrics.AgentsSkipped.Inc()
			skipped++
			if prev, ok := previous[agent.Wallet]; ok {
				entries = append(entries, prev)
			}
			continue
		}
		entries = append(entries, *entry)
		updated++
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PnL24h > entries[j].PnL24h
	})

	snap := &domain.Snapshot{Entries: entries, UpdatedAt: b.now()}
	if err := b.snapshots.Publish(ctx, snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	observability.DefaultMetrics.AgentsUpdated.Set(float64(updated))
	observability.DefaultMetrics.LastSuccessfulCycle.SetToCurrentTime()
	b.logger.Printf("cycle done: %d updated, %d skipped, %d ranked", updated, skipped, len(entries))
	return nil
}

// refreshAgent ingests an agent's recent activity and recomputes its
// leaderboard entry from the full stored history.
func (b *Builder) refreshAgent(ctx context.Context, agent *domain.Agent, oracle pricing.Oracle, now time.Time) (*domain.LeaderboardEntry, error) {
	fresh, err := b.ingestWallet(ctx, agent.Wallet)
	if err != nil {
		return nil, err
	}

	if len(fresh) > 0 {
		inserted, err := b.trades.UpsertTrades(ctx, agent.Wallet, fresh)
		if err != nil {
			return nil, fmt.Errorf("store trades: %w", err)
		}
		observability.RecordTradesStored(inserted)
	}

	history, err := b.trades.Load(ctx, agent.Wallet)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	summary := stats.Compute(ctx, history, oracle, now)
	entry := &domain.LeaderboardEntry{
		Wallet:      agent.Wallet,
		Name:        agent.Name,
		Twitter:     agent.Twitter,
		PnL24h:      summary.PnL24h,
		PnL7d:       summary.PnL7d,
		PnLAll:      summary.PnLAll,
		WinRate:     summary.WinRate,
		TotalTrades: summary.TotalTrades,
	}
	if len(history) > 0 {
		entry.LastTrade = history[0]
	}
	return entry, nil
}

// ingestWallet lists recent signatures and decodes the swaps among them.
// Individual transaction failures are tolerated: a rate-limited fetch
// waits once and moves on, anything else skips that signature. Listing
// failures and auth errors abort the whole wallet.
func (b *Builder) ingestWallet(ctx context.Context, wallet string) ([]*domain.Trade, error) {
	refs, err := b.rpc.GetSignaturesForAddress(ctx, wallet, b.sigLimit)
	if err != nil {
		observability.RecordRPCError("list_signatures")
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	observability.DefaultMetrics.SignaturesListed.Add(float64(len(refs)))

	var trades []*domain.Trade
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ref.Err != nil {
			continue // failed transaction, nothing to decode
		}

		tx, err := b.rpc.GetParsedTransaction(ctx, ref.Signature)
		switch {
		case errors.Is(err, solana.ErrUnauthorized):
			observability.RecordRPCError("unauthorized")
			return nil, fmt.Errorf("fetch %s: %w", ref.Signature, err)
		case errors.Is(err, solana.ErrRateLimited):
			observability.RecordRPCError("rate_limited")
			b.sleep(ctx, b.retryWait)
			continue
		case err != nil:
			observability.RecordRPCError("fetch")
			b.logger.Printf("fetch %s failed: %v", ref.Signature, err)
			continue
		case tx == nil:
			continue // not found or pruned by the node
		}
		observability.RecordTxFetched()

		if trade := dex.Decode(tx, wallet); trade != nil {
			if b.resolver != nil {
				b.resolver.Enrich(ctx, trade)
			}
			trades = append(trades, trade)
			observability.RecordTradeDecoded(trade.DEX)
		}

		b.sleep(ctx, b.pace)
	}
	return trades, nil
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
