// Package httpapi exposes the leaderboard over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"agentscan/internal/domain"
	"agentscan/internal/leaderboard"
	"agentscan/internal/observability"
	"agentscan/internal/storage"
)

// Trade listing bounds.
const (
	defaultTradeLimit  = 50
	defaultRecentLimit = 20
	maxTradeLimit      = 100
)

// CycleRunner triggers a leaderboard rebuild on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Server handles the public and admin HTTP API.
type Server struct {
	agents    storage.AgentStore
	trades    storage.TradeStore
	snapshots storage.SnapshotStore
	runner    CycleRunner
	adminKey  string
	logger    *log.Logger
}

// Options for creating a Server.
type Options struct {
	AgentStore    storage.AgentStore
	TradeStore    storage.TradeStore
	SnapshotStore storage.SnapshotStore
	Runner        CycleRunner
	// AdminKey guards the admin endpoints. Empty disables them.
	AdminKey string
	Logger   *log.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	s := &Server{
		agents:    opts.AgentStore,
		trades:    opts.TradeStore,
		snapshots: opts.SnapshotStore,
		runner:    opts.Runner,
		adminKey:  opts.AdminKey,
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Router returns the configured HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/api/agents/verified", s.handleVerifiedAgents).Methods(http.MethodGet)
	r.HandleFunc("/api/agents/{wallet}", s.handleAgent).Methods(http.MethodGet)
	r.HandleFunc("/api/agents/{wallet}/trades", s.handleAgentTrades).Methods(http.MethodGet)
	r.HandleFunc("/api/trades/recent", s.handleRecentTrades).Methods(http.MethodGet)
	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/update", s.requireAdmin(s.handleUpdate)).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/delist/{wallet}", s.requireAdmin(s.handleDelist)).Methods(http.MethodPost)
	r.HandleFunc("/api/webhooks/helius", s.handleWebhook).Methods(http.MethodPost)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// leaderboardRow is one ranked row of the leaderboard response, with the
// PnL for the requested period surfaced as "pnl".
type leaderboardRow struct {
	Rank        int           `json:"rank"`
	Wallet      string        `json:"wallet"`
	Name        string        `json:"name"`
	Twitter     string        `json:"twitter,omitempty"`
	PnL         float64       `json:"pnl"`
	WinRate     float64       `json:"win_rate"`
	TotalTrades int           `json:"total_trades"`
	LastTrade   *domain.Trade `json:"last_trade,omitempty"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	switch period {
	case "24h", "7d", "all":
	case "":
		period = "24h"
	default:
		writeError(w, http.StatusBadRequest, "period must be one of 24h, 7d, all")
		return
	}

	snap, err := s.snapshots.Current(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{
			"period":      period,
			"updated":     "never",
			"leaderboard": []leaderboardRow{},
		})
		return
	}
	if err != nil {
		s.logger.Printf("read snapshot: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The snapshot is ranked by 24h PnL; other periods re-sort the same
	// entries without rebuilding.
	entries := make([]domain.LeaderboardEntry, len(snap.Entries))
	copy(entries, snap.Entries)
	if period != "24h" {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].PnL(period) > entries[j].PnL(period)
		})
	}

	rows := make([]leaderboardRow, len(entries))
	for i, e := range entries {
		rows[i] = leaderboardRow{
			Rank:        i + 1,
			Wallet:      e.Wallet,
			Name:        e.Name,
			Twitter:     e.Twitter,
			PnL:         e.PnL(period),
			WinRate:     e.WinRate,
			TotalTrades: e.TotalTrades,
			LastTrade:   e.LastTrade,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period":      period,
		"updated":     snap.UpdatedAt.UTC().Format(time.RFC3339),
		"leaderboard": rows,
	})
}

func (s *Server) handleVerifiedAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agents.ListVerified(r.Context())
	if err != nil {
		s.logger.Printf("list agents: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	wallets := make([]string, len(agents))
	for i, agent := range agents {
		wallets[i] = agent.Wallet
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": wallets})
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	agent, err := s.agents.GetByWallet(r.Context(), wallet)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		s.logger.Printf("get agent: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{"agent": agent}

	// Stats come from the published snapshot, not a live rebuild.
	if snap, err := s.snapshots.Current(r.Context()); err == nil {
		for i := range snap.Entries {
			if snap.Entries[i].Wallet == wallet {
				resp["stats"] = snap.Entries[i]
				break
			}
		}
	}

	trades, err := s.trades.Load(r.Context(), wallet)
	if err != nil {
		s.logger.Printf("load trades: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(trades) > defaultTradeLimit {
		trades = trades[:defaultTradeLimit]
	}
	if trades == nil {
		trades = []*domain.Trade{}
	}
	resp["trades"] = trades

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAgentTrades(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	if _, err := s.agents.GetByWallet(r.Context(), wallet); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.logger.Printf("get agent: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), defaultTradeLimit)

	trades, err := s.trades.Load(r.Context(), wallet)
	if err != nil {
		s.logger.Printf("load trades: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(trades) > limit {
		trades = trades[:limit]
	}
	if trades == nil {
		trades = []*domain.Trade{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"wallet": wallet, "trades": trades, "count": len(trades)})
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), defaultRecentLimit)

	agents, err := s.agents.ListVerified(r.Context())
	if err != nil {
		s.logger.Printf("list agents: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var all []*domain.Trade
	for _, agent := range agents {
		trades, err := s.trades.Load(r.Context(), agent.Wallet)
		if err != nil {
			s.logger.Printf("load trades for %s: %v", agent.Wallet, err)
			continue
		}
		all = append(all, trades...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Timestamp != all[j].Timestamp {
			return all[i].Timestamp > all[j].Timestamp
		}
		return all[i].Signature < all[j].Signature
	})
	if len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []*domain.Trade{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"trades": all, "count": len(all)})
}

type registerRequest struct {
	Wallet      string `json:"wallet_address"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Twitter     string `json:"twitter"`
	ProfileURL  string `json:"profile_url"`
	// Ownership signature, accepted but not verified.
	Signature string `json:"signature"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateRegistration(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	agent := &domain.Agent{
		Wallet:      req.Wallet,
		Name:        req.Name,
		Description: req.Description,
		Twitter:     req.Twitter,
		ProfileURL:  req.ProfileURL,
		VerifiedAt:  time.Now().UTC(),
	}

	err := s.agents.Register(r.Context(), agent)
	if errors.Is(err, storage.ErrDuplicateKey) {
		writeError(w, http.StatusConflict, "wallet already registered")
		return
	}
	if err != nil {
		s.logger.Printf("register agent: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Printf("registered agent %s (%s)", agent.Name, agent.Wallet)
	writeJSON(w, http.StatusCreated, map[string]any{"agent": agent})
}

// requireAdmin guards admin endpoints with the x-admin-key header.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" || r.Header.Get("x-admin-key") != s.adminKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// handleUpdate runs a build cycle synchronously so the caller observes
// the refreshed snapshot on return.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := s.runner.RunCycle(r.Context())
	switch {
	case errors.Is(err, leaderboard.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "update already in progress")
	case err != nil:
		s.logger.Printf("manual update failed: %v", err)
		writeError(w, http.StatusInternalServerError, "update failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"duration": time.Since(start).Round(time.Millisecond).String(),
		})
	}
}

func (s *Server) handleDelist(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	err := s.agents.Delist(r.Context(), wallet)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		s.logger.Printf("delist agent: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "delisted", "wallet": wallet})
}

// handleWebhook acknowledges provider push notifications. Ingestion
// stays poll-driven; the hook exists so providers keep the subscription
// alive.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	observability.RecordWebhook()
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// parseLimit parses a ?limit= value, clamping it to [1, maxTradeLimit].
// Missing or unparseable values fall back to the route's default.
func parseLimit(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if n < 1 {
		return 1
	}
	if n > maxTradeLimit {
		return maxTradeLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
