// Package main runs the agentscan service: the hourly leaderboard
// builder plus the public JSON API.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"agentscan/internal/httpapi"
	"agentscan/internal/leaderboard"
	"agentscan/internal/pricing"
	"agentscan/internal/solana"
	"agentscan/internal/storage"
	"agentscan/internal/storage/memory"
	"agentscan/internal/storage/migrations"
	pgstore "agentscan/internal/storage/postgres"
	"agentscan/internal/tokens"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	port := flag.String("port", envOr("PORT", "3002"), "HTTP listen port")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("RPC_URL"), "Solana RPC HTTP endpoint")
	adminKey := flag.String("admin-key", os.Getenv("ADMIN_KEY"), "Key for the x-admin-key header (empty disables admin endpoints)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis URL for the token symbol cache (optional)")
	metadataEndpoint := flag.String("metadata-endpoint", os.Getenv("METADATA_URL"), "Token metadata endpoint for symbol enrichment (optional)")
	updateInterval := flag.Duration("update-interval", envDurationOr("UPDATE_INTERVAL", time.Hour), "Leaderboard rebuild interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	oracle := pricing.NewClient(log.New(os.Stdout, "[pricing] ", log.LstdFlags))

	var resolver *tokens.Resolver
	if *metadataEndpoint != "" {
		cache, err := createSymbolCache(ctx, *redisURL, logger)
		if err != nil {
			logger.Fatalf("Failed to create symbol cache: %v", err)
		}
		resolver = tokens.NewResolver(*metadataEndpoint, cache, log.New(os.Stdout, "[tokens] ", log.LstdFlags))
	}

	builder := leaderboard.New(leaderboard.Options{
		AgentStore:    stores.agents,
		TradeStore:    stores.trades,
		SnapshotStore: stores.snapshots,
		RPC:           rpc,
		Oracle:        oracle,
		Resolver:      resolver,
		Logger:        log.New(os.Stdout, "[builder] ", log.LstdFlags),
	})

	scheduler := leaderboard.NewScheduler(builder, *updateInterval, log.New(os.Stdout, "[scheduler] ", log.LstdFlags))
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	api := httpapi.NewServer(httpapi.Options{
		AgentStore:    stores.agents,
		TradeStore:    stores.trades,
		SnapshotStore: stores.snapshots,
		Runner:        builder,
		AdminKey:      *adminKey,
		Logger:        log.New(os.Stdout, "[api] ", log.LstdFlags),
	})

	httpServer := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		// Second signal forces immediate exit
		go func() {
			sig := <-sigCh
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		}()
	}()

	logger.Printf("Listening on :%s (update interval %s)", *port, *updateInterval)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// appStores holds the storage implementations the service runs on.
type appStores struct {
	agents    storage.AgentStore
	trades    storage.TradeStore
	snapshots storage.SnapshotStore
}

// createStores wires either the in-memory or the PostgreSQL storage
// backend and runs migrations for the latter.
func createStores(ctx context.Context, dsn string, useMemory bool) (*appStores, func(), error) {
	if useMemory {
		return &appStores{
			agents:    memory.NewAgentStore(),
			trades:    memory.NewTradeStore(),
			snapshots: memory.NewSnapshotStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return &appStores{
		agents:    pgstore.NewAgentStore(pool),
		trades:    pgstore.NewTradeStore(pool),
		snapshots: pgstore.NewSnapshotStore(pool),
	}, pool.Close, nil
}

// createSymbolCache returns the Redis-backed symbol cache when a URL is
// configured, the in-process one otherwise.
func createSymbolCache(ctx context.Context, redisURL string, logger *log.Logger) (tokens.Cache, error) {
	if redisURL == "" {
		return tokens.NewMemoryCache(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logger.Printf("Using Redis symbol cache at %s", opts.Addr)
	return tokens.NewRedisCache(client), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
