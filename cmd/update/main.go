// Package main runs a single leaderboard build cycle and exits. Useful
// for cron-driven deployments and backfills.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agentscan/internal/leaderboard"
	"agentscan/internal/pricing"
	"agentscan/internal/solana"
	"agentscan/internal/storage/migrations"
	pgstore "agentscan/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("RPC_URL"), "Solana RPC HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	timeout := flag.Duration("timeout", 30*time.Minute, "Abort the cycle after this long")
	flag.Parse()

	logger := log.New(os.Stdout, "[update] ", log.LstdFlags)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling cycle...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	builder := leaderboard.New(leaderboard.Options{
		AgentStore:    pgstore.NewAgentStore(pool),
		TradeStore:    pgstore.NewTradeStore(pool),
		SnapshotStore: pgstore.NewSnapshotStore(pool),
		RPC:           solana.NewHTTPClient(*rpcEndpoint),
		Oracle:        pricing.NewClient(log.New(os.Stdout, "[pricing] ", log.LstdFlags)),
		Logger:        logger,
	})

	started := time.Now()
	if err := builder.RunCycle(ctx); err != nil {
		logger.Fatalf("Cycle failed: %v", err)
	}
	logger.Printf("Cycle complete in %s", time.Since(started).Round(time.Second))
}
