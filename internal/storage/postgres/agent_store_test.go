package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscan/internal/domain"
	"agentscan/internal/storage"
)

func testAgent(wallet, name string) *domain.Agent {
	return &domain.Agent{
		Wallet:      wallet,
		Name:        name,
		Description: "automated trader",
		Twitter:     "@" + name,
		VerifiedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestAgentStore_RegisterAndGet(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAgentStore(pool)
	ctx := context.Background()

	agent := testAgent("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "alpha")
	require.NoError(t, store.Register(ctx, agent))

	got, err := store.GetByWallet(ctx, agent.Wallet)
	require.NoError(t, err)
	assert.Equal(t, agent.Wallet, got.Wallet)
	assert.Equal(t, agent.Name, got.Name)
	assert.Equal(t, agent.Twitter, got.Twitter)
	assert.WithinDuration(t, agent.VerifiedAt, got.VerifiedAt, time.Second)
}

func TestAgentStore_RegisterDuplicate(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAgentStore(pool)
	ctx := context.Background()

	agent := testAgent("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "alpha")
	require.NoError(t, store.Register(ctx, agent))

	err := store.Register(ctx, testAgent(agent.Wallet, "impostor"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAgentStore_GetUnknown(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAgentStore(pool)

	_, err := store.GetByWallet(context.Background(), "unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAgentStore_ListVerifiedOrdered(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAgentStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, testAgent("wallet-c", "charlie")))
	require.NoError(t, store.Register(ctx, testAgent("wallet-a", "alpha")))
	require.NoError(t, store.Register(ctx, testAgent("wallet-b", "bravo")))

	agents, err := store.ListVerified(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 3)
	assert.Equal(t, "alpha", agents[0].Name)
	assert.Equal(t, "bravo", agents[1].Name)
	assert.Equal(t, "charlie", agents[2].Name)
}

func TestAgentStore_Delist(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAgentStore(pool)
	ctx := context.Background()

	agent := testAgent("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "alpha")
	require.NoError(t, store.Register(ctx, agent))
	require.NoError(t, store.Delist(ctx, agent.Wallet))

	_, err := store.GetByWallet(ctx, agent.Wallet)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	agents, err := store.ListVerified(ctx)
	require.NoError(t, err)
	assert.Empty(t, agents)

	// The wallet stays reserved after delisting.
	err = store.Register(ctx, testAgent(agent.Wallet, "alpha-again"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAgentStore_DelistUnknown(t *testing.T) {
	pool := setupTestDB(t)

	store := NewAgentStore(pool)

	err := store.Delist(context.Background(), "unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
