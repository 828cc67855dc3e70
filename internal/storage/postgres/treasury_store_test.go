package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-launch-agent/internal/storage"
)

func TestTreasuryStore_LedgerRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTreasuryStore(pool)
	ctx := context.Background()

	_, err := store.GetLedger(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	state := &storage.LedgerState{
		TotalInvested: 2.5,
		TotalEarned:   0.75,
		UpdatedAt:     1700000000000,
	}
	require.NoError(t, store.SaveLedger(ctx, state))

	retrieved, err := store.GetLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.5, retrieved.TotalInvested)
	assert.Equal(t, 0.75, retrieved.TotalEarned)
	assert.Equal(t, int64(1700000000000), retrieved.UpdatedAt)
}

func TestTreasuryStore_SaveLedgerOverwrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTreasuryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.SaveLedger(ctx, &storage.LedgerState{
		TotalInvested: 1.0,
		TotalEarned:   0,
		UpdatedAt:     1700000000000,
	}))
	require.NoError(t, store.SaveLedger(ctx, &storage.LedgerState{
		TotalInvested: 1.5,
		TotalEarned:   0.25,
		UpdatedAt:     1700000001000,
	}))

	retrieved, err := store.GetLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.5, retrieved.TotalInvested)
	assert.Equal(t, 0.25, retrieved.TotalEarned)
}

func TestTreasuryStore_LastDeployment(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTreasuryStore(pool)
	ctx := context.Background()

	_, err := store.GetLastDeployment(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastDeployment(ctx, 1700000000000))

	ts, err := store.GetLastDeployment(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)

	// Upsert replaces the previous timestamp.
	require.NoError(t, store.SetLastDeployment(ctx, 1700000060000))

	ts, err = store.GetLastDeployment(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000060000), ts)
}

func TestTreasuryStore_WalletKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTreasuryStore(pool)
	ctx := context.Background()

	_, err := store.GetWalletKey(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetWalletKey(ctx, "encoded-keypair-material"))

	key, err := store.GetWalletKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "encoded-keypair-material", key)
}
