package ratestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/ratestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LoadMissingKey(t *testing.T) {
	store := ratestore.NewMemoryStore()

	_, ok, err := store.Load(context.Background(), admission.NewClientKey("u1", "10.0.0.1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ReadYourWrites(t *testing.T) {
	store := ratestore.NewMemoryStore()
	key := admission.NewClientKey("u1", "10.0.0.1")
	now := time.Unix(1740730536, 0)

	require.NoError(t, store.Save(context.Background(), key, admission.NewRateWindowState(now)))

	state, ok, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []time.Time{now}, state.Timestamps)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	store := ratestore.NewMemoryStore()
	key := admission.NewClientKey("u1", "10.0.0.1")
	now := time.Unix(1740730536, 0)
	require.NoError(t, store.Save(context.Background(), key, admission.NewRateWindowState(now)))

	state, _, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	state.Record(now.Add(time.Second))

	again, _, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := ratestore.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, admission.NewClientKey("u1", "10.0.0.1"), admission.RateWindowState{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_EmptyStateRemovesKey(t *testing.T) {
	store := ratestore.NewMemoryStore()
	key := admission.NewClientKey("u1", "10.0.0.1")
	require.NoError(t, store.Save(context.Background(), key, admission.NewRateWindowState(time.Unix(1, 0))))

	require.NoError(t, store.Save(context.Background(), key, admission.RateWindowState{}))

	_, ok, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiringMemoryStore_EvictsIdleKeys(t *testing.T) {
	now := time.Unix(1740730536, 0)
	clock := func() time.Time { return now }
	store := ratestore.NewExpiringMemoryStore(time.Minute, clock)
	defer func() { _ = store.Close() }()
	key := admission.NewClientKey("u1", "10.0.0.1")

	require.NoError(t, store.Save(context.Background(), key, admission.NewRateWindowState(now)))

	now = now.Add(59 * time.Second)
	_, ok, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, err = store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}
