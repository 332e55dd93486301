package paypalwebhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeDedupStore struct {
	keys    map[string]bool
	deleted []string
}

func (f *fakeDedupStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeDedupStore) WebhookEventKey(provider, eventID string) string {
	return "sb:webhook:" + provider + ":" + eventID
}

func (f *fakeDedupStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func TestIdempotencyGuardKeysPerProviderEvent(t *testing.T) {
	store := &fakeDedupStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "paypal")
	require.NoError(t, err)

	dup, err := guard.CheckAndMark(context.Background(), "WH-1")
	require.NoError(t, err)
	require.False(t, dup)
	require.True(t, store.keys["sb:webhook:paypal:WH-1"])

	dup, err = guard.CheckAndMark(context.Background(), "WH-1")
	require.NoError(t, err)
	require.True(t, dup)

	require.NoError(t, guard.Delete(context.Background(), "WH-1"))
	require.Equal(t, []string{"sb:webhook:paypal:WH-1"}, store.deleted)

	dup, err = guard.CheckAndMark(context.Background(), "WH-1")
	require.NoError(t, err)
	require.False(t, dup)
}

func TestIdempotencyGuardRequiresEventID(t *testing.T) {
	guard, err := NewIdempotencyGuard(&fakeDedupStore{}, time.Hour, "paypal")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "")
	require.Error(t, err)
	require.Error(t, guard.Delete(context.Background(), ""))
}
