package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type fakeRedis struct {
	keys       map[string]time.Duration
	setNXError error
	deleted    []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, _ any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.setNXError != nil {
		cmd.SetErr(f.setNXError)
		return cmd
	}
	if _, ok := f.keys[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.keys[key] = ttl
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestMemoryMarker(t *testing.T) {
	ctx := context.Background()
	marker := NewMemoryMarker()
	today := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	ok, err := marker.Acquire(ctx, domain.EventBirthday, today)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = marker.Acquire(ctx, domain.EventBirthday, today.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "same calendar day must be taken")

	ok, err = marker.Acquire(ctx, domain.EventStockLow, today)
	require.NoError(t, err)
	assert.True(t, ok, "other event types are independent")

	require.NoError(t, marker.Release(ctx, domain.EventBirthday, today))
	ok, err = marker.Acquire(ctx, domain.EventBirthday, today)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisMarker(t *testing.T) {
	ctx := context.Background()
	store := newFakeRedis()
	marker, err := NewRedisMarker(store, "", 0)
	require.NoError(t, err)

	today := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	ok, err := marker.Acquire(ctx, domain.EventAnniversary, today)
	require.NoError(t, err)
	assert.True(t, ok)

	key := "tpoints:scheduler:anniversary:2025-03-10"
	assert.Equal(t, 48*time.Hour, store.keys[key])

	ok, err = marker.Acquire(ctx, domain.EventAnniversary, today)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, marker.Release(ctx, domain.EventAnniversary, today))
	assert.Equal(t, []string{key}, store.deleted)
}

func TestRedisMarkerErrors(t *testing.T) {
	_, err := NewRedisMarker(nil, "", 0)
	require.Error(t, err)

	store := newFakeRedis()
	store.setNXError = errors.New("connection refused")
	marker, err := NewRedisMarker(store, "custom", time.Hour)
	require.NoError(t, err)

	_, err = marker.Acquire(context.Background(), domain.EventBirthday, time.Now())
	require.ErrorContains(t, err, "connection refused")
}
