package backend

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-worker/internal/model"
)

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	b := NewRedisBackend(&redis.Options{Addr: mr.Addr()}, time.Hour)
	defer b.Close()

	result, err := b.GetResult(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, result.Status)
	assert.False(t, result.Ready())

	require.NoError(t, b.SetResult(ctx, &model.Result{
		ID:       "abc",
		Status:   model.StatusSuccess,
		Children: []any{},
	}))

	raw, err := mr.Get(Key("abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_id":"abc","status":"SUCCESS","result":null,"traceback":null,"children":[]}`, raw)
	assert.Equal(t, time.Hour, mr.TTL(Key("abc")))

	result, err = b.GetResult(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.True(t, result.Ready())
}

func TestRedisBackendCorruptResult(t *testing.T) {
	mr := miniredis.RunT(t)
	b := NewRedisBackend(&redis.Options{Addr: mr.Addr()}, DefaultExpires)
	defer b.Close()

	require.NoError(t, mr.Set(Key("bad"), "{"))
	_, err := b.GetResult(context.Background(), "bad")
	assert.Error(t, err)
}

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	result, err := b.GetResult(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, result.Status)

	require.NoError(t, b.SetResult(ctx, &model.Result{ID: "x", Status: model.StatusStarted}))
	require.NoError(t, b.SetResult(ctx, &model.Result{ID: "x", Status: model.StatusFailure}))

	result, err = b.GetResult(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailure, result.Status)
}
