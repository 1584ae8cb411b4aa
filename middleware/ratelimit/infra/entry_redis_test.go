package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestbook-gateway/middleware/ratelimit/domain"
)

func TestRedisEntryStore_GetMissingKey(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisEntryStore(rdb, WithEntryPrefix("gb:rl"))

	mock.ExpectHGetAll("gb:rl:message:1.2.3.4").SetVal(map[string]string{})

	_, ok, err := store.Get(context.Background(), domain.NewKey("message", "1.2.3.4"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisEntryStore_GetParsesHash(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisEntryStore(rdb, WithEntryPrefix("gb:rl:"))

	mock.ExpectHGetAll("gb:rl:candle:9.9.9.9").SetVal(map[string]string{
		"count":    "5",
		"reset_at": "1760000060000",
	})

	e, ok, err := store.Get(context.Background(), "candle:9.9.9.9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, e.Count)
	assert.True(t, e.ResetAt.Equal(time.UnixMilli(1760000060000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisEntryStore_GetRejectsCorruptHash(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisEntryStore(rdb, WithEntryPrefix("gb:rl"))

	mock.ExpectHGetAll("gb:rl:k").SetVal(map[string]string{"count": "x", "reset_at": "1"})

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestRedisEntryStore_GetPropagatesError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisEntryStore(rdb, WithEntryPrefix("gb:rl"))

	boom := errors.New("connection refused")
	mock.ExpectHGetAll("gb:rl:k").SetErr(boom)

	_, _, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
}

func TestRedisEntryStore_SetWritesHashWithExpiry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisEntryStore(rdb, WithEntryPrefix("gb:rl"), WithEntryIdleTTL(30*time.Second))

	reset := time.UnixMilli(1760000060000)

	mock.ExpectTxPipeline()
	mock.ExpectHSet("gb:rl:k", "count", 2, "reset_at", reset.UnixMilli()).SetVal(2)
	mock.ExpectPExpireAt("gb:rl:k", reset.Add(30*time.Second)).SetVal(true)
	mock.ExpectTxPipelineExec()

	err := store.Set(context.Background(), "k", domain.Entry{Count: 2, ResetAt: reset})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
