package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"guestbook-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCount   = "count"
	fieldResetAt = "reset_at"
)

// RedisEntryStore guarda os contadores em um hash por chave, para que várias
// instâncias compartilhem a mesma janela.
//
// Cada hash expira (PEXPIREAT) em ResetAt + idleTTL, então chaves inativas
// somem sozinhas.
type RedisEntryStore struct {
	rdb     *redis.Client
	prefix  string
	idleTTL time.Duration
}

type RedisEntryOption func(*RedisEntryStore)

func WithEntryPrefix(prefix string) RedisEntryOption {
	return func(s *RedisEntryStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithEntryIdleTTL(d time.Duration) RedisEntryOption {
	return func(s *RedisEntryStore) { s.idleTTL = d }
}

func NewRedisEntryStore(rdb *redis.Client, opts ...RedisEntryOption) *RedisEntryStore {
	s := &RedisEntryStore{
		rdb:     rdb,
		prefix:  "guestbook:ratelimit",
		idleTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisEntryStore) redisKey(key domain.Key) string {
	return s.prefix + ":" + string(key)
}

// Get implementa domain.EntryStore. Hash ausente (HGETALL vazio) vira ok=false.
func (s *RedisEntryStore) Get(ctx context.Context, key domain.Key) (domain.Entry, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		return domain.Entry{}, false, err
	}
	if len(vals) == 0 {
		return domain.Entry{}, false, nil
	}

	count, err := strconv.Atoi(vals[fieldCount])
	if err != nil {
		return domain.Entry{}, false, fmt.Errorf("invalid %s for %q: %w", fieldCount, key, err)
	}
	resetMs, err := strconv.ParseInt(vals[fieldResetAt], 10, 64)
	if err != nil {
		return domain.Entry{}, false, fmt.Errorf("invalid %s for %q: %w", fieldResetAt, key, err)
	}

	return domain.Entry{Count: count, ResetAt: time.UnixMilli(resetMs)}, true, nil
}

// Set implementa domain.EntryStore.
func (s *RedisEntryStore) Set(ctx context.Context, key domain.Key, e domain.Entry) error {
	k := s.redisKey(key)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, k, fieldCount, e.Count, fieldResetAt, e.ResetAt.UnixMilli())
	pipe.PExpireAt(ctx, k, e.ResetAt.Add(s.idleTTL))
	_, err := pipe.Exec(ctx)
	return err
}
