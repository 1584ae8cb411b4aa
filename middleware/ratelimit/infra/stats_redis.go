package infra

import (
	"context"
	"strings"
	"time"

	"guestbook-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega decisões de admissão em hashes do Redis, para
// consulta fora do processo (várias instâncias somam nos mesmos hashes).
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl vale para as séries por minuto e por cliente.
	// <prefix>:decisions é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// WithStatsTrackKeys grava também por cliente. A chave contém o IP.
func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "guestbook:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func outcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

// Record grava, num único pipeline:
//
//	<prefix>:decisions                  <action>:<stage>:<outcome>
//	<prefix>:<action>:<yyyymmddhhmm>    <outcome>   (bucket=minute)
//	<prefix>:client:<key>               <outcome>   (trackKeys)
func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	action := strings.TrimSpace(ev.Action)
	if action == "" {
		action = "unknown"
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	out := outcome(ev.Allowed)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":decisions", action+":"+string(ev.Stage)+":"+out, 1)

	if s.bucket == "minute" {
		s.incrExpiring(ctx, pipe, s.prefix+":"+action+":"+at.UTC().Format("200601021504"), out)
	}
	if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
		s.incrExpiring(ctx, pipe, s.prefix+":client:"+k, out)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatsStore) incrExpiring(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}
