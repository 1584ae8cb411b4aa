package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestbook-gateway/middleware/ratelimit/domain"
)

func TestMemoryStatsStore_CountsByActionAndStage(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "message:a", Action: "message", Stage: domain.StageAdmitted, Allowed: true})
	_ = s.Record(ctx, domain.StatsEvent{Key: "message:a", Action: "message", Stage: domain.StageRate})
	_ = s.Record(ctx, domain.StatsEvent{Key: "candle:b", Action: "candle", Stage: domain.StageCaptcha})

	assert.Equal(t, Counters{Allowed: 1, Denied: 2}, s.Total())
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByAction()["message"])
	assert.Equal(t, int64(1), s.ByStage()[domain.StageRate])
	assert.Equal(t, Counters{Denied: 1}, s.ByKey()["candle:b"])
}

func TestMemoryStatsStore_KeysNotTrackedByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "k", Action: "candle", Allowed: true})
	assert.Empty(t, s.ByKey())
}

func TestPrometheusStats_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusStats(reg)

	_ = p.Record(context.Background(), domain.StatsEvent{Action: "candle", Stage: domain.StageAdmitted, Allowed: true})
	_ = p.Record(context.Background(), domain.StatsEvent{Action: "candle", Stage: domain.StageAdmitted, Allowed: true})
	_ = p.Record(context.Background(), domain.StatsEvent{Action: "candle", Stage: domain.StageRate})

	assert.Equal(t, 2.0, testutil.ToFloat64(p.Counter("candle", domain.StageAdmitted, true)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Counter("candle", domain.StageRate, false)))
}

func TestRedisStatsStore_CumulativeOnly(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewRedisStatsStore(rdb, WithStatsPrefix("gb:stats:"), WithStatsBucket("none"))

	mock.ExpectHIncrBy("gb:stats:decisions", "message:admitted:allowed", 1).SetVal(1)

	err := s.Record(context.Background(), domain.StatsEvent{
		Key:     "message:1.2.3.4",
		Action:  "message",
		Stage:   domain.StageAdmitted,
		Allowed: true,
		At:      time.Unix(1760000000, 0),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStatsStore_MinuteBucketAndClient(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewRedisStatsStore(rdb,
		WithStatsPrefix("gb:stats"),
		WithStatsTTL(time.Hour),
		WithStatsTrackKeys(true),
	)
	at := time.Date(2025, 10, 9, 8, 53, 20, 0, time.UTC)

	mock.ExpectHIncrBy("gb:stats:decisions", "candle:rate:denied", 1).SetVal(1)
	mock.ExpectHIncrBy("gb:stats:candle:202510090853", "denied", 1).SetVal(1)
	mock.ExpectExpire("gb:stats:candle:202510090853", time.Hour).SetVal(true)
	mock.ExpectHIncrBy("gb:stats:client:candle:1.2.3.4", "denied", 1).SetVal(1)
	mock.ExpectExpire("gb:stats:client:candle:1.2.3.4", time.Hour).SetVal(true)

	err := s.Record(context.Background(), domain.StatsEvent{
		Key:    "candle:1.2.3.4",
		Action: "candle",
		Stage:  domain.StageRate,
		At:     at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestMultiStats_FansOutAndJoinsErrors(t *testing.T) {
	mem := NewMemoryStatsStore()
	boom := errors.New("boom")
	m := MultiStats{mem, nil, failingStats{err: boom}}

	err := m.Record(context.Background(), domain.StatsEvent{Action: "candle", Allowed: true})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), mem.Total().Allowed)
}
