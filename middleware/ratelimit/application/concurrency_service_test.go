package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullPool nunca tem vaga.
type fullPool struct{}

func (fullPool) Acquire(ctx context.Context) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (fullPool) InUse() int { return 1 }

type countingPool struct {
	acquired int
	released int
}

func (p *countingPool) Acquire(context.Context) (func(), error) {
	p.acquired++
	return func() { p.released++ }, nil
}

func (p *countingPool) InUse() int { return p.acquired - p.released }

func TestConcurrencyService_NoPoolAdmits(t *testing.T) {
	release, err := ConcurrencyService{}.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestConcurrencyService_TimeoutIsSaturated(t *testing.T) {
	svc := ConcurrencyService{Pool: fullPool{}, AcquireTimeout: 10 * time.Millisecond}

	release, err := svc.Acquire(context.Background())

	assert.ErrorIs(t, err, ErrSaturated)
	require.NotNil(t, release)
	release()
}

func TestConcurrencyService_CallerCancelIsNotSaturation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := ConcurrencyService{Pool: fullPool{}, AcquireTimeout: time.Second}

	_, err := svc.Acquire(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSaturated)
}

func TestConcurrencyService_DelegatesToPool(t *testing.T) {
	pool := &countingPool{}
	svc := ConcurrencyService{Pool: pool}

	release, err := svc.Acquire(context.Background())
	require.NoError(t, err)
	release()

	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
}
