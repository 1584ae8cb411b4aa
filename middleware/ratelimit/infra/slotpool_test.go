package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotPool_BlocksAtCapacity(t *testing.T) {
	p := NewSlotPool(1)

	release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Equal(t, 0, p.InUse())

	again, err := p.Acquire(context.Background())
	require.NoError(t, err)
	again()
}
