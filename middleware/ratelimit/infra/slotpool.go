package infra

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"guestbook-gateway/middleware/ratelimit/domain"
)

type weightedPool struct {
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

// NewSlotPool cria um domain.SlotPool com max vagas.
func NewSlotPool(max int) domain.SlotPool {
	return &weightedPool{sem: semaphore.NewWeighted(int64(max))}
}

func (p *weightedPool) Acquire(ctx context.Context) (func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.inUse.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.inUse.Add(-1)
			p.sem.Release(1)
		})
	}, nil
}

func (p *weightedPool) InUse() int { return int(p.inUse.Load()) }
