package application

import (
	"context"
	"errors"
	"time"

	"guestbook-gateway/middleware/ratelimit/domain"
)

// ErrSaturated indica que nenhuma vaga abriu dentro de AcquireTimeout.
var ErrSaturated = errors.New("concurrency limit reached")

// ConcurrencyService aplica o tempo máximo de espera por uma vaga, sem
// conhecer HTTP.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout <= 0 espera enquanto o ctx de quem chama estiver vivo.
	AcquireTimeout time.Duration
}

// Acquire devolve release (nunca nil) e:
//   - nil quando conseguiu a vaga (ou não há pool)
//   - ErrSaturated quando AcquireTimeout venceu
//   - o erro do ctx quando quem chama desistiu antes
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.Pool == nil {
		return noop, nil
	}

	waitCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, err := s.Pool.Acquire(waitCtx)
	switch {
	case err == nil && release != nil:
		return release, nil
	case ctx.Err() != nil:
		return noop, ctx.Err()
	default:
		return noop, ErrSaturated
	}
}
