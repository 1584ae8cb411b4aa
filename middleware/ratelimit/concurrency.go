package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"guestbook-gateway/middleware/ratelimit/application"
	"guestbook-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         logrus.FieldLogger
}

// ConcurrencyMiddleware limita requisições em andamento. Max <= 0 desliga.
//
// Pre-flight (OPTIONS) não ocupa vaga e nunca é recusado.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	pool := infra.NewSlotPool(opts.Max)
	svc := application.ConcurrencyService{Pool: pool, AcquireTimeout: opts.AcquireTimeout}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			release, err := svc.Acquire(r.Context())
			if err != nil {
				if errors.Is(err, application.ErrSaturated) {
					opts.Logger.WithFields(logrus.Fields{
						"in_use": pool.InUse(),
						"path":   r.URL.Path,
					}).Warn("concurrency limit reached")
					http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				}
				// cliente desistiu: não há para quem responder
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
