package ratelimit

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"guestbook-gateway/middleware/ratelimit/domain"
)

type Options struct {
	Limiter   domain.Limiter
	Rule      domain.Rule
	Namespace string
	KeyFn     KeyFunc
	Stats     domain.StatsStore
	Logger    logrus.FieldLogger
	// RejectStatus padrão: 429. A resposta não tem corpo nem headers de cota.
	RejectStatus int
}

// Middleware aplica a janela fixa por chave (namespace + IP do cliente).
//
// Falha do store não bloqueia a requisição: é registrada e a requisição segue.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientIPFunc(ClientIPOptions{TrustedHeader: DefaultTrustedHeader, TrustXForwardedFor: true})
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		if opts.Limiter == nil || !opts.Rule.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.NewKey(opts.Namespace, opts.KeyFn(r))

			dec, err := opts.Limiter.TryAdmit(r.Context(), key, opts.Rule)
			if err != nil {
				opts.Logger.WithError(err).WithField("action", opts.Namespace).Warn("rate limiter unavailable, admitting request")
				next.ServeHTTP(w, r)
				return
			}

			if opts.Stats != nil {
				stage := domain.StageAdmitted
				if !dec.Allowed {
					stage = domain.StageRate
				}
				if err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     key,
					Action:  opts.Namespace,
					Stage:   stage,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				}); err != nil {
					opts.Logger.WithError(err).Debug("stats record failed")
				}
			}

			if !dec.Allowed {
				w.WriteHeader(opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
