// Package githubstore implementa guestbook.Store sobre a API REST do GitHub.
package githubstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"guestbook-gateway/internal/guestbook"
)

type Config struct {
	Token     string
	Owner     string
	Repo      string
	UserAgent string

	// BaseURL vazio usa https://api.github.com/.
	BaseURL string

	// Timeout é o prazo de cada chamada.
	Timeout time.Duration

	// RPS e Burst limitam as chamadas de saída deste processo.
	RPS   float64
	Burst int

	// MaxFailures seguidas abrem o circuito por BreakerCooldown.
	MaxFailures     uint32
	BreakerCooldown time.Duration
}

type Client struct {
	gh      *gh.Client
	owner   string
	repo    string
	timeout time.Duration
	// throttle é nil quando RPS <= 0.
	throttle *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

var _ guestbook.Store = (*Client)(nil)

func New(cfg Config, log logrus.FieldLogger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "guestbook-gateway"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	client := gh.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	client.UserAgent = cfg.UserAgent

	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	c := &Client{
		gh:      client,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		timeout: cfg.Timeout,
		log:     log,
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.throttle = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "github",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// recusas do próprio GitHub (4xx) e cliente que desistiu não indicam
		// backend fora do ar
		IsSuccessful: func(err error) bool {
			var se *guestbook.StoreError
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				return true
			case errors.As(err, &se):
				return se.Status < http.StatusInternalServerError
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})
	return c, nil
}

// call roda fn com prazo próprio, atrás do throttle e do circuit breaker,
// e traduz o erro. A espera no throttle fica fora da contagem do breaker.
func call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, *gh.Response, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		v, resp, err := fn(ctx)
		if err != nil {
			return nil, translate(resp, err)
		}
		return v, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%s: %w", op, guestbook.ErrStoreUnavailable)
		} else {
			err = fmt.Errorf("%s: %w", op, err)
		}
		return zero, err
	}
	return out.(T), nil
}

// wait reserva um token do throttle. Se a espera passaria do prazo, o erro
// de rate (sem wrap) vira context.DeadlineExceeded.
func (c *Client) wait(ctx context.Context) error {
	if c.throttle == nil {
		return ctx.Err()
	}
	if err := c.throttle.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("throttle: %v: %w", err, context.DeadlineExceeded)
	}
	return nil
}

// translate separa resposta de erro do GitHub (StoreError) de falha de transporte.
func translate(resp *gh.Response, err error) error {
	var (
		er  *gh.ErrorResponse
		rl  *gh.RateLimitError
		arl *gh.AbuseRateLimitError
	)
	switch {
	case errors.As(err, &rl):
		return &guestbook.StoreError{Status: statusOf(rl.Response, http.StatusForbidden), Message: rl.Message}
	case errors.As(err, &arl):
		return &guestbook.StoreError{Status: statusOf(arl.Response, http.StatusForbidden), Message: arl.Message}
	case errors.As(err, &er):
		return &guestbook.StoreError{Status: statusOf(er.Response, http.StatusBadGateway), Message: er.Message}
	case resp != nil && resp.Response != nil && resp.StatusCode >= 400:
		return &guestbook.StoreError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return err
}

func statusOf(r *http.Response, def int) int {
	if r == nil {
		return def
	}
	return r.StatusCode
}
