package admission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"guestbook-gateway/middleware/admission/captcha"
	"guestbook-gateway/middleware/ratelimit/domain"
)

const DefaultMaxBodyBytes int64 = 64 << 10

// CaptchaVerifier chama o serviço externo. false é um veredito; erro é falha
// de configuração ou de transporte.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Submission é o corpo de uma rota de escrita.
type Submission interface {
	CaptchaToken() string
	// Sanitize normaliza os campos no lugar e aplica a política da ação.
	// Erros devem ser *Error.
	Sanitize() error
}

// Gate descreve uma ação de escrita.
type Gate struct {
	// Action é o namespace da chave do rate limit ("candle", "message").
	Action  string
	Rule    domain.Rule
	Captcha bool
	// Ready acusa configuração ausente antes de qualquer estado ser tocado.
	Ready        func() error
	MaxBodyBytes int64
}

type Pipeline struct {
	origins  *OriginGuard
	limiter  domain.Limiter
	verifier CaptchaVerifier
	clientIP func(*http.Request) string
	stats    domain.StatsStore
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Pipeline)

func WithStats(s domain.StatsStore) Option {
	return func(p *Pipeline) { p.stats = s }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithClientIP troca a política de extração do IP (padrão: sem IP).
func WithClientIP(fn func(*http.Request) string) Option {
	return func(p *Pipeline) { p.clientIP = fn }
}

func NewPipeline(origins *OriginGuard, limiter domain.Limiter, verifier CaptchaVerifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		origins:  origins,
		limiter:  limiter,
		verifier: verifier,
		clientIP: func(*http.Request) string { return "" },
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Admit roda as etapas em ordem e decodifica o corpo em sub.
// nil significa ADMITTED; qualquer outro retorno é um *Error pronto para WriteError.
func (p *Pipeline) Admit(r *http.Request, gate Gate, sub Submission) error {
	ctx := r.Context()
	ip := p.clientIP(r)
	key := domain.NewKey(gate.Action, ip)

	if !p.origins.Allowed(r.Header.Get("Origin")) {
		return p.reject(r, gate, key, domain.StageOrigin, OriginRejected())
	}

	if gate.Ready != nil {
		if err := gate.Ready(); err != nil {
			return p.reject(r, gate, key, domain.StageConfig, asError(err))
		}
	}

	if p.limiter != nil {
		dec, err := p.limiter.TryAdmit(ctx, key, gate.Rule)
		switch {
		case err != nil:
			p.log.WithError(err).WithField("action", gate.Action).Warn("rate limiter unavailable, admitting request")
		case !dec.Allowed:
			return p.reject(r, gate, key, domain.StageRate, RateLimited())
		}
	}

	if err := decodeBody(r, gate.MaxBodyBytes, sub); err != nil {
		return p.reject(r, gate, key, domain.StageBody, err)
	}

	if gate.Captcha {
		if err := p.verifyCaptcha(ctx, sub.CaptchaToken(), ip); err != nil {
			return p.reject(r, gate, key, domain.StageCaptcha, err)
		}
	}

	if err := sub.Sanitize(); err != nil {
		return p.reject(r, gate, key, domain.StageSanitize, asError(err))
	}

	p.record(r, gate, key, domain.StageAdmitted, true)
	return nil
}

func (p *Pipeline) verifyCaptcha(ctx context.Context, token, ip string) *Error {
	token = strings.TrimSpace(token)
	if token == "" {
		return CaptchaMissing()
	}
	if p.verifier == nil {
		return Configuration("Missing captcha configuration", errors.New("no captcha verifier"))
	}

	ok, err := p.verifier.Verify(ctx, token, ip)
	switch {
	case errors.Is(err, captcha.ErrMissingSecret):
		return Configuration("Missing captcha configuration", err)
	case err != nil:
		return Upstream("Captcha verification unavailable", err)
	case !ok:
		return CaptchaFailed()
	}
	return nil
}

// decodeBody trata corpo ausente ou vazio como "{}".
func decodeBody(r *http.Request, max int64, sub Submission) *Error {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}

	var raw []byte
	if r.Body != nil {
		var err error
		raw, err = io.ReadAll(io.LimitReader(r.Body, max+1))
		if err != nil {
			return BodyMalformed("Invalid body", err)
		}
	}
	if int64(len(raw)) > max {
		return PayloadTooLarge("Payload too large")
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, sub); err != nil {
		return BodyMalformed("Invalid JSON", err)
	}
	return nil
}

func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unexpected(err)
}

func (p *Pipeline) reject(r *http.Request, gate Gate, key domain.Key, stage domain.Stage, e *Error) *Error {
	entry := p.log.WithFields(logrus.Fields{
		"action": gate.Action,
		"stage":  string(stage),
		"kind":   e.Kind.String(),
		"status": e.Status,
	})
	if e.Status >= http.StatusInternalServerError {
		entry.WithError(e.Err).Error("request rejected")
	} else {
		entry.Debug("request rejected")
	}

	p.record(r, gate, key, stage, false)
	return e
}

func (p *Pipeline) record(r *http.Request, gate Gate, key domain.Key, stage domain.Stage, allowed bool) {
	if p.stats == nil {
		return
	}
	err := p.stats.Record(r.Context(), domain.StatsEvent{
		Key:     key,
		Action:  gate.Action,
		Stage:   stage,
		Allowed: allowed,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      p.now(),
	})
	if err != nil {
		p.log.WithError(err).Debug("stats record failed")
	}
}
