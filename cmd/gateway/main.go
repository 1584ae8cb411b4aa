package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"guestbook-gateway/internal/config"
	"guestbook-gateway/internal/githubstore"
	"guestbook-gateway/internal/guestbook"
	"guestbook-gateway/internal/logger"
	"guestbook-gateway/middleware/admission"
	"guestbook-gateway/middleware/admission/captcha"
	"guestbook-gateway/middleware/ratelimit"
	"guestbook-gateway/middleware/ratelimit/application"
	"guestbook-gateway/middleware/ratelimit/domain"
	"guestbook-gateway/middleware/ratelimit/infra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}
	log := logger.New(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.WithError(err).Fatal("redis ping error")
		}
	}

	var entries domain.EntryStore
	if cfg.RateStore == "redis" {
		entries = infra.NewRedisEntryStore(rdb,
			infra.WithEntryPrefix(cfg.RateRedisPrefix),
			infra.WithEntryIdleTTL(cfg.RateIdleTTL),
		)
	} else {
		mem := infra.NewMemoryEntryStore(
			infra.WithIdleTTL(cfg.RateIdleTTL),
			infra.WithCleanupEvery(cfg.RateCleanupEvery),
		)
		mem.StartJanitor(ctx)
		entries = mem
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tally := infra.NewMemoryStatsStore()
	stats := infra.MultiStats{infra.NewPrometheusStats(reg), tally}
	if cfg.RateStatsEnabled {
		stats = append(stats, infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(cfg.RateStatsPrefix),
			infra.WithStatsTTL(cfg.RateStatsTTL),
			infra.WithStatsBucket(cfg.RateStatsBucket),
			infra.WithStatsTrackKeys(cfg.RateStatsTrackKeys),
		))
	}

	store, err := githubstore.New(githubstore.Config{
		Token:   cfg.GitHubToken,
		Owner:   cfg.GitHubOwner,
		Repo:    cfg.GitHubRepo,
		BaseURL: cfg.GitHubAPIURL,
		Timeout: cfg.GitHubTimeout,
		RPS:     cfg.GitHubRPS,
		Burst:   cfg.GitHubBurst,
	}, log.WithField("component", "github"))
	if err != nil {
		log.WithError(err).Fatal("github client error")
	}

	verifier := captcha.NewTurnstile(captcha.Config{
		Secret:    cfg.TurnstileSecret,
		VerifyURL: cfg.TurnstileVerifyURL,
		Timeout:   cfg.CaptchaTimeout,
	}, nil)

	h := newRouter(cfg, routerDeps{
		limiter:  application.Service{Store: entries},
		verifier: verifier,
		store:    store,
		stats:    stats,
		tally:    tally,
		gatherer: reg,
		log:      log,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"addr":          cfg.ListenAddr,
		"repo":          fmt.Sprintf("%s/%s", cfg.GitHubOwner, cfg.GitHubRepo),
		"origins":       len(cfg.AllowOrigins),
		"rate_store":    cfg.RateStore,
		"stats_redis":   cfg.RateStatsEnabled,
		"concurrency":   cfg.ConcurrencyMax,
		"captcha_ready": cfg.TurnstileSecret != "",
	}).Info("guestbook gateway listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server error")
	}
}

type routerDeps struct {
	limiter  domain.Limiter
	verifier admission.CaptchaVerifier
	store    guestbook.Store
	stats    domain.StatsStore
	tally    *infra.MemoryStatsStore
	gatherer prometheus.Gatherer
	log      logrus.FieldLogger
}

func newRouter(cfg config.Config, deps routerDeps) http.Handler {
	clientIP := ratelimit.ClientIPFunc(ratelimit.ClientIPOptions{
		TrustedHeader:      cfg.TrustedClientIPHeader,
		TrustXForwardedFor: cfg.TrustXFF,
	})
	guard := admission.NewOriginGuard(cfg.AllowOrigins)

	pipeline := admission.NewPipeline(guard, deps.limiter, deps.verifier,
		admission.WithStats(deps.stats),
		admission.WithLogger(deps.log.WithField("component", "admission")),
		admission.WithClientIP(clientIP),
	)

	handlers := guestbook.NewHandlers(guestbook.Config{
		Owner:          cfg.GitHubOwner,
		Repo:           cfg.GitHubRepo,
		HasToken:       cfg.GitHubToken != "",
		Branch:         cfg.GitHubBranch,
		CandleIssue:    cfg.CandleIssue,
		CandleReaction: cfg.CandleReaction,
		UploadPrefix:   cfg.UploadPrefix,
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadCaptcha:  cfg.UploadRequireCaptcha,
		CandleRule:     cfg.CandleRule,
		MessageRule:    cfg.MessageRule,
		UploadRule:     cfg.UploadRule,
	}, deps.store, pipeline, deps.log.WithField("component", "guestbook"))

	readLimit := ratelimit.Middleware(ratelimit.Options{
		Limiter:   deps.limiter,
		Rule:      cfg.ReadRule,
		Namespace: "read",
		KeyFn:     clientIP,
		Stats:     deps.stats,
		Logger:    deps.log.WithField("component", "ratelimit"),
	})

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
		Logger:         deps.log.WithField("component", "concurrency"),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if deps.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.gatherer, promhttp.HandlerOpts{}))
	}
	if deps.tally != nil {
		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			admission.WriteJSON(w, http.StatusOK, deps.tally.Snapshot())
		})
	}

	handlers.Mount(r, guard, readLimit)
	return r
}
