// Package config lê a configuração do ambiente (com suporte a .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"guestbook-gateway/middleware/admission"
	"guestbook-gateway/middleware/ratelimit"
	"guestbook-gateway/middleware/ratelimit/domain"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	GitHubToken   string
	GitHubOwner   string
	GitHubRepo    string
	GitHubBranch  string
	GitHubAPIURL  string
	GitHubTimeout time.Duration
	GitHubRPS     float64
	GitHubBurst   int

	UploadPrefix         string
	MaxUploadBytes       int64
	UploadRequireCaptcha bool

	AllowOrigins []string

	CandleIssue    int
	CandleReaction string

	TurnstileSecret    string
	TurnstileVerifyURL string
	CaptchaTimeout     time.Duration

	CandleRule  domain.Rule
	MessageRule domain.Rule
	UploadRule  domain.Rule
	ReadRule    domain.Rule

	TrustedClientIPHeader string
	TrustXFF              bool

	RateStore        string
	RateIdleTTL      time.Duration
	RateCleanupEvery time.Duration
	RateRedisPrefix  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateStatsEnabled   bool
	RateStatsPrefix    string
	RateStatsTTL       time.Duration
	RateStatsBucket    string
	RateStatsTrackKeys bool

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration
}

// Load lê .env (se existir) e o ambiente. Credenciais do GitHub e do captcha
// podem faltar: as rotas respondem 500 até serem configuradas.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		ListenAddr: getenvDefault("LISTEN_ADDR", ":8080"),
		LogLevel:   getenvDefault("LOG_LEVEL", "info"),

		GitHubToken:   strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		GitHubOwner:   strings.TrimSpace(os.Getenv("GITHUB_OWNER")),
		GitHubRepo:    strings.TrimSpace(os.Getenv("GITHUB_REPO")),
		GitHubBranch:  getenvDefault("GITHUB_BRANCH", "main"),
		GitHubAPIURL:  os.Getenv("GITHUB_API_URL"),
		GitHubTimeout: p.getDuration("GITHUB_TIMEOUT", 10*time.Second),
		GitHubRPS:     p.getFloat("GITHUB_RPS", 5),
		GitHubBurst:   p.getInt("GITHUB_BURST", 10),

		UploadPrefix:         strings.Trim(getenvDefault("UPLOAD_PREFIX", "assets"), "/"),
		MaxUploadBytes:       int64(p.getInt("MAX_UPLOAD_BYTES", 6000000)),
		UploadRequireCaptcha: p.getBool("UPLOAD_REQUIRE_CAPTCHA", false),

		AllowOrigins: admission.ParseAllowList(os.Getenv("ALLOW_ORIGINS")),

		CandleIssue:    p.getInt("CANDLE_ISSUE_NUMBER", 0),
		CandleReaction: getenvDefault("CANDLE_REACTION", "heart"),

		TurnstileSecret:    strings.TrimSpace(os.Getenv("TURNSTILE_SECRET_KEY")),
		TurnstileVerifyURL: os.Getenv("TURNSTILE_VERIFY_URL"),
		CaptchaTimeout:     p.getDuration("CAPTCHA_TIMEOUT", 8*time.Second),

		CandleRule:  p.getRule("RATE_CANDLE", 8, time.Minute),
		MessageRule: p.getRule("RATE_MESSAGE", 4, time.Minute),
		UploadRule:  p.getRule("RATE_UPLOAD", 3, time.Minute),
		ReadRule:    p.getRule("RATE_READ", 60, time.Minute),

		TrustedClientIPHeader: getenvDefault("TRUSTED_CLIENT_IP_HEADER", ratelimit.DefaultTrustedHeader),
		TrustXFF:              p.getBool("TRUST_XFF", true),

		RateStore:        strings.ToLower(getenvDefault("RATE_STORE", "memory")),
		RateIdleTTL:      p.getDuration("RATE_IDLE_TTL", 10*time.Minute),
		RateCleanupEvery: p.getDuration("RATE_CLEANUP_EVERY", 2*time.Minute),
		RateRedisPrefix:  getenvDefault("RATE_REDIS_PREFIX", "guestbook:ratelimit"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       p.getInt("REDIS_DB", 0),

		RateStatsEnabled:   p.getBool("RATE_STATS_ENABLED", false),
		RateStatsPrefix:    getenvDefault("RATE_STATS_PREFIX", "guestbook:stats"),
		RateStatsTTL:       p.getDuration("RATE_STATS_TTL", 24*time.Hour),
		RateStatsBucket:    getenvDefault("RATE_STATS_BUCKET", "minute"),
		RateStatsTrackKeys: p.getBool("RATE_STATS_TRACK_KEYS", false),

		ConcurrencyMax:     p.getInt("CONCURRENCY_MAX", 100),
		ConcurrencyTimeout: p.getDuration("CONCURRENCY_TIMEOUT", 0),
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.RateStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("RATE_STORE must be memory or redis, got %q", c.RateStore)
	}
	if c.NeedsRedis() && strings.TrimSpace(c.RedisAddr) == "" {
		return errors.New("REDIS_ADDR is required when RATE_STORE=redis or RATE_STATS_ENABLED=true")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.GitHubBurst < 0 {
		return errors.New("GITHUB_BURST must be >= 0")
	}
	return nil
}

func (c Config) NeedsRedis() bool {
	return c.RateStore == "redis" || c.RateStatsEnabled
}

// parser acumula erros de valores malformados em vez de cair no padrão
// silenciosamente.
type parser struct {
	errs *[]error
}

func (p parser) fail(k, v string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("%s=%q: %w", k, v, err))
}

func (p parser) getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return i
}

func (p parser) getFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return f
}

func (p parser) getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return b
}

// getDuration aceita "90s"/"2m" ou um número puro em milissegundos.
func (p parser) getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return d
}

// getRule lê <prefix>_LIMIT e <prefix>_WINDOW.
func (p parser) getRule(prefix string, limit int, window time.Duration) domain.Rule {
	return domain.Rule{
		Limit:  p.getInt(prefix+"_LIMIT", limit),
		Window: p.getDuration(prefix+"_WINDOW", window),
	}
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

