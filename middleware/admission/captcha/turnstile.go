// Package captcha verifica tokens de desafio humano no Cloudflare Turnstile.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ErrMissingSecret é erro de implantação, não um veredito negativo.
var ErrMissingSecret = errors.New("captcha secret is not configured")

type Config struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

// Turnstile faz uma chamada por verificação; nada é reaproveitado entre requisições.
type Turnstile struct {
	secret    string
	verifyURL string
	timeout   time.Duration
	client    *http.Client
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func NewTurnstile(cfg Config, client *http.Client) *Turnstile {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Turnstile{
		secret:    strings.TrimSpace(cfg.Secret),
		verifyURL: cfg.VerifyURL,
		timeout:   cfg.Timeout,
		client:    client,
	}
}

// Verify envia secret, token e (se houver) o IP do cliente como formulário.
// Transporte, status inesperado ou resposta ilegível viram erro.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if t.secret == "" {
		return false, ErrMissingSecret
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("captcha verify: unexpected status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return false, fmt.Errorf("captcha verify: decode response: %w", err)
	}
	return out.Success, nil
}
