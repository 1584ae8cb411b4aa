package application

import (
	"context"
	"fmt"
	"time"

	"guestbook-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de janela fixa do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Os limites vêm de quem chama (uma Rule por ação), não do Service.
type Service struct {
	Store domain.EntryStore
	// Now permite fixar o relógio em testes. Nil usa time.Now.
	Now func() time.Time
}

var _ domain.Limiter = Service{}

// TryAdmit conta a requisição na janela da chave.
//
//   - sem entry, ou janela expirada: recomeça com Count=1 e admite
//   - Count < Limit: incrementa e admite
//   - caso contrário: nega sem alterar o entry
//
// Na virada da janela podem passar até 2x Limit requisições seguidas.
func (s Service) TryAdmit(ctx context.Context, key domain.Key, rule domain.Rule) (domain.Decision, error) {
	if s.Store == nil || !rule.Enabled() {
		return domain.Decision{Allowed: true}, nil
	}

	now := s.now()

	entry, ok, err := s.Store.Get(ctx, key)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("ratelimit get %q: %w", key, err)
	}

	if !ok || entry.Expired(now) {
		entry = domain.Entry{Count: 1, ResetAt: now.Add(rule.Window)}
		if err := s.Store.Set(ctx, key, entry); err != nil {
			return domain.Decision{}, fmt.Errorf("ratelimit set %q: %w", key, err)
		}
		return domain.Decision{Allowed: true, Count: entry.Count, ResetAt: entry.ResetAt}, nil
	}

	if entry.Count < rule.Limit {
		entry.Count++
		if err := s.Store.Set(ctx, key, entry); err != nil {
			return domain.Decision{}, fmt.Errorf("ratelimit set %q: %w", key, err)
		}
		return domain.Decision{Allowed: true, Count: entry.Count, ResetAt: entry.ResetAt}, nil
	}

	return domain.Decision{Allowed: false, Count: entry.Count, ResetAt: entry.ResetAt}, nil
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
