package infra

import (
	"context"
	"sync"
	"time"

	"guestbook-gateway/middleware/ratelimit/domain"
)

// MemoryEntryStore guarda os contadores de janela fixa em memória.
//
// O estado vive enquanto o processo vive. Para não crescer sem limite, o
// janitor remove entries cuja janela terminou há mais de idleTTL.
type MemoryEntryStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]domain.Entry
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type StoreOption func(*MemoryEntryStore)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *MemoryEntryStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *MemoryEntryStore) { s.cleanupEvery = d }
}

// WithClock troca o relógio usado pela limpeza (testes).
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryEntryStore) { s.now = now }
}

func NewMemoryEntryStore(opts ...StoreOption) *MemoryEntryStore {
	s := &MemoryEntryStore{
		entries:      make(map[domain.Key]domain.Entry),
		idleTTL:      10 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryEntryStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Get implementa domain.EntryStore.
func (s *MemoryEntryStore) Get(_ context.Context, key domain.Key) (domain.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return e, ok, nil
}

// Set implementa domain.EntryStore.
func (s *MemoryEntryStore) Set(_ context.Context, key domain.Key, e domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = e
	return nil
}

func (s *MemoryEntryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove entries com janela encerrada há mais de idleTTL.
// Retorna quantos foram removidos.
func (s *MemoryEntryStore) Cleanup() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if e.ResetAt.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryEntryStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context no janitor.
type DoneContext interface {
	Done() <-chan struct{}
}
