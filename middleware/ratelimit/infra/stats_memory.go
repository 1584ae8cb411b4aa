package infra

import (
	"context"
	"sync"

	"guestbook-gateway/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// StatsSnapshot é a cópia servida em /stats.
type StatsSnapshot struct {
	Total    Counters               `json:"total"`
	ByAction map[string]Counters    `json:"by_action"`
	ByStage  map[domain.Stage]int64 `json:"by_stage"`
}

// MemoryStatsStore acumula as decisões desta instância desde o start.
// Sem expiração: chaves de cliente só são guardadas com WithTrackKeys.
type MemoryStatsStore struct {
	mu       sync.Mutex
	total    Counters
	byAction map[string]Counters
	byStage  map[domain.Stage]int64
	byKey    map[string]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byAction: make(map[string]Counters),
		byStage:  make(map[domain.Stage]int64),
		byKey:    make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = bump(s.total, ev.Allowed)
	s.byAction[ev.Action] = bump(s.byAction[ev.Action], ev.Allowed)
	s.byStage[ev.Stage]++
	if s.trackKeys {
		key := string(ev.Key)
		s.byKey[key] = bump(s.byKey[key], ev.Allowed)
	}
	return nil
}

func bump(c Counters, allowed bool) Counters {
	if allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	return c
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByAction() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byAction))
	for k, v := range s.byAction {
		out[k] = v
	}
	return out
}

// ByStage conta eventos pela etapa que decidiu (rejeição ou "admitted").
func (s *MemoryStatsStore) ByStage() map[domain.Stage]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Stage]int64, len(s.byStage))
	for k, v := range s.byStage {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByKey() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v
	}
	return out
}

// Snapshot devolve totais, por ação e por etapa sob um único lock.
func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		Total:    s.total,
		ByAction: make(map[string]Counters, len(s.byAction)),
		ByStage:  make(map[domain.Stage]int64, len(s.byStage)),
	}
	for k, v := range s.byAction {
		snap.ByAction[k] = v
	}
	for k, v := range s.byStage {
		snap.ByStage[k] = v
	}
	return snap
}
