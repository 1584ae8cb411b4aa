package domain

import (
	"context"
	"time"
)

// Stage nomeia a etapa da admissão em que a decisão foi tomada.
type Stage string

const (
	StageOrigin   Stage = "origin"
	StageConfig   Stage = "config"
	StageRate     Stage = "rate"
	StageBody     Stage = "body"
	StageCaptcha  Stage = "captcha"
	StageSanitize Stage = "sanitize"
	StageAdmitted Stage = "admitted"
)

// StatsEvent representa uma decisão de admissão.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key sem controle pode
// explodir o número de séries/chaves em Redis/Prometheus).
type StatsEvent struct {
	Key     Key
	Action  string
	Stage   Stage
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Quem chama trata erro como best-effort (não derruba a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
