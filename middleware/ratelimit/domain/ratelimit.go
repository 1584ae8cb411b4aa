package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

// Key identifica um contador: namespace da ação + identificador do cliente.
//
// Não é único por cliente físico: IPs compartilhados (NAT/proxy) colidem.
type Key string

// NewKey compõe a chave a partir do namespace da ação e do cliente.
// O cliente pode ser vazio (nenhum IP extraído); todos esses caem na mesma chave.
func NewKey(namespace, client string) Key {
	return Key(namespace + ":" + client)
}

// Rule é o limite de uma ação: até Limit requisições por Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled informa se a regra tem valores utilizáveis.
func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// Entry é o estado de uma chave na janela corrente.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Limiter decide a admissão de uma chave sob uma regra.
// Usado pelo pipeline de escrita e pelo middleware das rotas de leitura.
type Limiter interface {
	TryAdmit(ctx context.Context, key Key, rule Rule) (Decision, error)
}

// Expired usa comparação estrita: em now == ResetAt a janela ainda vale.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ResetAt)
}

// EntryStore guarda um Entry por chave.
//
// Get/Set não são atômicos entre si: requisições concorrentes na mesma chave
// podem admitir uma requisição a mais que o limite. O limiter é um
// dissuasor de abuso, não um medidor exato.
type EntryStore interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Set(ctx context.Context, key Key, entry Entry) error
}

type Decision struct {
	Allowed bool
	// Count é a contagem da janela após a decisão.
	Count int
	// ResetAt é quando a janela da chave termina. Zero quando não há regra.
	ResetAt time.Time
}
