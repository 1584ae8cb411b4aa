// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (janela fixa, acquire/timeout) sem net/http
//   - infra: implementações concretas (memória, Redis, semáforo, stats)
//   - ratelimit (este pacote): extração do IP do cliente + middlewares HTTP
//
// Fluxo nas rotas de leitura:
//
//   1) Extrai o IP do cliente (header do proxy confiável / XFF)
//   2) Chama application.Service.TryAdmit com a regra da ação
//   3) Se bloqueado, responde 429 sem corpo (ou 503 na concorrência)
//   4) Se permitido, chama o próximo handler
//
// As rotas de escrita não usam Middleware: o rate limit delas é uma etapa do
// pipeline de admissão (middleware/admission).
package ratelimit
