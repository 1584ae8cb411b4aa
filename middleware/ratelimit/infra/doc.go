// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryEntryStore: contadores de janela fixa em memória, com limpeza periódica
//   - RedisEntryStore: contadores compartilhados entre instâncias
//   - NewSlotPool: semáforo simples para limite de concorrência
//   - Memory/Redis/Prometheus stats: registro das decisões de admissão
package infra
