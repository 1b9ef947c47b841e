// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: um token bucket por tier usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para os slots de cada worker
//   - MemoryStatsStore / RedisStatsStore: estatísticas das decisões de admissão
package infra
