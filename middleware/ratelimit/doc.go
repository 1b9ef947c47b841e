// Package ratelimit liga as camadas de rate limit ao motor de conexões.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (tiers, limiter, slots, estatísticas)
//   - application: casos de uso (decisão allow/deny, espera no tier global, acquire de slot)
//   - infra: implementações concretas (token bucket por tier, semáforo, stats em memória/Redis)
//   - ratelimit (este pacote): Guard das rotas + extração de chave + headers da resposta 429
//
// Fluxo numa conexão:
//
//   1) O worker adquire um slot (NewSlots) e espera admissão no tier global
//   2) O router encontra a rota; se ela tem tier, chama Guard.Admit
//   3) Se bloqueado, responde 429 com Retry-After
//   4) Se permitido, chama o handler da rota
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como GLOBAL_RPS_PER_WORKER, COMMON_RPS, HARD_BURST e SLOTS_PER_WORKER.
package ratelimit
