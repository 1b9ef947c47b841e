package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de rede ou de HTTP.

import "time"

// Tier identifica uma política de rate limit com bucket próprio.
type Tier string

const (
	// TierGlobal protege o processo inteiro; é aplicado antes de qualquer request.
	TierGlobal Tier = "global"
	// TierCommon cobre rotas de escrita de menor risco (edição e remoção).
	TierCommon Tier = "common"
	// TierHard cobre rotas caras ou sensíveis (criação de conta e login).
	TierHard Tier = "hard"
)

// Tiers lista os tiers conhecidos, na ordem em que aparecem em logs e métricas.
var Tiers = []Tier{TierGlobal, TierCommon, TierHard}

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Allow consome um token quando permite e nunca bloqueia.
// A camada de infra usa golang.org/x/time/rate.
type Limiter interface {
	Allow() bool
}

// TierStore obtém o limiter compartilhado de um tier.
// Todos os chamadores de um mesmo tier recebem a mesma instância.
type TierStore interface {
	Get(Tier) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
