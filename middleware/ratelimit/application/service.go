package application

import (
	"time"

	"account-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit por tier.
//
// Ele não sabe nada sobre sockets nem sobre o formato da resposta, apenas retorna uma decisão.
type Service struct {
	Store      domain.TierStore
	RetryAfter time.Duration
}

func (s Service) Decide(tier domain.Tier) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Store.Get(tier)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}
	if lim.Allow() {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}
