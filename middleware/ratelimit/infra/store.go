package infra

import (
	"sync"

	"account-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// TierConfig descreve o bucket de um tier: RPS tokens/s com reposição contínua
// e capacidade Burst. Burst 0 nega tudo.
type TierConfig struct {
	RPS   float64
	Burst int
}

// Store é uma implementação de infra baseada em token-bucket (x/time/rate)
// com exatamente um limiter por tier, criado na construção e nunca descartado.
type Store struct {
	mu       sync.RWMutex
	limiters map[domain.Tier]*rate.Limiter
	configs  map[domain.Tier]TierConfig
}

func NewStore(tiers map[domain.Tier]TierConfig) *Store {
	s := &Store{
		limiters: make(map[domain.Tier]*rate.Limiter, len(tiers)),
		configs:  make(map[domain.Tier]TierConfig, len(tiers)),
	}
	for t, cfg := range tiers {
		s.limiters[t] = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		s.configs[t] = cfg
	}
	return s
}

// Get implementa domain.TierStore. Tier desconhecido retorna nil (sem limite).
func (s *Store) Get(t domain.Tier) domain.Limiter {
	lim := s.Limiter(t)
	if lim == nil {
		return nil
	}
	return lim
}

func (s *Store) Limiter(t domain.Tier) *rate.Limiter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limiters[t]
}

func (s *Store) Config(t domain.Tier) (TierConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[t]
	return cfg, ok
}

func (s *Store) RPS(t domain.Tier) float64 {
	cfg, _ := s.Config(t)
	return cfg.RPS
}

func (s *Store) Burst(t domain.Tier) int {
	cfg, _ := s.Config(t)
	return cfg.Burst
}

// Update troca taxa e capacidade de um tier existente sem recriar o limiter,
// então quem já segura a referência continua vendo o mesmo bucket.
func (s *Store) Update(t domain.Tier, cfg TierConfig) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.limiters[t]
	if !ok {
		return false
	}
	lim.SetLimit(rate.Limit(cfg.RPS))
	lim.SetBurst(cfg.Burst)
	s.configs[t] = cfg
	return true
}
