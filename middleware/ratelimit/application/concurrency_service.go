package application

import (
	"context"
	"time"

	"account-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService concentra a regra de aquisição/liberação de slots de um worker,
// sem saber nada sobre conexões.
//
// Não há timeout: quem passa da capacidade espera por um slot. Acquire só
// falha quando ctx encerra (o contexto das tarefas no fim do shutdown).
type ConcurrencyService struct {
	Pool domain.SlotPool
	// OnWait recebe quanto tempo a aquisição esperou, só quando ela deu certo.
	OnWait func(waited time.Duration)
}

// Acquire espera um slot. Retorna (release, ok); com ok=false nada foi adquirido.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	start := time.Now()
	release, ok := s.Pool.Acquire(ctx)
	if ok && s.OnWait != nil {
		s.OnWait(time.Since(start))
	}
	return release, ok
}
