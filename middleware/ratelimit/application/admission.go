package application

import (
	"context"
	"time"

	"account-gateway/middleware/ratelimit/domain"
)

// DefaultRetryEvery é o intervalo entre tentativas de admissão no tier global.
const DefaultRetryEvery = 10 * time.Millisecond

// AdmissionService aplica o tier global: em vez de negar, espera e tenta de novo.
//
// Isso limita a vazão do processo inteiro sem rejeitar requests individuais.
type AdmissionService struct {
	Limiter    domain.Limiter
	RetryEvery time.Duration
}

// Wait bloqueia até o limiter admitir ou até ctx encerrar.
// Retorna quantas tentativas foram negadas antes da admissão e se houve admissão.
func (s AdmissionService) Wait(ctx context.Context) (int, bool) {
	if s.Limiter == nil {
		return 0, true
	}
	every := s.RetryEvery
	if every <= 0 {
		every = DefaultRetryEvery
	}

	retries := 0
	for !s.Limiter.Allow() {
		retries++
		t := time.NewTimer(every)
		select {
		case <-ctx.Done():
			t.Stop()
			return retries, false
		case <-t.C:
		}
	}
	return retries, true
}
