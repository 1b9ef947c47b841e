package infra

import (
	"context"

	"account-gateway/middleware/ratelimit/domain"
)

// ChanPool é um semáforo simples baseado em channel.
type ChanPool struct {
	sem chan struct{}
}

var _ domain.SlotPool = (*ChanPool)(nil)

// NewChanPool cria um pool com capacidade `max`.
func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse retorna quantos slots estão ocupados agora.
func (p *ChanPool) InUse() int { return len(p.sem) }

func (p *ChanPool) Cap() int { return cap(p.sem) }
