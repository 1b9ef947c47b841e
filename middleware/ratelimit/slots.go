package ratelimit

import (
	"time"

	"account-gateway/middleware/ratelimit/application"
	"account-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max int
	// OnWait recebe o tempo de espera de cada slot adquirido (ex.: métricas).
	OnWait func(waited time.Duration)
}

// NewSlots cria o controle de slots de um worker.
// Max <= 0 desliga o limite (pool nil).
func NewSlots(opts ConcurrencyOptions) (application.ConcurrencyService, *infra.ChanPool) {
	if opts.Max <= 0 {
		return application.ConcurrencyService{}, nil
	}
	pool := infra.NewChanPool(opts.Max)
	return application.ConcurrencyService{
		Pool:   pool,
		OnWait: opts.OnWait,
	}, pool
}
