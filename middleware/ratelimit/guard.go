package ratelimit

import (
	"context"
	"math"
	"time"

	"account-gateway/middleware/ratelimit/application"
	"account-gateway/middleware/ratelimit/domain"

	"github.com/go-logr/logr"
)

type Options struct {
	Store               domain.TierStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	// OnDecision é chamado a cada decisão (ex.: métricas).
	OnDecision func(tier domain.Tier, allowed bool)
	Logger     logr.Logger
}

type rateInfo interface {
	RPS(domain.Tier) float64
	Burst(domain.Tier) int
}

// Guard aplica os tiers de rota (common, hard) e registra cada decisão.
type Guard struct {
	opts Options
	svc  application.Service
}

func NewGuard(opts Options) *Guard {
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &Guard{
		opts: opts,
		svc: application.Service{
			Store:      opts.Store,
			RetryAfter: opts.RetryAfter,
		},
	}
}

// Admit consome um token do tier. Negação não bloqueia: vira 429 na rota.
func (g *Guard) Admit(ctx context.Context, tier domain.Tier, r Request) domain.Decision {
	dec := g.svc.Decide(tier)
	if g.opts.OnDecision != nil {
		g.opts.OnDecision(tier, dec.Allowed)
	}

	if g.opts.Stats != nil {
		method, path := r.Target()
		ev := domain.StatsEvent{
			Tier:    tier,
			Key:     g.opts.KeyFn(r),
			Allowed: dec.Allowed,
			Method:  method,
			Path:    path,
			At:      time.Now(),
		}
		if err := g.opts.Stats.Record(ctx, ev); err != nil {
			g.opts.Logger.V(1).Info("rate stats record failed", "tier", tier, "err", err.Error())
		}
	}
	return dec
}

// DenyHeaders monta as linhas de header da resposta 429, cada uma terminada em CRLF.
// Retry-After arredonda para cima: espera de fração de segundo vira 1.
func (g *Guard) DenyHeaders(tier domain.Tier, dec domain.Decision) string {
	h := "Retry-After: " + formatInt(int(math.Ceil(dec.RetryAfter.Seconds()))) + "\r\n"
	if !g.opts.AddRateLimitHeaders {
		return h
	}
	h += "X-RateLimit-Tier: " + string(tier) + "\r\n"
	if ri, ok := g.opts.Store.(rateInfo); ok {
		h += "X-RateLimit-RPS: " + formatFloat(ri.RPS(tier)) + "\r\n"
		h += "X-RateLimit-Burst: " + formatInt(ri.Burst(tier)) + "\r\n"
	}
	return h
}
