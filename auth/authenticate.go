package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const DefaultCacheTTL = time.Minute

var ErrMissingToken = errors.New("missing bearer token")

// Authenticator valida o header Authorization e devolve o email do token.
type Authenticator struct {
	issuer   *Issuer
	cache    *ttlcache.Cache[string, string]
	cacheTTL time.Duration
}

// NewAuthenticator cria o autenticador. cacheTTL < 0 desliga o cache.
func NewAuthenticator(issuer *Issuer, cacheTTL time.Duration) *Authenticator {
	a := &Authenticator{issuer: issuer, cacheTTL: cacheTTL}
	if cacheTTL == 0 {
		a.cacheTTL = DefaultCacheTTL
	}
	if a.cacheTTL > 0 {
		a.cache = ttlcache.New(
			ttlcache.WithTTL[string, string](a.cacheTTL),
			ttlcache.WithDisableTouchOnHit[string, string](),
		)
	}
	return a
}

// Start roda a limpeza de itens expirados até ctx cair.
func (a *Authenticator) Start(ctx context.Context) {
	if a.cache == nil {
		return
	}
	go a.cache.Start()
	<-ctx.Done()
	a.cache.Stop()
}

func bearer(authorization string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || scheme != "Bearer" {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func (a *Authenticator) Authenticate(_ context.Context, authorization string) (string, error) {
	token, err := bearer(authorization)
	if err != nil {
		return "", err
	}

	if a.cache != nil {
		if item := a.cache.Get(token); item != nil {
			return item.Value(), nil
		}
	}

	claims, err := a.issuer.Validate(token)
	if err != nil {
		return "", err
	}

	if a.cache != nil {
		ttl := a.cacheTTL
		if left := claims.ExpiresAt.Time.Sub(a.issuer.now()); left < ttl {
			ttl = left
		}
		if ttl > 0 {
			a.cache.Set(token, claims.Email, ttl)
		}
	}
	return claims.Email, nil
}

// Cached informa quantos tokens estão no cache.
func (a *Authenticator) Cached() int {
	if a.cache == nil {
		return 0
	}
	return a.cache.Len()
}
