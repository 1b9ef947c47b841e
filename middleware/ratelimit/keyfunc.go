package ratelimit

import (
	"net"
	"strings"
)

// Request é o mínimo que o guard precisa saber de um request já parseado.
type Request interface {
	Header(name string) string
	RemoteAddr() string
	Target() (method, path string)
}

// KeyFunc extrai a chave do cliente usada nas estatísticas.
type KeyFunc func(r Request) string

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		// fallback: endereço remoto do socket
		remote := strings.TrimSpace(r.RemoteAddr())
		host, _, err := net.SplitHostPort(remote)
		if err == nil && host != "" {
			return host
		}
		if remote != "" {
			return remote
		}
		return "unknown"
	}
}
