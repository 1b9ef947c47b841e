// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de sockets, de HTTP nem de implementações concretas.
// Os três tiers (global, common, hard) são identificados por Tier e cada um
// tem exatamente um Limiter compartilhado por todas as conexões.
package domain
