package domain

import (
	"context"
	"time"
)

// StatsEvent representa um evento de decisão do rate limit.
//
// Method/Path são strings genéricas extraídas da linha de request.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Tier    Tier
	Key     string
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// Implementações podem armazenar em Redis, memória, etc.
// Quem grava deve tratar erro como best-effort (não derrubar a conexão).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
