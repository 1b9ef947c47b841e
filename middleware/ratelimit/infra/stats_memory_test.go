package infra

import (
	"context"
	"testing"

	"account-gateway/middleware/ratelimit/domain"
)

func TestMemoryStatsStore_CountsByTierRouteAndKey(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Tier: domain.TierHard, Key: "10.0.0.1", Allowed: true, Method: "POST", Path: "/login"})
	_ = s.Record(ctx, domain.StatsEvent{Tier: domain.TierHard, Key: "10.0.0.1", Allowed: false, Method: "POST", Path: "/login"})
	_ = s.Record(ctx, domain.StatsEvent{Tier: domain.TierCommon, Key: "10.0.0.2", Allowed: true, Method: "PUT", Path: "/users/5"})

	if got := s.Total(); got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got := s.ByTier()[domain.TierHard]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected hard tier counters: %+v", got)
	}
	if got := s.ByRoute()["PUT /users/5"]; got.Allowed != 1 {
		t.Fatalf("unexpected route counters: %+v", got)
	}
	if got := s.ByKey()["10.0.0.1"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected key counters: %+v", got)
	}
}

func TestMemoryStatsStore_KeysNotTrackedByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Tier: domain.TierGlobal, Key: "k", Allowed: true})
	if len(s.ByKey()) != 0 {
		t.Fatalf("expected no key tracking by default")
	}
}

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	s := NewRedisStatsStore(nil, WithStatsPrefix(":custom:"))
	if err := s.Record(context.Background(), domain.StatsEvent{Tier: domain.TierHard}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	totals, err := s.TierTotals(context.Background())
	if err != nil || len(totals) != 0 {
		t.Fatalf("expected empty totals without client, got %v %v", totals, err)
	}
	if s.prefix != "custom" {
		t.Fatalf("expected trimmed prefix, got %q", s.prefix)
	}
}
