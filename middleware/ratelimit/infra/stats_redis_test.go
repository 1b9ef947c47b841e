package infra

import (
	"context"
	"testing"
	"time"

	"account-gateway/middleware/ratelimit/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStats(t *testing.T, opts ...RedisStatsOption) (*RedisStatsStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStatsStore(rdb, opts...), mr
}

func TestRedisStatsStore_RecordLayout(t *testing.T) {
	s, mr := newRedisStats(t, WithStatsPrefix("gw:stats"), WithStatsTTL(time.Hour), WithStatsTrackKeys(true))
	ctx := context.Background()
	at := time.Date(2026, 3, 4, 15, 16, 30, 0, time.UTC)

	events := []domain.StatsEvent{
		{Tier: domain.TierHard, Key: "10.0.0.1", Allowed: true, Method: "POST", Path: "/login", At: at},
		{Tier: domain.TierHard, Key: "10.0.0.1", Allowed: false, Method: "POST", Path: "/login", At: at},
		{Tier: domain.TierCommon, Key: "10.0.0.2", Allowed: true, Method: "PUT", Path: "/users/5", At: at},
		{Tier: domain.TierGlobal, Allowed: true, At: at},
	}
	for _, ev := range events {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	fields := []struct{ key, field, want string }{
		{"gw:stats:total", "allowed", "3"},
		{"gw:stats:total", "denied", "1"},
		{"gw:stats:tier:hard", "allowed", "1"},
		{"gw:stats:tier:hard", "denied", "1"},
		{"gw:stats:tier:common", "allowed", "1"},
		{"gw:stats:tier:global", "allowed", "1"},
		{"gw:stats:minute:202603041516", "allowed", "3"},
		{"gw:stats:route", "POST /login:allowed", "1"},
		{"gw:stats:route", "POST /login:denied", "1"},
		{"gw:stats:route", "PUT /users/5:allowed", "1"},
		{"gw:stats:key:10.0.0.1", "denied", "1"},
		{"gw:stats:key:10.0.0.2", "allowed", "1"},
	}
	for _, f := range fields {
		if got := mr.HGet(f.key, f.field); got != f.want {
			t.Errorf("HGET %s %q = %q, want %q", f.key, f.field, got, f.want)
		}
	}

	if ttl := mr.TTL("gw:stats:minute:202603041516"); ttl != time.Hour {
		t.Errorf("minute bucket ttl = %v, want 1h", ttl)
	}
	if ttl := mr.TTL("gw:stats:key:10.0.0.1"); ttl != time.Hour {
		t.Errorf("key ttl = %v, want 1h", ttl)
	}
	if ttl := mr.TTL("gw:stats:total"); ttl != 0 {
		t.Errorf("total must not expire, ttl = %v", ttl)
	}
}

func TestRedisStatsStore_NoBucketNoKeys(t *testing.T) {
	s, mr := newRedisStats(t, WithStatsBucket(" None "))
	ev := domain.StatsEvent{Tier: domain.TierCommon, Key: "10.0.0.9", Allowed: false, At: time.Now()}
	if err := s.Record(context.Background(), ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	for _, k := range mr.Keys() {
		switch k {
		case "ratelimit:stats:total", "ratelimit:stats:tier:common":
		default:
			t.Errorf("unexpected key %q", k)
		}
	}
	if got := mr.HGet("ratelimit:stats:tier:common", "denied"); got != "1" {
		t.Fatalf("tier common denied = %q, want 1", got)
	}
}

func TestRedisStatsStore_TierTotals(t *testing.T) {
	s, _ := newRedisStats(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = s.Record(ctx, domain.StatsEvent{Tier: domain.TierCommon, Allowed: i < 2})
	}
	_ = s.Record(ctx, domain.StatsEvent{Tier: domain.TierHard, Allowed: false})

	got, err := s.TierTotals(ctx)
	if err != nil {
		t.Fatalf("tier totals: %v", err)
	}
	want := map[domain.Tier]Counters{
		domain.TierGlobal: {},
		domain.TierCommon: {Allowed: 2, Denied: 1},
		domain.TierHard:   {Denied: 1},
	}
	for tier, w := range want {
		if got[tier] != w {
			t.Errorf("tier %s = %+v, want %+v", tier, got[tier], w)
		}
	}
	if len(got) != len(domain.Tiers) {
		t.Errorf("got %d tiers, want %d", len(got), len(domain.Tiers))
	}
}

func TestRedisStatsStore_TierTotalsServerDown(t *testing.T) {
	s, mr := newRedisStats(t)
	mr.Close()

	if _, err := s.TierTotals(context.Background()); err == nil {
		t.Fatal("expected error with redis down")
	}
}
