package infra

import (
	"testing"

	"account-gateway/middleware/ratelimit/domain"
)

func TestStore_GetSameTierReturnsSameLimiter(t *testing.T) {
	s := NewStore(map[domain.Tier]TierConfig{domain.TierCommon: {RPS: 10, Burst: 1}})

	l1 := s.Get(domain.TierCommon)
	l2 := s.Get(domain.TierCommon)
	if l1 != l2 {
		t.Fatalf("expected same limiter for same tier")
	}
}

func TestStore_UnknownTierReturnsNilInterface(t *testing.T) {
	s := NewStore(nil)
	if lim := s.Get(domain.TierHard); lim != nil {
		t.Fatalf("expected nil limiter for unknown tier, got %#v", lim)
	}
}

func TestStore_BurstOfTwiceCapacityAdmitsExactlyCapacity(t *testing.T) {
	const capacity = 5
	// rate baixa o bastante para não haver reposição durante o teste
	s := NewStore(map[domain.Tier]TierConfig{domain.TierHard: {RPS: 0.01, Burst: capacity}})

	lim := s.Get(domain.TierHard)
	admitted, denied := 0, 0
	for i := 0; i < 2*capacity; i++ {
		if lim.Allow() {
			admitted++
		} else {
			denied++
		}
	}
	if admitted != capacity || denied != capacity {
		t.Fatalf("expected %d admitted and %d denied, got %d/%d", capacity, capacity, admitted, denied)
	}
}

func TestStore_ZeroCapacityDeniesEverything(t *testing.T) {
	s := NewStore(map[domain.Tier]TierConfig{domain.TierCommon: {RPS: 100, Burst: 0}})

	lim := s.Get(domain.TierCommon)
	for i := 0; i < 3; i++ {
		if lim.Allow() {
			t.Fatalf("expected denial with burst=0")
		}
	}
}

func TestStore_TiersAreIndependent(t *testing.T) {
	s := NewStore(map[domain.Tier]TierConfig{
		domain.TierCommon: {RPS: 0.01, Burst: 1},
		domain.TierHard:   {RPS: 0.01, Burst: 1},
	})

	if !s.Get(domain.TierCommon).Allow() {
		t.Fatalf("expected first common Allow to be true")
	}
	if s.Get(domain.TierCommon).Allow() {
		t.Fatalf("expected second common Allow to be false")
	}
	if !s.Get(domain.TierHard).Allow() {
		t.Fatalf("hard tier must not be affected by common tier usage")
	}
}

func TestStore_UpdateKeepsLimiterIdentity(t *testing.T) {
	s := NewStore(map[domain.Tier]TierConfig{domain.TierCommon: {RPS: 1, Burst: 0}})
	before := s.Limiter(domain.TierCommon)

	if !s.Update(domain.TierCommon, TierConfig{RPS: 5, Burst: 3}) {
		t.Fatalf("expected update of existing tier to succeed")
	}
	if s.Limiter(domain.TierCommon) != before {
		t.Fatalf("expected same limiter after update")
	}
	if s.Burst(domain.TierCommon) != 3 || s.RPS(domain.TierCommon) != 5 {
		t.Fatalf("expected config to reflect update, got rps=%v burst=%d", s.RPS(domain.TierCommon), s.Burst(domain.TierCommon))
	}
	if s.Update(domain.TierGlobal, TierConfig{RPS: 1, Burst: 1}) {
		t.Fatalf("expected update of unknown tier to fail")
	}
}
