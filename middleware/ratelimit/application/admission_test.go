package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// countingLimiter nega as primeiras `deny` chamadas e depois permite.
type countingLimiter struct {
	deny  int32
	calls atomic.Int32
}

func (c *countingLimiter) Allow() bool {
	return c.calls.Add(1) > c.deny
}

func TestAdmissionService_NoLimiterAdmitsImmediately(t *testing.T) {
	retries, ok := AdmissionService{}.Wait(context.Background())
	require.True(t, ok)
	assert.Zero(t, retries)
}

func TestAdmissionService_RetriesUntilAdmitted(t *testing.T) {
	lim := &countingLimiter{deny: 3}
	svc := AdmissionService{Limiter: lim, RetryEvery: time.Millisecond}

	retries, ok := svc.Wait(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, retries)
	assert.EqualValues(t, 4, lim.calls.Load())
}

func TestAdmissionService_DeniedGlobalEventuallySucceedsAfterRefill(t *testing.T) {
	// 50 tokens/s => um token novo a cada 20ms.
	lim := rate.NewLimiter(50, 1)
	require.True(t, lim.Allow())

	svc := AdmissionService{Limiter: lim}
	start := time.Now()
	retries, ok := svc.Wait(context.Background())

	require.True(t, ok, "global denial must turn into a retry, never a final denial")
	assert.Positive(t, retries)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAdmissionService_AbandonedWhenContextEnds(t *testing.T) {
	svc := AdmissionService{Limiter: fakeLimiter{allow: false}, RetryEvery: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := svc.Wait(ctx)
	assert.False(t, ok)
}
