package infra

import (
	"context"
	"testing"
	"time"

	"rental-backend/middleware/ratelimit/domain"
)

func TestBucketStore_GetSameKeyReturnsSameLimiter(t *testing.T) {
	s := NewBucketStore(10, 1)

	l1 := s.Get(domain.Key("k"))
	l2 := s.Get(domain.Key("k"))
	if l1 != l2 {
		t.Fatalf("expected same limiter pointer for same key")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestBucketStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewBucketStore(0.02, 1)

	lim := s.Get(domain.Key("k"))
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	if lim.Allow() {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
}

func TestBucketStore_CleanupRemovesIdleEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewBucketStore(10, 1, WithIdleTTL(time.Minute), WithCleanupEvery(0))
	s.now = func() time.Time { return now }

	before := s.Get(domain.Key("idle"))
	now = now.Add(2 * time.Minute)
	s.Get(domain.Key("fresh"))

	if removed := s.Cleanup(); removed != 1 {
		t.Fatalf("expected 1 removed entry, got %d", removed)
	}
	if after := s.Get(domain.Key("idle")); before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}

func TestBucketStore_JanitorDisabledWithoutInterval(t *testing.T) {
	s := NewBucketStore(10, 1, WithCleanupEvery(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx) // não deve criar goroutine nem panicar
}

func TestChanPool_CapacityAndRelease(t *testing.T) {
	p := NewChanPool(1)

	release, ok := p.Acquire(context.Background())
	if !ok || p.InUse() != 1 {
		t.Fatalf("expected first acquire to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to time out")
	}

	release()
	if p.InUse() != 0 {
		t.Fatalf("expected slot released")
	}
}

func TestChanPool_CancelledContextNeverAcquires(t *testing.T) {
	p := NewChanPool(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected cancelled ctx to fail even with free slots")
	}
}
