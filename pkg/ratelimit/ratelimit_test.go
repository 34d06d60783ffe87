package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_FirstCallDoesNotBlock(t *testing.T) {
	limiter := NewLimiter(time.Second, 0)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("first wait should return immediately")
	}
}

func TestLimiter_EnforcesDelay(t *testing.T) {
	delay := 100 * time.Millisecond
	limiter := NewLimiter(delay, 0)

	ctx := context.Background()
	_ = limiter.Wait(ctx)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gap := time.Since(start); gap < delay {
		t.Errorf("expected at least %v between requests, got %v", delay, gap)
	}
}

func TestLimiter_NoBlockWhenZeroDelay(t *testing.T) {
	limiter := NewLimiter(0, 0.5)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("limiter with zero delay should not block")
	}
}

func TestLimiter_IndependentInstances(t *testing.T) {
	// Two limiters must not delay each other.
	a := NewLimiter(time.Second, 0)
	b := NewLimiter(time.Second, 0)

	ctx := context.Background()
	_ = a.Wait(ctx)

	start := time.Now()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("independent limiters should not share a delay")
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(time.Second, 0)

	ctx, cancel := context.WithCancel(context.Background())
	_ = limiter.Wait(ctx)
	cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatalf("expected context canceled error")
	}
}

func TestLimiter_StampDefersNextSlot(t *testing.T) {
	delay := 100 * time.Millisecond
	limiter := NewLimiter(delay, 0)

	ctx := context.Background()
	_ = limiter.Wait(ctx)

	// The operation itself takes time after Wait returns. Spacing must be
	// measured from where the operation ran, so the gap between the end of
	// one operation and the start of the next stays at least delay.
	overhead := 60 * time.Millisecond
	time.Sleep(overhead)
	limiter.Stamp()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gap := time.Since(start); gap < delay {
		t.Errorf("stamped limiter should wait the full delay from the stamp, got %v", gap)
	}
}

func TestLimiter_StampNoOpWhenZeroDelay(t *testing.T) {
	limiter := NewLimiter(0, 0)
	limiter.Stamp()

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("stamp on a zero-delay limiter should not block anything")
	}
}

func TestLimiter_CanceledWaitKeepsLaterReservation(t *testing.T) {
	delay := 300 * time.Millisecond
	limiter := NewLimiter(delay, 0)

	ctx := context.Background()
	_ = limiter.Wait(ctx)

	// First waiter claims the next slot, then gets canceled while a second
	// waiter is already queued behind it. The rollback must not hand the
	// second waiter's reservation back out.
	cancelCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- limiter.Wait(cancelCtx) }()

	time.Sleep(20 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		_ = limiter.Wait(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-errCh; err == nil {
		t.Fatalf("expected context canceled error")
	}

	<-done
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The queued waiter held a slot one full delay behind the canceled
	// one, so the third call still has most of a delay left to wait.
	if gap := time.Since(start); gap < delay/2 {
		t.Errorf("rollback clobbered a queued reservation, third wait only blocked %v", gap)
	}
}

func TestLimiter_Jitter(t *testing.T) {
	delay := 20 * time.Millisecond
	limiter := NewLimiter(delay, 1.0)

	ctx := context.Background()
	_ = limiter.Wait(ctx)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gap := time.Since(start)
	if gap < delay {
		t.Errorf("jitter must never shorten the base delay, got %v", gap)
	}
	// Base delay plus at most one full delay of jitter, with scheduling slack.
	if gap > 3*delay+50*time.Millisecond {
		t.Errorf("jittered wait unexpectedly long: %v", gap)
	}
}
