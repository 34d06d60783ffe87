package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter enforces a minimum delay between consecutive operations performed
// by a single owner, typically one search-engine plugin instance. The first
// call proceeds immediately; later calls wait out whatever remains of the
// configured delay since the previous call. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	delay  time.Duration
	jitter float64 // 0.0 to 1.0
	next   time.Time
}

// NewLimiter creates a limiter with the given inter-request delay and jitter
// factor. Jitter adds up to jitter*delay of extra random wait on top of the
// base delay. If delay is <= 0 the limiter never blocks.
func NewLimiter(delay time.Duration, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Limiter{
		delay:  delay,
		jitter: jitter,
	}
}

// Wait blocks until enough time has passed since the previous call, or until
// the context is canceled. A canceled wait does not consume the slot.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	var sleep time.Duration
	if l.next.After(now) {
		sleep = l.next.Sub(now)
	}
	if sleep > 0 && l.jitter > 0 {
		sleep += time.Duration(rand.Float64() * l.jitter * float64(l.delay))
	}
	// Reserve the slot before sleeping so concurrent callers queue up
	// behind each other instead of all firing at once.
	reserved := l.next
	claimed := now.Add(sleep).Add(l.delay)
	l.next = claimed
	l.mu.Unlock()

	if sleep <= 0 {
		return ctx.Err()
	}

	select {
	case <-time.After(sleep):
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		// Roll back only our own reservation. A caller that queued up
		// behind us has moved next past claimed and keeps its slot.
		if l.next.Equal(claimed) {
			l.next = reserved
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Stamp marks now as the moment the rate-limited operation ran, pushing the
// next allowed slot a full delay out from here. Wait alone spaces calls from
// its own entry time; an operation with per-call overhead after Wait (a
// network round trip, say) calls Stamp when it completes so the spacing
// holds where the operation is observed, not where it was scheduled.
func (l *Limiter) Stamp() {
	if l.delay <= 0 {
		return
	}
	l.mu.Lock()
	if next := time.Now().Add(l.delay); next.After(l.next) {
		l.next = next
	}
	l.mu.Unlock()
}

// Delay returns the configured inter-request delay.
func (l *Limiter) Delay() time.Duration {
	return l.delay
}
