package steamapi

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces the global Steam Web API call budget: a fixed number
// of permits per window, refilled to capacity at the start of each window.
// Callers blocked on an empty bucket are served in arrival order; channel
// receive queues give us FIFO wakeup without bookkeeping.
//
// Acquire never fails on its own; the only error it returns is the caller's
// context expiring while waiting.
type RateLimiter struct {
	permits  chan struct{}
	capacity int
	window   time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateLimiter creates a limiter with the given budget per window and
// starts its refill loop. Call Stop when the limiter is no longer needed.
func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	l := &RateLimiter{
		permits:  make(chan struct{}, capacity),
		capacity: capacity,
		window:   window,
		stop:     make(chan struct{}),
	}
	l.refill()
	go l.run()
	return l
}

// Acquire blocks until a permit is available or ctx is done. The permit is
// consumed immediately; there is nothing to release.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	select {
	case <-l.permits:
		return nil
	default:
	}

	select {
	case <-l.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return context.Canceled
	}
}

// Stop terminates the refill loop. Pending Acquire calls are released with an
// error.
func (l *RateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *RateLimiter) run() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.refill()
		case <-l.stop:
			return
		}
	}
}

// refill tops the bucket up to capacity without blocking.
func (l *RateLimiter) refill() {
	for i := 0; i < l.capacity; i++ {
		select {
		case l.permits <- struct{}{}:
		default:
			return
		}
	}
}
