// Package ratelimit spaces out calls to the external backends (the
// Telegram gateway and the model service) so a run never hammers either.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter enforces a minimum delay between requests to the same backend.
type Limiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: backend name
	minDelay time.Duration
}

// NewLimiter creates a limiter that enforces minDelay between
// consecutive requests to the same backend.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request to
// the given backend. Returns an error if the context is cancelled while
// waiting.
func (l *Limiter) Wait(ctx context.Context, backend string) error {
	l.mu.Lock()
	last, ok := l.lastCall[backend]
	now := time.Now()

	if !ok {
		// First request for this backend — no wait needed.
		l.lastCall[backend] = now
		l.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= l.minDelay {
		l.lastCall[backend] = now
		l.mu.Unlock()
		return nil
	}

	remaining := l.minDelay - elapsed
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", backend, ctx.Err())
	case <-time.After(remaining):
	}

	l.mu.Lock()
	l.lastCall[backend] = time.Now()
	l.mu.Unlock()

	return nil
}
