// ABOUTME: Thread-safe per-author rate limiter with a fixed cooldown window.
// ABOUTME: Used by the question service to throttle repeat submissions.

package ratelimit

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum interval between accepted submissions
// from the same author.
const DefaultCooldown = 20 * time.Second

// Limiter tracks the last accepted submission time per author identity.
// A rejected attempt does not advance the window. Entries older than the
// cooldown are pruned by a background goroutine; stale entries are dead
// weight, not a correctness hazard.
type Limiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
	done     chan struct{}
	closed   bool
}

// New creates a limiter with the given cooldown; cooldown <= 0 falls back
// to DefaultCooldown. A background goroutine periodically prunes expired
// entries.
func New(cooldown time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	l := &Limiter{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow reports whether a submission from the given author may proceed.
// On acceptance the author's window restarts from now. On rejection the
// previously recorded time is left untouched, so hammering the endpoint
// does not extend the lockout.
func (l *Limiter) Allow(authorID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[authorID]; ok && now.Sub(last) < l.cooldown {
		return false
	}

	l.last[authorID] = now
	return true
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.done:
			return
		}
	}
}

// prune removes entries whose window has fully elapsed.
func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, last := range l.last {
		if now.Sub(last) >= l.cooldown {
			delete(l.last, id)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		close(l.done)
		l.closed = true
	}
}
