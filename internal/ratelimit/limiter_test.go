// ABOUTME: Unit tests for the per-author rate limiter
// ABOUTME: Verifies window semantics with a fake clock

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newFakeClockLimiter returns a limiter whose clock the test controls.
// The background pruner is not started; prune is exercised directly.
func newFakeClockLimiter(cooldown time.Duration) (*Limiter, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := &Limiter{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      func() time.Time { return now },
		done:     make(chan struct{}),
	}
	return l, &now
}

func TestLimiter_WindowSemantics(t *testing.T) {
	l, now := newFakeClockLimiter(20 * time.Second)

	assert.True(t, l.Allow("author-1"), "first submission is accepted")

	*now = now.Add(5 * time.Second)
	assert.False(t, l.Allow("author-1"), "5s after acceptance is inside the window")

	// The rejection at t+5s must not have restarted the window: 25s after
	// the accepted submission (20s mark passed) the author is clear again.
	*now = now.Add(20 * time.Second)
	assert.True(t, l.Allow("author-1"), "rejected attempts do not push the window forward")
}

func TestLimiter_ExactBoundary(t *testing.T) {
	l, now := newFakeClockLimiter(20 * time.Second)

	assert.True(t, l.Allow("author-1"))

	*now = now.Add(21 * time.Second)
	assert.True(t, l.Allow("author-1"), "submission after the cooldown elapses is accepted")

	*now = now.Add(19 * time.Second)
	assert.False(t, l.Allow("author-1"), "the accepted submission restarted the window")
}

func TestLimiter_IndependentAuthors(t *testing.T) {
	l, _ := newFakeClockLimiter(20 * time.Second)

	assert.True(t, l.Allow("author-1"))
	assert.True(t, l.Allow("author-2"), "authors are throttled independently")
	assert.False(t, l.Allow("author-1"))
}

func TestLimiter_Prune(t *testing.T) {
	l, now := newFakeClockLimiter(20 * time.Second)

	l.Allow("author-1")
	l.Allow("author-2")

	*now = now.Add(30 * time.Second)
	l.prune()

	l.mu.Lock()
	remaining := len(l.last)
	l.mu.Unlock()
	assert.Zero(t, remaining, "expired entries are pruned")
}

func TestLimiter_ZeroCooldownUsesDefault(t *testing.T) {
	l := New(0)
	defer l.Close()

	assert.Equal(t, DefaultCooldown, l.cooldown)
	assert.True(t, l.Allow("author-1"))
	assert.False(t, l.Allow("author-1"), "default cooldown throttles an immediate retry")
}

func TestLimiter_CloseIdempotent(t *testing.T) {
	l := New(time.Second)
	l.Close()
	l.Close()
}
