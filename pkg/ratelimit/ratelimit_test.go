package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(window)
	l.now = clock.now
	return l, clock
}

func TestAllowExhaustsAndRefills(t *testing.T) {
	l, clock := newTestLimiter(time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1", 3), "request %d", i)
	}
	assert.False(t, l.Allow("10.0.0.1", 3))
	assert.True(t, l.Allow("10.0.0.2", 3), "keys are independent")

	clock.advance(20 * time.Second)
	assert.True(t, l.Allow("10.0.0.1", 3))
	assert.False(t, l.Allow("10.0.0.1", 3))
}

func TestRefillIsCapped(t *testing.T) {
	l, clock := newTestLimiter(time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("k", 2))
	clock.advance(time.Hour)
	assert.True(t, l.Allow("k", 2))
	assert.True(t, l.Allow("k", 2))
	assert.False(t, l.Allow("k", 2))
}

func TestNonPositiveLimitAllows(t *testing.T) {
	l, _ := newTestLimiter(time.Minute)
	defer l.Stop()
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k", 0))
	}
	assert.Zero(t, l.Len())
	assert.Zero(t, l.RetryAfter(0))
}

func TestResetAndEviction(t *testing.T) {
	l, clock := newTestLimiter(time.Minute)
	defer l.Stop()

	l.Allow("a", 1)
	assert.False(t, l.Allow("a", 1))
	l.Reset("a")
	assert.True(t, l.Allow("a", 1))

	l.Allow("b", 1)
	assert.Equal(t, 2, l.Len())
	clock.advance(3 * time.Minute)
	l.evictIdle()
	assert.Zero(t, l.Len())
}

func TestRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(time.Minute)
	defer l.Stop()
	assert.Equal(t, time.Second, l.RetryAfter(60))
}

func TestStopIsIdempotent(t *testing.T) {
	l := New(time.Minute)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}
