package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func TestLimiterAdmitsExactlyQuotaWithinWindow(t *testing.T) {
	clock := newStepClock()
	limiter := New(time.Minute, 5, clock.Now)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Admit("u1"), "attempt %d", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, limiter.Admit("u1"))
	assert.Equal(t, 0, limiter.Remaining("u1"))

	// Other actors have their own window.
	assert.True(t, limiter.Admit("u2"))
}

func TestLimiterRejectionIsNotRecorded(t *testing.T) {
	clock := newStepClock()
	limiter := New(time.Minute, 2, clock.Now)

	assert.True(t, limiter.Admit("u1"))
	assert.True(t, limiter.Admit("u1"))
	clock.Advance(30 * time.Second)
	assert.False(t, limiter.Admit("u1"))

	// The first two hits age out at +60s; the rejected one at +30s must not
	// keep the window full.
	clock.Advance(30 * time.Second)
	assert.True(t, limiter.Admit("u1"))
	assert.True(t, limiter.Admit("u1"))
	assert.False(t, limiter.Admit("u1"))
}

func TestLimiterSlidingWindow(t *testing.T) {
	clock := newStepClock()
	limiter := New(time.Minute, 3, clock.Now)

	assert.True(t, limiter.Admit("u1"))
	clock.Advance(20 * time.Second)
	assert.True(t, limiter.Admit("u1"))
	clock.Advance(20 * time.Second)
	assert.True(t, limiter.Admit("u1"))
	clock.Advance(19 * time.Second)
	assert.False(t, limiter.Admit("u1"))

	clock.Advance(time.Second)
	assert.True(t, limiter.Admit("u1"), "oldest hit left the window")
	assert.False(t, limiter.Admit("u1"))
}

func TestLimiterPruneDropsIdleActors(t *testing.T) {
	clock := newStepClock()
	limiter := New(time.Minute, 5, clock.Now)

	limiter.Admit("u1")
	limiter.Admit("u2")
	assert.Equal(t, 2, limiter.Prune())

	clock.Advance(time.Minute)
	assert.Equal(t, 0, limiter.Prune())
	assert.Equal(t, 5, limiter.Remaining("u1"))
}

func TestLimiterConcurrentAdmitNeverExceedsQuota(t *testing.T) {
	limiter := New(time.Hour, 5, newStepClock().Now)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit("u1") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), admitted.Load())
}

func TestLimiterDefaults(t *testing.T) {
	limiter := New(0, 0, nil)
	assert.Equal(t, DefaultQuota, limiter.Remaining("anyone"))
}
