// Package ratelimit implements per-actor sliding-window admission control.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultQuota  = 5
)

// Limiter admits at most quota actions per actor within any trailing window.
// All action kinds share one quota.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	quota  int
	now    func() time.Time
	hits   map[string][]time.Time
}

func New(window time.Duration, quota int, now func() time.Time) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	if now == nil {
		now = time.Now
	}

	return &Limiter{window: window, quota: quota, now: now, hits: map[string][]time.Time{}}
}

// Admit records an action for actor and reports whether it is allowed. A
// rejected attempt is not recorded.
func (l *Limiter) Admit(actor string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.pruneLocked(actor, now)
	if len(recent) >= l.quota {
		return false
	}

	l.hits[actor] = append(recent, now)
	return true
}

// Remaining reports how many more actions actor may take right now.
func (l *Limiter) Remaining(actor string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.quota - len(l.pruneLocked(actor, now))
}

// Prune drops stale timestamps for every actor and returns the number of
// actors still tracked.
func (l *Limiter) Prune() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for actor := range l.hits {
		l.pruneLocked(actor, now)
	}
	return len(l.hits)
}

func (l *Limiter) pruneLocked(actor string, now time.Time) []time.Time {
	hits := l.hits[actor]
	cutoff := now.Add(-l.window)

	keep := 0
	for keep < len(hits) && !hits[keep].After(cutoff) {
		keep++
	}
	recent := hits[keep:]

	if len(recent) == 0 {
		delete(l.hits, actor)
		return nil
	}
	l.hits[actor] = recent
	return recent
}
