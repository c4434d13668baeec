package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow limits each key to at most `limit` events within a rolling
// time window. Unlike TokenBucket it counts discrete events with exact
// window semantics, which suits low-volume quotas (e.g. N invitations
// per minute).
type SlidingWindow struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
}

// NewSlidingWindow creates a sliding window limiter
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Allow records an event for the key if the key is under its limit
func (sw *SlidingWindow) Allow(key string) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-sw.window)

	kept := sw.events[key][:0]
	for _, t := range sw.events[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= sw.limit {
		sw.events[key] = kept
		return false
	}

	sw.events[key] = append(kept, now)
	return true
}

// Reset clears the recorded events for a key
func (sw *SlidingWindow) Reset(key string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	delete(sw.events, key)
}
