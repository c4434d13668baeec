package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestTokenBucket_Allow(t *testing.T) {
	bucket := NewTokenBucket(3, 1) // 3 capacity, 1 refill per second

	for i := 0; i < 3; i++ {
		if !bucket.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if bucket.Allow() {
		t.Error("Request over capacity should be denied")
	}

	// One token refills after a second
	time.Sleep(1100 * time.Millisecond)

	if !bucket.Allow() {
		t.Error("Request after refill should be allowed")
	}
	if bucket.Allow() {
		t.Error("Only one token should have refilled")
	}
}

func TestRateLimiter_PerKey(t *testing.T) {
	limiter := NewRateLimiter(2, 1)

	limiter.Allow("user1")
	limiter.Allow("user1")
	if limiter.Allow("user1") {
		t.Error("user1 over capacity should be denied")
	}

	// Each key gets its own bucket
	if !limiter.Allow("user2") {
		t.Error("user2 should be allowed")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := NewRateLimiter(4, 2) // refills 2 per second

	for i := 0; i < 4; i++ {
		limiter.Allow("test")
	}
	if limiter.Allow("test") {
		t.Error("Request should be denied after consuming all tokens")
	}

	time.Sleep(1100 * time.Millisecond)

	if !limiter.Allow("test") || !limiter.Allow("test") {
		t.Error("Should allow 2 requests after refill")
	}
	if limiter.Allow("test") {
		t.Error("3rd request should be denied")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter := NewRateLimiter(1, 1)

	limiter.Allow("test")
	if limiter.Allow("test") {
		t.Error("Request should be denied")
	}

	limiter.Reset("test")

	if !limiter.Allow("test") {
		t.Error("Request should be allowed after reset")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewRateLimiter(50, 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if limiter.Allow("concurrent") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// Exactly the capacity should get through
	if allowed != 50 {
		t.Errorf("Expected 50 allowed requests, got %d", allowed)
	}
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	limiter := NewRateLimiter(1000000, 100000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow("bench")
	}
}
