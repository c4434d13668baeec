package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestSlidingWindow_Allow(t *testing.T) {
	sw := NewSlidingWindow(3, time.Minute)

	// Should allow first 3 events
	for i := 0; i < 3; i++ {
		if !sw.Allow("user1") {
			t.Errorf("Event %d should be allowed", i+1)
		}
	}

	// 4th event inside the window should be denied
	if sw.Allow("user1") {
		t.Error("4th event should be denied")
	}

	// Different key should have its own window
	if !sw.Allow("user2") {
		t.Error("First event for user2 should be allowed")
	}
}

func TestSlidingWindow_WindowSlides(t *testing.T) {
	sw := NewSlidingWindow(2, 50*time.Millisecond)

	if !sw.Allow("test") || !sw.Allow("test") {
		t.Error("First 2 events should be allowed")
	}
	if sw.Allow("test") {
		t.Error("3rd event inside the window should be denied")
	}

	// After the window passes, old events no longer count
	time.Sleep(60 * time.Millisecond)

	if !sw.Allow("test") {
		t.Error("Event after the window should be allowed")
	}
}

func TestSlidingWindow_DeniedEventNotRecorded(t *testing.T) {
	sw := NewSlidingWindow(1, 50*time.Millisecond)

	if !sw.Allow("test") {
		t.Error("First event should be allowed")
	}

	// Denied attempts must not extend the key's window
	for i := 0; i < 5; i++ {
		sw.Allow("test")
	}

	time.Sleep(60 * time.Millisecond)

	if !sw.Allow("test") {
		t.Error("Event after the window should be allowed despite denied attempts")
	}
}

func TestSlidingWindow_Reset(t *testing.T) {
	sw := NewSlidingWindow(1, time.Minute)

	sw.Allow("test")
	if sw.Allow("test") {
		t.Error("2nd event should be denied")
	}

	sw.Reset("test")

	if !sw.Allow("test") {
		t.Error("Event after reset should be allowed")
	}
}

func TestSlidingWindow_ConcurrentAccess(t *testing.T) {
	sw := NewSlidingWindow(50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if sw.Allow("concurrent") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// Exactly the limit should get through
	if allowed != 50 {
		t.Errorf("Expected 50 allowed events, got %d", allowed)
	}
}
