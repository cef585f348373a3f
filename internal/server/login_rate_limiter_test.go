package server

import (
	"testing"
	"time"
)

func TestLoginThrottleBlocksAfterRepeatedFailures(t *testing.T) {
	throttle := NewLoginThrottle(2, time.Minute, 10*time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	const key = "198.51.100.7"

	for attempt := 1; attempt <= 2; attempt++ {
		if !throttle.Allow(key, now) {
			t.Fatalf("attempt %d: expected to be allowed", attempt)
		}
		throttle.RegisterFailure(key, now)
	}
	if throttle.Allow(key, now.Add(time.Minute)) {
		t.Fatal("expected key to be blocked")
	}
	if !throttle.Allow("203.0.113.9", now) {
		t.Fatal("expected other key to be allowed")
	}
	if !throttle.Allow(key, now.Add(11*time.Minute)) {
		t.Fatal("expected block to expire")
	}
}

func TestLoginThrottleWindowAndReset(t *testing.T) {
	throttle := NewLoginThrottle(2, time.Minute, 10*time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	const key = "198.51.100.7"

	throttle.RegisterFailure(key, now)
	throttle.RegisterFailure(key, now.Add(2*time.Minute))
	if !throttle.Allow(key, now.Add(2*time.Minute)) {
		t.Fatal("failures outside the window should not block")
	}

	throttle.RegisterFailure(key, now.Add(3*time.Minute))
	throttle.Reset(key)
	throttle.RegisterFailure(key, now.Add(3*time.Minute))
	if !throttle.Allow(key, now.Add(3*time.Minute)) {
		t.Fatal("reset should clear earlier failures")
	}
	if throttle.Len() != 1 {
		t.Fatalf("expected one tracked key, got %d", throttle.Len())
	}
}

func TestLoginThrottleDisabled(t *testing.T) {
	throttle := NewLoginThrottle(0, time.Minute, time.Minute)
	if throttle != nil {
		t.Fatal("expected nil throttle when disabled")
	}
	now := time.Now()
	throttle.RegisterFailure("k", now)
	if !throttle.Allow("k", now) {
		t.Fatal("nil throttle should allow")
	}
	throttle.Reset("k")
	if throttle.Len() != 0 {
		t.Fatal("nil throttle tracks nothing")
	}
}
