package http

import (
	"testing"
	"time"
)

func TestLoginLimiterSweepsIdleVisitorsPeriodically(t *testing.T) {
	start := time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC)
	now := start
	limiter := newLoginLimiter(1, 5)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = start

	limiter.allow("10.0.0.1")
	now = start.Add(30 * time.Second)
	limiter.allow("10.0.0.2")
	if len(limiter.visitors) != 2 {
		t.Fatalf("expected 2 visitors, got %d", len(limiter.visitors))
	}

	now = start.Add(10*time.Minute + 15*time.Second)
	limiter.allow("10.0.0.3")
	if _, ok := limiter.visitors["10.0.0.1"]; ok {
		t.Fatalf("idle visitor survived the sweep")
	}
	if _, ok := limiter.visitors["10.0.0.2"]; !ok {
		t.Fatalf("recent visitor was swept")
	}

	// Within the sweep interval nothing is scanned, even once idle.
	now = start.Add(10*time.Minute + 45*time.Second)
	limiter.allow("10.0.0.4")
	if _, ok := limiter.visitors["10.0.0.2"]; !ok {
		t.Fatalf("sweep ran before its interval elapsed")
	}
	if !limiter.lastSweep.Equal(start.Add(10*time.Minute + 15*time.Second)) {
		t.Fatalf("unexpected last sweep %v", limiter.lastSweep)
	}

	now = start.Add(11*time.Minute + 15*time.Second)
	limiter.allow("10.0.0.3")
	if _, ok := limiter.visitors["10.0.0.2"]; ok {
		t.Fatalf("idle visitor survived the next sweep")
	}
	if len(limiter.visitors) != 2 {
		t.Fatalf("expected 2 visitors, got %d", len(limiter.visitors))
	}
}

func TestLoginLimiterKeepsBurstPerIP(t *testing.T) {
	now := time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC)
	limiter := newLoginLimiter(1, 2)
	limiter.now = func() time.Time { return now }

	if !limiter.allow("a") || !limiter.allow("a") {
		t.Fatalf("burst of 2 rejected")
	}
	if limiter.allow("a") {
		t.Fatalf("third immediate attempt allowed")
	}
	if !limiter.allow("b") {
		t.Fatalf("other IP throttled")
	}
	now = now.Add(time.Second)
	if !limiter.allow("a") {
		t.Fatalf("token not refilled after a second")
	}
}
