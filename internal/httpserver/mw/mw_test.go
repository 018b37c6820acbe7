package mw

import (
	"testing"
	"time"
)

func TestLimiterRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 60, Now: func() time.Time { return now }})

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.take("10.0.0.1"); !ok {
			t.Fatalf("take %d rejected within burst", i)
		}
	}
	ok, _, retry := l.take("10.0.0.1")
	if ok {
		t.Fatal("take over burst allowed")
	}
	if retry != 1 {
		t.Errorf("retry = %d, want 1", retry)
	}
	if ok, _, _ := l.take("10.0.0.2"); !ok {
		t.Error("other client shares the bucket")
	}

	now = now.Add(time.Second)
	if ok, _, _ := l.take("10.0.0.1"); !ok {
		t.Error("token not refilled after one second")
	}
}

func TestLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(RateLimitConfig{Burst: 1, MaxEntries: 1, IdleTTL: time.Minute, Now: func() time.Time { return now }})

	l.take("a")
	now = now.Add(2 * time.Minute)
	l.take("b")

	if _, ok := l.buckets["a"]; ok {
		t.Error("idle bucket was not swept")
	}
}

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"links.example.com", "links.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evil.com", "*.example.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}
