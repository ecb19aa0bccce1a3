package api

import (
	"testing"
	"time"
)

func TestClientLimiterDisabled(t *testing.T) {
	l := newClientLimiter(0, 0, nil)
	for i := 0; i < 100; i++ {
		if !l.Allow("203.0.113.7") {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
	if l.size() != 0 {
		t.Errorf("disabled limiter should not track clients, got %d", l.size())
	}
}

func TestClientLimiterPerClient(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 1, func() time.Time { return now })

	if !l.Allow("a") {
		t.Fatal("first request from a should pass")
	}
	if l.Allow("a") {
		t.Fatal("second request from a should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("client b has its own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("bucket should refill after a second")
	}
}

func TestClientLimiterPrunesIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(5, 5, func() time.Time { return now })

	l.Allow("old")
	now = now.Add(limiterIdleTTL + time.Minute)
	l.Allow("new")

	if l.size() != 1 {
		t.Errorf("expected idle client to be pruned, have %d clients", l.size())
	}
}
