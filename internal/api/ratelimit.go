package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterPruneEvery = time.Minute
)

// clientLimiter is a token bucket per client. A non-positive rate disables it.
type clientLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.RWMutex
	clients   map[string]*clientEntry
	lastPrune time.Time
}

type clientEntry struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int, now func() time.Time) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	if now == nil {
		now = time.Now
	}
	return &clientLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     now,
		clients: make(map[string]*clientEntry),
	}
}

func (l *clientLimiter) enabled() bool {
	return l != nil && l.rps > 0
}

// Allow consumes one token for client.
func (l *clientLimiter) Allow(client string) bool {
	if !l.enabled() {
		return true
	}
	now := l.now()
	e := l.entry(client, now)

	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (l *clientLimiter) entry(client string, now time.Time) *clientEntry {
	l.mu.RLock()
	e, ok := l.clients[client]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock.
	if e, ok := l.clients[client]; ok {
		return e
	}
	if now.Sub(l.lastPrune) >= limiterPruneEvery {
		l.pruneLocked(now)
	}
	e = &clientEntry{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now}
	l.clients[client] = e
	return e
}

func (l *clientLimiter) pruneLocked(now time.Time) {
	for id, e := range l.clients {
		e.mu.Lock()
		idle := now.Sub(e.lastSeen)
		e.mu.Unlock()
		if idle > limiterIdleTTL {
			delete(l.clients, id)
		}
	}
	l.lastPrune = now
}

func (l *clientLimiter) size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}
