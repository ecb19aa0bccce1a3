package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It never expires entries on its
// own: Sweep has to be called by a scheduler.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
	logger   *slog.Logger
	closed   bool
}

// NewMemoryStore returns an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time, logger *slog.Logger) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      now,
		logger:   logger,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Save stores a copy of s. ttl is accepted for interface parity and ignored.
func (m *MemoryStore) Save(_ context.Context, id string, s *Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	m.sessions[id] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) ListIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sweep removes every session idle for longer than maxAge and returns how many
// were removed. A maxAge of zero or less means sessions never expire.
func (m *MemoryStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrStoreClosed
	}
	if maxAge <= 0 {
		return 0, nil
	}

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastUpdated) > maxAge {
			delete(m.sessions, id)
			removed++
			m.logger.Info("swept idle session", "session_id", id, "last_updated", s.LastUpdated)
		}
	}
	if removed > 0 {
		m.logger.Info("session sweep complete", "removed", removed, "remaining", len(m.sessions))
	}
	return removed, nil
}

// Stats summarizes what the store currently holds.
type Stats struct {
	TotalSessions          int     `json:"total_sessions"`
	TotalMessages          int     `json:"total_messages"`
	ScamDetected           int     `json:"scam_detected"`
	AverageMessagesPerSess float64 `json:"average_messages_per_session"`
}

func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Stats
	st.TotalSessions = len(m.sessions)
	for _, s := range m.sessions {
		st.TotalMessages += len(s.Messages)
		if s.ScamDetected {
			st.ScamDetected++
		}
	}
	if st.TotalSessions > 0 {
		st.AverageMessagesPerSess = float64(st.TotalMessages) / float64(st.TotalSessions)
	}
	return st
}
