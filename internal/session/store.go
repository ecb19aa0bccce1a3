package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Load when no session exists for the id.
	ErrNotFound = errors.New("session not found")
	// ErrStoreClosed is returned by every call after Close.
	ErrStoreClosed = errors.New("session store closed")
)

// Store persists sessions between requests. Save has overwrite semantics and a
// Load after Save returns an equal session.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by stores whose expiry must be driven externally.
type Sweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}
