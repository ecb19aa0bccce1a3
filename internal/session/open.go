package session

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendAuto     = "auto"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// OpenOptions selects and configures the session backend.
type OpenOptions struct {
	Backend     string
	RedisURL    string
	DatabaseURL string
}

// Open picks the store once at startup and returns it with the name of the
// backend in use.
//
// An explicit backend must connect or Open fails. In auto mode Redis is tried
// when a URL is set, then Postgres, and the memory store is the last resort.
func Open(ctx context.Context, opts OpenOptions, logger *slog.Logger) (Store, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(nil, logger), BackendMemory, nil

	case BackendRedis:
		s, err := NewRedisStore(ctx, opts.RedisURL)
		if err != nil {
			return nil, "", fmt.Errorf("open redis store: %w", err)
		}
		return s, BackendRedis, nil

	case BackendPostgres:
		s, err := NewPostgresStore(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres store: %w", err)
		}
		return s, BackendPostgres, nil

	case BackendAuto, "":
		if opts.RedisURL != "" {
			s, err := NewRedisStore(ctx, opts.RedisURL)
			if err == nil {
				logger.Info("session store connected", "backend", BackendRedis)
				return s, BackendRedis, nil
			}
			logger.Warn("redis unavailable", "error", err)
		}
		if opts.DatabaseURL != "" {
			s, err := NewPostgresStore(ctx, opts.DatabaseURL)
			if err == nil {
				logger.Info("session store connected", "backend", BackendPostgres)
				return s, BackendPostgres, nil
			}
			logger.Warn("postgres unavailable", "error", err)
		}
		logger.Warn("using in-memory session storage, sessions will not survive a restart")
		return NewMemoryStore(nil, logger), BackendMemory, nil

	default:
		return nil, "", fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
