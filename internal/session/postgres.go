package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS honeypot_sessions (
		id          TEXT PRIMARY KEY,
		data        JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at  TIMESTAMPTZ
	)`

// PostgresStore keeps one JSONB row per session. Rows past expires_at are
// invisible to reads and removed by Sweep.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const (
	pgConnectTimeout   = 5 * time.Second
	pgStatementTimeout = "5000" // ms
)

// NewPostgresStore connects, pings, and makes sure the sessions table exists.
// Connects and statements are bounded unless the URL sets its own limits.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createSessionsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.ConnConfig.ConnectTimeout == 0 {
		cfg.ConnConfig.ConnectTimeout = pgConnectTimeout
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["statement_timeout"]; !ok {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = pgStatementTimeout
	}
	return cfg, nil
}

func (p *PostgresStore) Load(ctx context.Context, id string) (*Session, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT data FROM honeypot_sessions
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())`,
		id,
	)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	return &s, nil
}

// Save upserts the row. A non-positive ttl leaves the row without expiry.
func (p *PostgresStore) Save(ctx context.Context, id string, s *Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl).UTC()
		expiresAt = &t
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO honeypot_sessions (id, data, updated_at, expires_at)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (id)
		DO UPDATE SET
			data = $2,
			updated_at = now(),
			expires_at = $3`,
		id, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM honeypot_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (p *PostgresStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id FROM honeypot_sessions
		WHERE expires_at IS NULL OR expires_at > now()
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Sweep deletes expired rows and rows idle longer than maxAge. maxAge <= 0
// only removes expired rows.
func (p *PostgresStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).UTC()
		tag, err = p.pool.Exec(ctx, `
			DELETE FROM honeypot_sessions
			WHERE (expires_at IS NOT NULL AND expires_at <= now()) OR updated_at < $1`,
			cutoff,
		)
	} else {
		tag, err = p.pool.Exec(ctx, `
			DELETE FROM honeypot_sessions
			WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	}
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
