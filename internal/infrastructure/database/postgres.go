package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the pgx pool. Zero fields keep the defaults below.
type PoolOptions struct {
	MaxConns        int32
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
}

const (
	defaultMaxConns        = 8
	defaultMaxConnIdleTime = 5 * time.Minute
	defaultMaxConnLifetime = time.Hour
	defaultHealthCheck     = time.Minute
)

// Connect opens a pgx pool for dsn and pings it.
// SQLAlchemy-style DSNs such as postgresql+asyncpg:// are accepted.
func Connect(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	normalized := normalizeDSN(dsn)
	if normalized == "" {
		return nil, errors.New("postgres: empty DB_URL")
	}

	cfg, err := pgxpool.ParseConfig(normalized)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = pick(opts.MaxConns, defaultMaxConns)
	cfg.MaxConnIdleTime = pick(opts.MaxConnIdleTime, defaultMaxConnIdleTime)
	cfg.MaxConnLifetime = pick(opts.MaxConnLifetime, defaultMaxConnLifetime)
	cfg.HealthCheckPeriod = defaultHealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func pick[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

// Execer runs a statement; *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema holds the chat tables. Every statement is idempotent.
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS chat`,
	`CREATE TABLE IF NOT EXISTS chat.conversation (
		id            text PRIMARY KEY,
		participant_a text NOT NULL,
		participant_b text NOT NULL,
		last_message  text NOT NULL DEFAULT '',
		updated_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS conversation_participant_a_idx ON chat.conversation (participant_a, updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS conversation_participant_b_idx ON chat.conversation (participant_b, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS chat.conversation_unread (
		conversation_id text NOT NULL,
		user_id         text NOT NULL,
		unread_count    integer NOT NULL DEFAULT 0 CHECK (unread_count >= 0),
		PRIMARY KEY (conversation_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS chat.message (
		id                uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		conversation_id   text NOT NULL,
		sender_id         text NOT NULL,
		body              text NOT NULL,
		client_message_id text,
		created_at        timestamptz NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS message_conversation_created_idx ON chat.message (conversation_id, created_at, id)`,
}

// ApplySchema creates the chat tables when missing.
func ApplySchema(ctx context.Context, db Execer) error {
	for _, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: apply schema: %w", err)
		}
	}
	return nil
}

// normalizeDSN converts known non-pgx DSN variants to a pgx-compatible DSN.
func normalizeDSN(dsn string) string {
	s := strings.TrimSpace(dsn)
	for _, driver := range []string{"+asyncpg", "+pgx", "+psycopg2"} {
		for _, scheme := range []string{"postgresql", "postgres"} {
			if strings.HasPrefix(s, scheme+driver+"://") {
				return scheme + strings.TrimPrefix(s, scheme+driver)
			}
		}
	}
	return s
}
