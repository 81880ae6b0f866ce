// Package storage opens the gateway database and maintains its schema. The
// channel registry, the quota ledger, and the key store all share one
// database handle.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/cheluen/new-api-workers/internal/storage/dialect"
)

// Config holds database connection settings.
type Config struct {
	Driver string // sqlite, postgres
	DSN    string
}

// DB bundles the connection with its dialect.
type DB struct {
	*sqlx.DB
	Dialect dialect.Dialect
}

// Open connects to the configured database, runs dialect initialization, and
// ensures the schema exists.
func Open(cfg Config) (*DB, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma: %w", err)
		}
	}

	s := &DB{DB: db, Dialect: d}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *DB) ensureSchema() error {
	ts := s.Dialect.TimestampType()
	ai := s.Dialect.AutoIncrementClause()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS channels (
id %s,
name TEXT NOT NULL UNIQUE,
type TEXT NOT NULL,
api_key TEXT NOT NULL DEFAULT '',
base_url TEXT NOT NULL DEFAULT '',
models TEXT NOT NULL DEFAULT '*',
model_map TEXT NOT NULL DEFAULT '',
status INTEGER NOT NULL DEFAULT 1,
priority INTEGER NOT NULL DEFAULT 0,
weight INTEGER NOT NULL DEFAULT 1,
created_at %s NOT NULL,
updated_at %s NOT NULL
)`, ai, ts, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS accounts (
id %s,
name TEXT NOT NULL DEFAULT '',
used_quota BIGINT NOT NULL DEFAULT 0,
request_count BIGINT NOT NULL DEFAULT 0,
created_at %s NOT NULL
)`, ai, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tokens (
id %s,
account_id BIGINT NOT NULL,
name TEXT NOT NULL DEFAULT '',
key_hash TEXT NOT NULL UNIQUE,
status INTEGER NOT NULL DEFAULT 1,
quota BIGINT NOT NULL DEFAULT 0,
used_quota BIGINT NOT NULL DEFAULT 0,
request_count BIGINT NOT NULL DEFAULT 0,
models TEXT NOT NULL DEFAULT '',
expires_at %s,
created_at %s NOT NULL
)`, ai, ts, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS usage_logs (
id %s,
account_id BIGINT NOT NULL,
token_id BIGINT NOT NULL,
channel_id BIGINT NOT NULL,
model TEXT NOT NULL,
prompt_tokens INTEGER NOT NULL DEFAULT 0,
completion_tokens INTEGER NOT NULL DEFAULT 0,
quota BIGINT NOT NULL DEFAULT 0,
correlation_id TEXT NOT NULL DEFAULT '',
status_code INTEGER NOT NULL DEFAULT 0,
created_at %s NOT NULL
)`, ai, ts),
		`CREATE INDEX IF NOT EXISTS idx_usage_logs_token ON usage_logs(token_id)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_logs_account ON usage_logs(account_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
