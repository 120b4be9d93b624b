package ledger

import (
	"context"
	"fmt"

	"github.com/epochlabs/ledgerx/pkg/db/postgres"
	"go.uber.org/zap"
)

// DB is the Postgres-backed ledger store. It implements Store.
type DB struct {
	postgres.Client
}

// New creates the ledger store, connecting to Postgres and ensuring the schema exists.
func New(ctx context.Context, logger *zap.Logger, poolConfig ...*postgres.PoolConfig) (*DB, error) {
	client, err := postgres.New(ctx, logger.With(zap.String("db", "ledger")), poolConfig...)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client}

	if err := db.InitializeDB(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitializeDB ensures the ledger tables exist. The unique constraints below
// are load-bearing: epoch create-or-find, event insert-or-skip and curation
// insert-if-absent all rely on the database detecting conflicts.
func (db *DB) InitializeDB(ctx context.Context) error {
	stmts := []struct {
		name  string
		query string
	}{
		{"epochs", `
			CREATE TABLE IF NOT EXISTS epochs (
				id            BIGSERIAL PRIMARY KEY,
				node_id       TEXT        NOT NULL,
				scope_id      TEXT        NOT NULL,
				period_start  TIMESTAMPTZ NOT NULL,
				period_end    TIMESTAMPTZ NOT NULL,
				status        TEXT        NOT NULL DEFAULT 'open',
				weights       JSONB       NOT NULL DEFAULT '{}'::jsonb,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT epochs_window_key UNIQUE (node_id, scope_id, period_start, period_end)
			)`},
		{"sync_cursors", `
			CREATE TABLE IF NOT EXISTS sync_cursors (
				node_id     TEXT        NOT NULL,
				scope_id    TEXT        NOT NULL,
				source      TEXT        NOT NULL,
				stream      TEXT        NOT NULL,
				source_ref  TEXT        NOT NULL,
				value       TEXT        NOT NULL,
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (node_id, scope_id, source, stream, source_ref)
			)`},
		{"activity_events", `
			CREATE TABLE IF NOT EXISTS activity_events (
				id               TEXT PRIMARY KEY,
				node_id          TEXT        NOT NULL,
				scope_id         TEXT        NOT NULL,
				source           TEXT        NOT NULL,
				event_type       TEXT        NOT NULL,
				external_user_id TEXT        NOT NULL DEFAULT '',
				external_login   TEXT        NOT NULL DEFAULT '',
				artifact_url     TEXT        NOT NULL DEFAULT '',
				metadata         JSONB,
				payload_hash     TEXT        NOT NULL DEFAULT '',
				producer         TEXT        NOT NULL DEFAULT '',
				producer_version TEXT        NOT NULL DEFAULT '',
				event_time       TIMESTAMPTZ NOT NULL,
				retrieved_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`},
		{"activity_events_time_idx", `
			CREATE INDEX IF NOT EXISTS activity_events_node_time_idx
				ON activity_events (node_id, event_time)`},
		{"curations", `
			CREATE TABLE IF NOT EXISTS curations (
				epoch_id               BIGINT      NOT NULL,
				event_id               TEXT        NOT NULL,
				node_id                TEXT        NOT NULL,
				user_id                TEXT,
				included               BOOLEAN     NOT NULL DEFAULT TRUE,
				included_override      BOOLEAN,
				weight_override_milli  BIGINT,
				note                   TEXT,
				created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (epoch_id, event_id)
			)`},
		{"identities", `
			CREATE TABLE IF NOT EXISTS identities (
				source       TEXT NOT NULL,
				external_id  TEXT NOT NULL,
				user_id      TEXT NOT NULL,
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (source, external_id)
			)`},
	}

	for _, stmt := range stmts {
		if err := db.Exec(ctx, stmt.query); err != nil {
			return fmt.Errorf("create %s: %w", stmt.name, err)
		}
	}

	db.Logger.Info("Ledger schema ready")
	return nil
}

// Health verifies the database connection.
func (db *DB) Health(ctx context.Context) error {
	return db.Ping(ctx)
}
