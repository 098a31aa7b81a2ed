// Package migration creates the schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is visible only after the migration transaction has committed.
const sentinelTable = "public.recent_views"

var steps = []migrationStep{
	{
		Name: "create_extension_pgcrypto",
		SQL:  `CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id              UUID        PRIMARY KEY DEFAULT gen_random_uuid(),
  title           TEXT        NOT NULL CHECK (btrim(title) <> ''),
  description     TEXT        NOT NULL DEFAULT '',
  content_handle  TEXT        NOT NULL UNIQUE,
  file_type       TEXT        NOT NULL DEFAULT '',
  file_size       BIGINT      NOT NULL CHECK (file_size >= 0),
  mime_type       TEXT        NOT NULL DEFAULT '',
  document_type   TEXT        NOT NULL CHECK (document_type IN ('bank_statement', 'invoice', 'tax_form', 'receipt', 'contract', 'other')),
  document_date   DATE,
  metadata        JSONB,
  owner_id        TEXT        NOT NULL,
  is_confidential BOOLEAN     NOT NULL DEFAULT false,
  access_level    TEXT        NOT NULL DEFAULT 'private' CHECK (access_level IN ('private', 'shared', 'public')),
  version         INTEGER     NOT NULL DEFAULT 1 CHECK (version >= 1),
  parent_id       UUID        REFERENCES documents (id),
  is_active       BOOLEAN     NOT NULL DEFAULT true,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT documents_root_version CHECK ((version = 1) = (parent_id IS NULL))
);`,
	},
	{
		Name: "create_index_documents_owner_created",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_created ON documents (owner_id, created_at DESC, id DESC) WHERE is_active;`,
	},
	{
		Name: "create_index_documents_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_document_type ON documents (document_type) WHERE is_active;`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at DESC, id DESC) WHERE is_active;`,
	},
	{
		Name: "create_index_documents_parent",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_parent_id ON documents (parent_id, version) WHERE parent_id IS NOT NULL;`,
	},
	{
		Name: "create_table_recent_views",
		SQL: `CREATE TABLE IF NOT EXISTS recent_views (
  user_id     TEXT        NOT NULL,
  document_id UUID        NOT NULL REFERENCES documents (id),
  viewed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (user_id, document_id)
);`,
	},
	{
		Name: "create_index_recent_views_user_viewed",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_recent_views_user_viewed ON recent_views (user_id, viewed_at DESC, document_id DESC);`,
	},
}

// EnsureMigrated checks for the sentinel table and, if it is missing, runs
// every step in one transaction.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int("steps", len(steps)))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
