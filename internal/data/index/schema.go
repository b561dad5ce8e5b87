package index

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the newest migration this build knows.
const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  started_utc TEXT NOT NULL,
  duration_ms INTEGER NOT NULL,
  file_count INTEGER NOT NULL,
  failure_count INTEGER NOT NULL,
  created_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
CREATE TABLE IF NOT EXISTS files (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  path TEXT NOT NULL,
  status TEXT NOT NULL,
  error_code TEXT NOT NULL DEFAULT '',
  error_line INTEGER NOT NULL DEFAULT 0,
  message TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, path)
);
CREATE TABLE IF NOT EXISTS symbols (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  state TEXT NOT NULL,
  file TEXT NOT NULL DEFAULT '',
  start_line INTEGER NOT NULL DEFAULT 0,
  end_line INTEGER NOT NULL DEFAULT 0,
  class_kind TEXT NOT NULL DEFAULT '',
  modifiers INTEGER NOT NULL DEFAULT 0,
  parent TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, kind, name)
);
CREATE TABLE IF NOT EXISTS members (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  class_name TEXT NOT NULL,
  member_kind TEXT NOT NULL,
  name TEXT NOT NULL,
  declaring_class TEXT NOT NULL,
  declaring_trait TEXT NOT NULL DEFAULT '',
  modifiers INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (run_id, class_name, member_kind, name)
);
CREATE TABLE IF NOT EXISTS conflict_reasons (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  seq INTEGER NOT NULL,
  message TEXT NOT NULL,
  PRIMARY KEY (run_id, kind, name, seq)
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_utc);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE runs ADD COLUMN problem_count INTEGER NOT NULL DEFAULT 0;
ALTER TABLE symbols ADD COLUMN deprecated INTEGER NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS idx_members_declaring ON members(run_id, declaring_class);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
