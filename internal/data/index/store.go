// Package index persists analysis runs to SQLite so that symbol tables can
// be queried and compared after the process exits.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"phpmodel/internal/engine/reflection"
	"phpmodel/internal/shared/observability"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// File statuses.
const (
	StatusParsed  = "parsed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Symbol states.
const (
	StateLive       = "live"
	StateConflict   = "conflict"
	StateUnresolved = "unresolved"
)

type Run struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Problems int
	Files    []FileRecord
}

type FileRecord struct {
	Path    string
	Status  string
	Code    string
	Line    int
	Message string
}

type RunInfo struct {
	ID           string
	Started      time.Time
	Duration     time.Duration
	FileCount    int
	FailureCount int
	ProblemCount int
}

type Symbol struct {
	Kind       string
	Name       string
	State      string
	File       string
	StartLine  int
	EndLine    int
	ClassKind  string
	Modifiers  int
	Parent     string
	Summary    string
	Deprecated bool
}

type Member struct {
	ClassName      string
	Kind           string
	Name           string
	DeclaringClass string
	DeclaringTrait string
	Modifiers      int
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("index path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("index path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite index %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun writes the run, its files and every registry entry in a single
// transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, reg *reflection.Registry) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if reg == nil {
		return fmt.Errorf("run %s has no registry", run.ID)
	}
	symbols, members, reasons := collect(reg)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		failures := 0
		for _, f := range run.Files {
			if f.Status == StatusFailed {
				failures++
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs(run_id, started_utc, duration_ms, file_count, failure_count, problem_count) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, run.Started.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds(), len(run.Files), failures, run.Problems,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, f := range run.Files {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO files(run_id, path, status, error_code, error_line, message) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, f.Path, f.Status, f.Code, f.Line, f.Message,
			); err != nil {
				return fmt.Errorf("insert file %s: %w", f.Path, err)
			}
		}
		for _, sym := range symbols {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO symbols(run_id, kind, name, state, file, start_line, end_line, class_kind, modifiers, parent, summary, deprecated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, sym.Kind, sym.Name, sym.State, sym.File, sym.StartLine, sym.EndLine,
				sym.ClassKind, sym.Modifiers, sym.Parent, sym.Summary, sym.Deprecated,
			); err != nil {
				return fmt.Errorf("insert symbol %s: %w", sym.Name, err)
			}
		}
		for _, m := range members {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO members(run_id, class_name, member_kind, name, declaring_class, declaring_trait, modifiers) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				run.ID, m.ClassName, m.Kind, m.Name, m.DeclaringClass, m.DeclaringTrait, m.Modifiers,
			); err != nil {
				return fmt.Errorf("insert member %s::%s: %w", m.ClassName, m.Name, err)
			}
		}
		for _, r := range reasons {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO conflict_reasons(run_id, kind, name, seq, message) VALUES (?, ?, ?, ?, ?)`,
				run.ID, r.kind, r.name, r.seq, r.message,
			); err != nil {
				return fmt.Errorf("insert conflict reason for %s: %w", r.name, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		observability.IndexWritesTotal.WithLabelValues("runs").Inc()
		observability.IndexWritesTotal.WithLabelValues("files").Add(float64(len(run.Files)))
		observability.IndexWritesTotal.WithLabelValues("symbols").Add(float64(len(symbols)))
		observability.IndexWritesTotal.WithLabelValues("members").Add(float64(len(members)))
		observability.IndexWritesTotal.WithLabelValues("conflict_reasons").Add(float64(len(reasons)))
		return nil
	})
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, started_utc, duration_ms, file_count, failure_count, problem_count
FROM runs ORDER BY started_utc DESC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info       RunInfo
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(&info.ID, &startedRaw, &durationMS, &info.FileCount, &info.FailureCount, &info.ProblemCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		info.Started = started.UTC()
		info.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}

// Symbols returns every symbol of a run ordered by kind and name.
func (s *Store) Symbols(ctx context.Context, runID string) ([]Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
SELECT kind, name, state, file, start_line, end_line, class_kind, modifiers, parent, summary, deprecated
FROM symbols WHERE run_id = ? ORDER BY kind ASC, name ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	defer rows.Close()

	var out []Symbol
	for rows.Next() {
		var sym Symbol
		if err := rows.Scan(&sym.Kind, &sym.Name, &sym.State, &sym.File, &sym.StartLine, &sym.EndLine,
			&sym.ClassKind, &sym.Modifiers, &sym.Parent, &sym.Summary, &sym.Deprecated); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		out = append(out, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}
	return out, nil
}

// Members returns the composed members of one class in a run.
func (s *Store) Members(ctx context.Context, runID, class string) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
SELECT class_name, member_kind, name, declaring_class, declaring_trait, modifiers
FROM members WHERE run_id = ? AND class_name = ? ORDER BY member_kind ASC, name ASC`, runID, class)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ClassName, &m.Kind, &m.Name, &m.DeclaringClass, &m.DeclaringTrait, &m.Modifiers); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return out, nil
}

// ConflictReasons returns the recorded reasons for a conflicting name.
func (s *Store) ConflictReasons(ctx context.Context, runID, kind, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
SELECT message FROM conflict_reasons WHERE run_id = ? AND kind = ? AND name = ? ORDER BY seq ASC`, runID, kind, name)
	if err != nil {
		return nil, fmt.Errorf("load conflict reasons: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan conflict reason: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("delete run", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
		return err
	})
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
