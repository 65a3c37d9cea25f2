// Package cache records the outcome of checking source files in a SQLite
// database, so unchanged files can be skipped on the next build.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates there is no usable entry for a file.
var ErrNotFound = errors.New("cache entry not found")

// Entry is the recorded result of checking one source file.
type Entry struct {
	Path       string
	SourceHash string // hex SHA-256 of the file contents
	MaxDepth   int    // parser nesting limit the file was checked with
	ASTHash    string // hex content hash of the parsed program; empty on failure
	Tokens     int
	Decls      int
	Phase      string // failing phase ("lexer" or "parser"); empty on success
	Message    string // failure message
	RunID      string // build run that produced the entry
	CheckedAt  time.Time
}

// OK reports whether the file checked cleanly.
func (e *Entry) OK() bool {
	return e.Phase == ""
}

// Store is a check-result cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// schemaVersion is stored in PRAGMA user_version. Entries are only a cache,
// so a database from another version is dropped rather than migrated.
const schemaVersion = 1

const schema = `CREATE TABLE IF NOT EXISTS checks (
	path        TEXT PRIMARY KEY,
	source_hash TEXT NOT NULL,
	max_depth   INTEGER NOT NULL,
	ast_hash    TEXT NOT NULL,
	tokens      INTEGER NOT NULL,
	decls       INTEGER NOT NULL,
	phase       TEXT NOT NULL,
	message     TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	checked_at  INTEGER NOT NULL
)`

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

func migrate(db *sql.DB) error {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if v != schemaVersion {
		if _, err := db.Exec("DROP TABLE IF EXISTS checks"); err != nil {
			return fmt.Errorf("dropping stale table: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return nil
}

// Path returns the database location the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewRunID returns a fresh identifier for a build run.
func NewRunID() string {
	return uuid.New().String()
}

// Lookup returns the entry for path if it was recorded for the same source
// hash and parser nesting limit. A missing entry, a changed file or a
// different limit yields ErrNotFound.
func (s *Store) Lookup(ctx context.Context, path, sourceHash string, maxDepth int) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e Entry
	var checkedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT path, source_hash, max_depth, ast_hash, tokens, decls, phase, message, run_id, checked_at
		 FROM checks WHERE path = ?`, path,
	).Scan(&e.Path, &e.SourceHash, &e.MaxDepth, &e.ASTHash, &e.Tokens, &e.Decls, &e.Phase, &e.Message, &e.RunID, &checkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	if e.SourceHash != sourceHash || e.MaxDepth != maxDepth {
		return nil, ErrNotFound
	}
	e.CheckedAt = time.Unix(0, checkedAt).UTC()
	return &e, nil
}

// Record stores e, replacing any previous entry for the same path. A zero
// CheckedAt is set to the current time.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.Path == "" || e.SourceHash == "" {
		return fmt.Errorf("recording entry: path and source hash are required")
	}
	if e.CheckedAt.IsZero() {
		e.CheckedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checks
		 (path, source_hash, max_depth, ast_hash, tokens, decls, phase, message, run_id, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Path, e.SourceHash, e.MaxDepth, e.ASTHash, e.Tokens, e.Decls, e.Phase, e.Message, e.RunID, e.CheckedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	return nil
}

// Forget removes the entry for path, if any.
func (s *Store) Forget(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM checks WHERE path = ?", path); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}

// Entries returns every recorded entry ordered by path.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, source_hash, max_depth, ast_hash, tokens, decls, phase, message, run_id, checked_at
		 FROM checks ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var checkedAt int64
		if err := rows.Scan(&e.Path, &e.SourceHash, &e.MaxDepth, &e.ASTHash, &e.Tokens, &e.Decls, &e.Phase, &e.Message, &e.RunID, &checkedAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.CheckedAt = time.Unix(0, checkedAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
