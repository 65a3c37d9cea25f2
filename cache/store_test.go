package cache

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLookup(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := &Entry{
		Path:       "/p/src/main.min",
		SourceHash: "aaaa",
		MaxDepth:   1000,
		ASTHash:    "bbbb",
		Tokens:     42,
		Decls:      3,
		RunID:      NewRunID(),
		CheckedAt:  at,
	}
	if err := s.Record(ctx, e); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.Lookup(ctx, e.Path, "aaaa", 1000)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !got.CheckedAt.Equal(at) {
		t.Errorf("CheckedAt = %v, want %v", got.CheckedAt, at)
	}
	want := *e
	want.CheckedAt = got.CheckedAt
	if *got != want {
		t.Errorf("Lookup = %+v, want %+v", got, want)
	}
	if !got.OK() {
		t.Error("entry without a phase should be OK")
	}
}

func TestLookupMisses(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if _, err := s.Lookup(ctx, "/nowhere.min", "x", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing entry: err = %v, want ErrNotFound", err)
	}

	if err := s.Record(ctx, &Entry{Path: "/a.min", SourceHash: "old", RunID: NewRunID()}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lookup(ctx, "/a.min", "new", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("changed source: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Lookup(ctx, "/a.min", "old", 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("changed depth limit: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Lookup(ctx, "/a.min", "old", 0); err != nil {
		t.Errorf("same source and limit: %v", err)
	}
}

func TestRecordReplacesAndStoresFailures(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first := &Entry{Path: "/a.min", SourceHash: "h1", ASTHash: "x", RunID: NewRunID()}
	second := &Entry{Path: "/a.min", SourceHash: "h2", Phase: "parser", Message: "1:6: expected ';', got end of input", RunID: NewRunID()}
	for _, e := range []*Entry{first, second} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Lookup(ctx, "/a.min", "h2", 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.OK() || got.Phase != "parser" || got.Message != second.Message {
		t.Errorf("failure entry = %+v", got)
	}
	if got.CheckedAt.IsZero() {
		t.Error("CheckedAt was not filled in")
	}
	if _, err := uuid.Parse(got.RunID); err != nil {
		t.Errorf("run id %q is not a UUID: %v", got.RunID, err)
	}
}

func TestRecordValidation(t *testing.T) {
	s := openStore(t)
	if err := s.Record(context.Background(), &Entry{Path: "/a.min"}); err == nil {
		t.Error("expected error for entry without source hash")
	}
}

func TestEntriesAndForget(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for _, p := range []string{"/c.min", "/a.min", "/b.min"} {
		if err := s.Record(ctx, &Entry{Path: p, SourceHash: "h", RunID: "r"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Forget(ctx, "/b.min"); err != nil {
		t.Fatalf("Forget: %v", err)
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Path != "/a.min" || entries[1].Path != "/c.min" {
		t.Errorf("Entries = %+v, want /a.min and /c.min", entries)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, &Entry{Path: "/a.min", SourceHash: "h", RunID: "r"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Lookup(ctx, "/a.min", "h", 0); err != nil {
		t.Errorf("Lookup after reopen: %v", err)
	}
	if s.Path() != path {
		t.Errorf("Path = %q, want %q", s.Path(), path)
	}
}

func TestOpenDropsStaleSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`CREATE TABLE checks (path TEXT PRIMARY KEY, source_hash TEXT NOT NULL)`)
	if err == nil {
		_, err = db.Exec(`INSERT INTO checks VALUES ('/a.min', 'h')`)
	}
	db.Close()
	if err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Lookup(ctx, "/a.min", "h", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("old entry: err = %v, want ErrNotFound", err)
	}
	if err := s.Record(ctx, &Entry{Path: "/a.min", SourceHash: "h", MaxDepth: 8, RunID: "r"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := s.Lookup(ctx, "/a.min", "h", 8); err != nil {
		t.Errorf("Lookup: %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	defer s.Close()
	if err := s.Record(context.Background(), &Entry{Path: "/m.min", SourceHash: "h", RunID: "r"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lookup(context.Background(), "/m.min", "h", 0); err != nil {
		t.Errorf("Lookup: %v", err)
	}
}
