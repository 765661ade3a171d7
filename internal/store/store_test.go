package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	// Status snapshot replaces wholesale.
	snap := map[string]StatusRecord{
		"workload": {State: "active", Message: ""},
		"database": {State: "waiting", Message: "integration incomplete"},
	}
	if err := s.SaveStatuses(ctx, snap); err != nil {
		t.Fatalf("SaveStatuses: %v", err)
	}
	got, err := s.LoadStatuses(ctx)
	if err != nil {
		t.Fatalf("LoadStatuses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(got))
	}
	if got["database"].Message != "integration incomplete" {
		t.Errorf("unexpected message: %q", got["database"].Message)
	}
	if err := s.SaveStatuses(ctx, map[string]StatusRecord{"workload": {State: "blocked"}}); err != nil {
		t.Fatalf("SaveStatuses: %v", err)
	}
	got, err = s.LoadStatuses(ctx)
	if err != nil {
		t.Fatalf("LoadStatuses: %v", err)
	}
	if len(got) != 1 || got["workload"].State != "blocked" {
		t.Errorf("snapshot not replaced: %+v", got)
	}

	// Job records are write-once.
	done, err := s.IsJobDone(ctx, "db-sync")
	if err != nil || done {
		t.Fatalf("IsJobDone before mark: %v %v", done, err)
	}
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.MarkJobDone(ctx, "db-sync", first); err != nil {
		t.Fatalf("MarkJobDone: %v", err)
	}
	if err := s.MarkJobDone(ctx, "db-sync", first.Add(time.Hour)); err != nil {
		t.Fatalf("MarkJobDone again: %v", err)
	}
	done, err = s.IsJobDone(ctx, "db-sync")
	if err != nil || !done {
		t.Fatalf("IsJobDone after mark: %v %v", done, err)
	}
	labels, err := s.JobLabels(ctx)
	if err != nil {
		t.Fatalf("JobLabels: %v", err)
	}
	if len(labels) != 1 || labels[0] != "db-sync" {
		t.Errorf("unexpected labels: %v", labels)
	}

	// Flags.
	v, err := s.GetFlag(ctx, "bootstrapped")
	if err != nil || v {
		t.Fatalf("GetFlag default: %v %v", v, err)
	}
	if err := s.SetFlag(ctx, "bootstrapped", true); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	v, err = s.GetFlag(ctx, "bootstrapped")
	if err != nil || !v {
		t.Fatalf("GetFlag after set: %v %v", v, err)
	}
}

func TestMemoryStore(t *testing.T) {
	roundTrip(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "converge.db")
	s, err := NewSQLiteStore(Config{Type: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() { _ = s.Close() }()
	roundTrip(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "converge.db")

	s, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := s.MarkJobDone(ctx, "enable-module", time.Now().UTC()); err != nil {
		t.Fatalf("MarkJobDone: %v", err)
	}
	if err := s.SaveStatuses(ctx, map[string]StatusRecord{"run": {State: "active"}}); err != nil {
		t.Fatalf("SaveStatuses: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	if err := s2.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	done, err := s2.IsJobDone(ctx, "enable-module")
	if err != nil || !done {
		t.Fatalf("job record lost across reopen: %v %v", done, err)
	}
	snap, err := s2.LoadStatuses(ctx)
	if err != nil || snap["run"].State != "active" {
		t.Fatalf("status snapshot lost across reopen: %+v %v", snap, err)
	}
}

func TestNewFromConfig(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected memory store by default, got %T", s)
	}
	if _, err := New(Config{Type: "bogus"}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestNewFromConfigSchemaReady(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{Type: "sqlite", Path: filepath.Join(t.TempDir(), "converge.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s.Close() }()

	// The factory ensures the schema, so the store is usable straight
	// away without a separate migration step.
	if err := s.SetFlag(ctx, "bootstrapped", true); err != nil {
		t.Fatalf("SetFlag on fresh store: %v", err)
	}
	v, err := s.GetFlag(ctx, "bootstrapped")
	if err != nil || !v {
		t.Fatalf("GetFlag: %v %v", v, err)
	}
}
