package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default durable backend. A single file holds the
// status snapshot, job records and flags for one instance.
type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{sqlStore{db: db, prefix: cfg.TablePrefix, placeholder: questionPlaceholder}}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %sstatuses (
			label TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT ''
		)`, s.prefix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %sjobs (
			label TEXT PRIMARY KEY,
			completed_at TIMESTAMP NOT NULL
		)`, s.prefix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %sflags (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`, s.prefix),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// sqlStore implements the Store operations shared by the SQL-backed
// variants; only schema creation and placeholders differ per dialect.
type sqlStore struct {
	db          *sql.DB
	prefix      string
	placeholder func(n int) string
}

func questionPlaceholder(int) string { return "?" }
func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func (s *sqlStore) SaveStatuses(ctx context.Context, statuses map[string]StatusRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %sstatuses", s.prefix)); err != nil {
		return fmt.Errorf("failed to clear status snapshot: %w", err)
	}
	insert := fmt.Sprintf("INSERT INTO %sstatuses (label, state, message) VALUES (%s, %s, %s)",
		s.prefix, s.placeholder(1), s.placeholder(2), s.placeholder(3))
	for label, rec := range statuses {
		if _, err := tx.ExecContext(ctx, insert, label, rec.State, rec.Message); err != nil {
			return fmt.Errorf("failed to save status %q: %w", label, err)
		}
	}
	return tx.Commit()
}

func (s *sqlStore) LoadStatuses(ctx context.Context) (map[string]StatusRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT label, state, message FROM %sstatuses", s.prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to load status snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]StatusRecord)
	for rows.Next() {
		var label string
		var rec StatusRecord
		if err := rows.Scan(&label, &rec.State, &rec.Message); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		out[label] = rec
	}
	return out, rows.Err()
}

func (s *sqlStore) MarkJobDone(ctx context.Context, label string, completedAt time.Time) error {
	stmt := fmt.Sprintf(
		"INSERT INTO %sjobs (label, completed_at) VALUES (%s, %s) ON CONFLICT (label) DO NOTHING",
		s.prefix, s.placeholder(1), s.placeholder(2))
	if _, err := s.db.ExecContext(ctx, stmt, label, completedAt.UTC()); err != nil {
		return fmt.Errorf("failed to record job %q: %w", label, err)
	}
	return nil
}

func (s *sqlStore) IsJobDone(ctx context.Context, label string) (bool, error) {
	stmt := fmt.Sprintf("SELECT 1 FROM %sjobs WHERE label = %s", s.prefix, s.placeholder(1))
	var one int
	err := s.db.QueryRowContext(ctx, stmt, label).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to query job %q: %w", label, err)
	}
	return true, nil
}

func (s *sqlStore) JobLabels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT label FROM %sjobs ORDER BY label", s.prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (s *sqlStore) SetFlag(ctx context.Context, name string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %sflags (name, value) VALUES (%s, %s) ON CONFLICT (name) DO UPDATE SET value = excluded.value",
		s.prefix, s.placeholder(1), s.placeholder(2))
	if _, err := s.db.ExecContext(ctx, stmt, name, v); err != nil {
		return fmt.Errorf("failed to set flag %q: %w", name, err)
	}
	return nil
}

func (s *sqlStore) GetFlag(ctx context.Context, name string) (bool, error) {
	stmt := fmt.Sprintf("SELECT value FROM %sflags WHERE name = %s", s.prefix, s.placeholder(1))
	var v int
	err := s.db.QueryRowContext(ctx, stmt, name).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to query flag %q: %w", name, err)
	}
	return v != 0, nil
}

func (s *sqlStore) Close() error { return s.db.Close() }
