package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps instance state in PostgreSQL. Useful when the
// control process runs on ephemeral storage but a database is at hand.
type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Host == "" {
			cfg.Host = "localhost"
		}
		if cfg.Port == 0 {
			cfg.Port = 5432
		}
		if cfg.SSLMode == "" {
			cfg.SSLMode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(5)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxAge > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxAge)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &PostgresStore{sqlStore{db: db, prefix: cfg.TablePrefix, placeholder: dollarPlaceholder}}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %sstatuses (
			label TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT ''
		)`, s.prefix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %sjobs (
			label TEXT PRIMARY KEY,
			completed_at TIMESTAMPTZ NOT NULL
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
