package store

import (
	"context"
	"fmt"
	"time"
)

// Config selects and parameterises a store backend.
type Config struct {
	Type string `toml:"type" yaml:"type" json:"type" mapstructure:"type"` // "sqlite", "postgres", "memory"

	// SQLite specific
	Path string `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`

	// PostgreSQL specific. DSN, when set, wins over the discrete fields.
	DSN      string `toml:"dsn,omitempty" yaml:"dsn,omitempty" json:"dsn,omitempty" mapstructure:"dsn"`
	Host     string `toml:"host,omitempty" yaml:"host,omitempty" json:"host,omitempty" mapstructure:"host"`
	Port     int    `toml:"port,omitempty" yaml:"port,omitempty" json:"port,omitempty" mapstructure:"port"`
	Database string `toml:"database,omitempty" yaml:"database,omitempty" json:"database,omitempty" mapstructure:"database"`
	Username string `toml:"username,omitempty" yaml:"username,omitempty" json:"username,omitempty" mapstructure:"username"`
	Password string `toml:"password,omitempty" yaml:"password,omitempty" json:"password,omitempty" mapstructure:"password"`
	SSLMode  string `toml:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty" mapstructure:"ssl_mode"`

	MaxOpenConns int           `toml:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty" mapstructure:"max_open_conns"`
	MaxIdleConns int           `toml:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty" mapstructure:"max_idle_conns"`
	ConnMaxAge   time.Duration `toml:"conn_max_age,omitempty" yaml:"conn_max_age,omitempty" json:"conn_max_age,omitempty" mapstructure:"conn_max_age"`

	TablePrefix string `toml:"table_prefix,omitempty" yaml:"table_prefix,omitempty" json:"table_prefix,omitempty" mapstructure:"table_prefix"`
}

// New builds a store from config and makes sure its schema exists, so
// callers get a backend that is ready for reads and writes. An empty
// type defaults to memory so embedders without persistence needs get a
// working core.
func New(cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Type {
	case "", "memory":
		st = NewMemoryStore()
	case "sqlite":
		st, err = NewSQLiteStore(cfg)
	case "postgres", "postgresql":
		st, err = NewPostgresStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return st, nil
}
