package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where the daemon logs and how log files rotate.
// With File empty everything goes to stderr only.
type Config struct {
	Level      string `toml:"level,omitempty" yaml:"level,omitempty" json:"level,omitempty" mapstructure:"level"`
	Color      bool   `toml:"color,omitempty" yaml:"color,omitempty" json:"color,omitempty" mapstructure:"color"`
	File       string `toml:"file,omitempty" yaml:"file,omitempty" json:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `toml:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups,omitempty" yaml:"max_backups,omitempty" json:"max_backups,omitempty" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days,omitempty" yaml:"max_age_days,omitempty" json:"max_age_days,omitempty" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress,omitempty" yaml:"compress,omitempty" json:"compress,omitempty" mapstructure:"compress"`
}

// ParseLevel maps a config string to a slog level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Writer returns the log destination for this config. The returned
// writer rotates when File is set.
func (c Config) Writer() io.Writer {
	if c.File == "" {
		return os.Stderr
	}
	rotated := &lj.Logger{
		Filename:   c.File,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	return io.MultiWriter(os.Stderr, rotated)
}

// Setup builds a logger from the config and installs it as the slog
// default.
func (c Config) Setup() *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	w := c.Writer()
	var h slog.Handler
	if c.Color {
		h = NewColorTextHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
