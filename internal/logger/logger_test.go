package logger

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"Info":    slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestColorTextHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(h)

	l.Warn("dependency not ready", "name", "database")

	out := buf.String()
	if !strings.Contains(out, "\033[33m") {
		t.Errorf("expected yellow color code in output: %q", out)
	}
	if !strings.Contains(out, "dependency not ready") {
		t.Errorf("expected message in output: %q", out)
	}
}

func TestConfigWriterFile(t *testing.T) {
	c := Config{File: filepath.Join(t.TempDir(), "converge.log")}
	w := c.Writer()
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSetupInstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	l := Config{Level: "debug"}.Setup()
	if l == nil {
		t.Fatal("nil logger")
	}
	if slog.Default() != l {
		t.Fatal("Setup did not install default logger")
	}
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level not enabled")
	}
}
