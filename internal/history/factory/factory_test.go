package factory

import (
	"testing"

	"github.com/loykin/converge/internal/history"
)

func TestNewSinkFromDSNMemory(t *testing.T) {
	s, err := NewSinkFromDSN("memory://")
	if err != nil {
		t.Fatalf("memory dsn: %v", err)
	}
	if _, ok := s.(*history.MemorySink); !ok {
		t.Fatalf("expected MemorySink, got %T", s)
	}
}

func TestNewSinkFromDSNHTTP(t *testing.T) {
	s, err := NewSinkFromDSN("http://localhost:8123?table=converge_history")
	if err != nil {
		t.Fatalf("http dsn: %v", err)
	}
	if _, ok := s.(*history.ClickHouseHTTPSink); !ok {
		t.Fatalf("expected ClickHouseHTTPSink, got %T", s)
	}
}

func TestNewSinkFromDSNInvalid(t *testing.T) {
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Fatal("expected error for empty DSN")
	}
	if _, err := NewSinkFromDSN("ftp://example"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
