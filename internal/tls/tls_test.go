package tls

import (
	stdtls "crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureGeneratesPair(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "tls.crt")
	key := filepath.Join(dir, "tls.key")

	if err := Ensure(cert, key, "converge.local"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := stdtls.LoadX509KeyPair(cert, key); err != nil {
		t.Fatalf("generated pair does not load: %v", err)
	}

	before, _ := os.ReadFile(cert)
	// A second call must not touch existing files.
	if err := Ensure(cert, key, "converge.local"); err != nil {
		t.Fatalf("ensure existing: %v", err)
	}
	after, _ := os.ReadFile(cert)
	if string(before) != string(after) {
		t.Fatal("certificate regenerated despite existing pair")
	}
}

func TestEnsureHalfPresentPair(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "tls.crt")
	key := filepath.Join(dir, "tls.key")
	if err := os.WriteFile(cert, []byte("not a cert"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Ensure(cert, key, "converge.local"); err == nil {
		t.Fatal("expected error for cert without key")
	}
}
