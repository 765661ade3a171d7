package main

import (
	"strings"
	"testing"
)

func TestBuildRootCommands(t *testing.T) {
	root := buildRoot()

	want := map[string]bool{
		"serve":     false,
		"status":    false,
		"reconcile": false,
		"summary":   false,
		"deps":      false,
	}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestReachableClientError(t *testing.T) {
	f := APIFlags{APIUrl: "http://127.0.0.1:1"}
	if _, err := f.reachableClient(); err == nil || !strings.Contains(err.Error(), "converged serve") {
		t.Fatalf("expected reachability error, got %v", err)
	}
}

func TestServeMissingConfig(t *testing.T) {
	if err := runServe("/nonexistent/converge.toml"); err == nil {
		t.Fatal("expected error for missing config")
	}
}
