package store

import (
	"context"
	"time"
)

// StatusRecord is the persisted form of a single status entry.
// State is the severity name ("blocked", "waiting", ...), Message the
// last message set by the owning component.
type StatusRecord struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// Store is the per-instance durable state used by the reconciliation
// core: the status snapshot, one-shot job completion records, and
// named boolean flags (e.g. "bootstrapped"). All of it survives a
// restart of the control process.
type Store interface {
	EnsureSchema(ctx context.Context) error

	// SaveStatuses replaces the whole status snapshot.
	SaveStatuses(ctx context.Context, statuses map[string]StatusRecord) error
	LoadStatuses(ctx context.Context) (map[string]StatusRecord, error)

	// MarkJobDone records a one-shot job completion. Written once, on
	// success only; never cleared.
	MarkJobDone(ctx context.Context, label string, completedAt time.Time) error
	IsJobDone(ctx context.Context, label string) (bool, error)
	JobLabels(ctx context.Context) ([]string, error)

	SetFlag(ctx context.Context, name string, value bool) error
	GetFlag(ctx context.Context, name string) (bool, error)

	Close() error
}
