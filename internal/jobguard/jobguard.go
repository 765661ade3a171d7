// Package jobguard limits expensive or disruptive actions to at most
// one successful run per instance lifetime. In general an action
// should be a noop when re-run, but where that is not possible the
// guard memoises completion durably.
package jobguard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/converge/internal/store"
)

// Guard records completed job labels in the instance store.
type Guard struct {
	st  store.Store
	now func() time.Time
}

func New(st store.Store) *Guard {
	return &Guard{st: st, now: time.Now}
}

// RunOnce invokes fn unless label has already completed on this
// instance. Completion is recorded only when fn returns nil; a failed
// fn leaves the label unrecorded so the next pass retries it.
func (g *Guard) RunOnce(ctx context.Context, label string, fn func() error) error {
	done, err := g.st.IsJobDone(ctx, label)
	if err != nil {
		return fmt.Errorf("failed to check job %q: %w", label, err)
	}
	if done {
		slog.Info("not running job, it has run previously on this instance", "label", label)
		return nil
	}
	slog.Info("running job, it has not run on this instance before", "label", label)
	if err := fn(); err != nil {
		return err
	}
	if err := g.st.MarkJobDone(ctx, label, g.now().UTC()); err != nil {
		return fmt.Errorf("failed to record job %q: %w", label, err)
	}
	return nil
}

// Done reports whether label has a completion record.
func (g *Guard) Done(ctx context.Context, label string) bool {
	done, err := g.st.IsJobDone(ctx, label)
	if err != nil {
		slog.Warn("failed to check job record", "label", label, "error", err)
		return false
	}
	return done
}

// Labels returns all recorded job labels.
func (g *Guard) Labels(ctx context.Context) []string {
	labels, err := g.st.JobLabels(ctx)
	if err != nil {
		slog.Warn("failed to list job records", "error", err)
		return nil
	}
	return labels
}
