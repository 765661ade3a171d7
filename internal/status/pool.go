package status

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/loykin/converge/internal/store"
)

// Pool aggregates entries and keeps the current projection. A nil
// store disables durability but everything else works the same.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*Entry
	saved   map[string]store.StatusRecord
	st      store.Store
	current Projection
}

// NewPool restores the saved snapshot, if any. Load failures are
// logged and treated as an empty snapshot; status reporting must not
// fail because persistence is unavailable.
func NewPool(st store.Store) *Pool {
	p := &Pool{
		entries: make(map[string]*Entry),
		saved:   make(map[string]store.StatusRecord),
		st:      st,
		current: Projection{State: Waiting, Message: "no status set yet"},
	}
	if st != nil {
		saved, err := st.LoadStatuses(context.Background())
		if err != nil {
			slog.Warn("failed to load status snapshot, starting empty", "error", err)
		} else {
			p.saved = saved
		}
	}
	return p
}

// Add registers an entry. A never-set entry with a saved value is
// reconstituted from the snapshot so statuses survive restarts of the
// control process. Re-adding a label replaces the live entry.
func (p *Pool) Add(e *Entry) {
	p.mu.Lock()
	if rec, ok := p.saved[e.label]; ok && e.neverSet {
		if _, live := p.entries[e.label]; !live {
			e.state = ParseState(rec.State)
			e.message = rec.Message
		}
	}
	p.entries[e.label] = e
	e.onUpdate = p.recompute
	p.mu.Unlock()
	p.recompute()
}

// Projection returns the current external status.
func (p *Pool) Projection() Projection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// recompute picks the winning entry and renders the projection. Runs
// on every Set of every registered entry.
func (p *Pool) recompute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	winner := p.winnerLocked()
	switch {
	case winner == nil || winner.state == Unknown:
		p.current = Projection{State: Waiting, Message: "no status set yet"}
	case winner.state == Active && winner.Message() == "":
		p.current = Projection{State: Active, Message: ""}
	default:
		msg := "(" + winner.label + ")"
		if m := winner.Message(); m != "" {
			msg += " " + m
		}
		p.current = Projection{State: winner.state, Message: msg}
	}
}

func (p *Pool) winnerLocked() *Entry {
	var winner *Entry
	var wr, wp int
	for _, e := range p.entries {
		r, pr := e.sortKey()
		if winner == nil || r < wr || (r == wr && pr < wp) ||
			(r == wr && pr == wp && e.label < winner.label) {
			winner, wr, wp = e, r, pr
		}
	}
	return winner
}

// Summarise returns a multi-line human readable dump of every entry,
// sorted by precedence.
func (p *Pool) Summarise() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	sorted := make([]*Entry, 0, len(p.entries))
	for _, e := range p.entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		ri, pi := sorted[i].sortKey()
		rj, pj := sorted[j].sortKey()
		if ri != rj {
			return ri < rj
		}
		if pi != pj {
			return pi < pj
		}
		return sorted[i].label < sorted[j].label
	})
	lines := make([]string, 0, len(sorted))
	for _, e := range sorted {
		lines = append(lines, fmt.Sprintf("%30s: %10s | %s", e.label, e.state, e.Message()))
	}
	return strings.Join(lines, "\n")
}

// Commit serialises the full label -> {state, message} map. Called at
// the end of every reconcile pass; failures are logged, never raised.
func (p *Pool) Commit(ctx context.Context) {
	if p.st == nil {
		return
	}
	p.mu.Lock()
	snap := make(map[string]store.StatusRecord, len(p.entries))
	for label, e := range p.entries {
		snap[label] = store.StatusRecord{State: string(e.state), Message: e.Message()}
	}
	p.mu.Unlock()
	if err := p.st.SaveStatuses(ctx, snap); err != nil {
		slog.Warn("failed to persist status snapshot", "error", err)
	}
}
