package status

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/converge/internal/store"
)

func TestPoolPrecedence(t *testing.T) {
	p := NewPool(nil)

	a := NewEntry("a", 0)
	b := NewEntry("b", 100)
	c := NewEntry("c", 50)
	p.Add(a)
	p.Add(b)
	p.Add(c)

	a.Set(Waiting, "")
	b.Set(Blocked, "")
	c.Set(Waiting, "")

	proj := p.Projection()
	assert.Equal(t, Blocked, proj.State)
	assert.Equal(t, "(b)", proj.Message)
}

func TestPoolTieBreakPriority(t *testing.T) {
	p := NewPool(nil)
	low := NewEntry("low", 10)
	high := NewEntry("high", 90)
	p.Add(low)
	p.Add(high)

	low.Set(Waiting, "low wins?")
	high.Set(Waiting, "high wins")

	proj := p.Projection()
	assert.Equal(t, Waiting, proj.State)
	assert.Equal(t, "(high) high wins", proj.Message)
}

func TestPoolRendering(t *testing.T) {
	p := NewPool(nil)
	e := NewEntry("workload", 100)
	p.Add(e)

	// Nothing set yet: generic waiting fallback.
	proj := p.Projection()
	assert.Equal(t, Waiting, proj.State)
	assert.Equal(t, "no status set yet", proj.Message)

	// Fully healthy with no message projects bare Active.
	e.Set(Active, "")
	proj = p.Projection()
	assert.Equal(t, Active, proj.State)
	assert.Equal(t, "", proj.Message)

	// Active with a message keeps the label prefix.
	e.Set(Active, "m")
	proj = p.Projection()
	assert.Equal(t, Active, proj.State)
	assert.Equal(t, "(workload) m", proj.Message)

	// Non-active with empty message renders the bare label.
	e.Set(Waiting, "")
	assert.Equal(t, "(workload)", p.Projection().Message)
}

func TestPoolLabelCollisionReplaces(t *testing.T) {
	p := NewPool(nil)
	first := NewEntry("db", 0)
	p.Add(first)
	first.Set(Blocked, "old")

	second := NewEntry("db", 0)
	p.Add(second)
	second.Set(Active, "")

	proj := p.Projection()
	assert.Equal(t, Active, proj.State)

	// The replaced entry no longer influences the pool.
	first.Set(Blocked, "stale")
	assert.Equal(t, Active, p.Projection().State)
}

func TestPoolSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	p := NewPool(st)
	e := NewEntry("database", 0)
	p.Add(e)
	e.Set(Waiting, "integration incomplete")
	p.Commit(ctx)

	// Simulate a restart of the control process: a fresh pool with the
	// same store reconstitutes the entry before it is set again.
	p2 := NewPool(st)
	e2 := NewEntry("database", 0)
	p2.Add(e2)
	require.Equal(t, Waiting, e2.State())
	assert.Equal(t, "integration incomplete", e2.Message())
	assert.Equal(t, "(database) integration incomplete", p2.Projection().Message)

	// A live write after reconstitution wins as usual.
	e2.Set(Active, "")
	assert.Equal(t, Active, p2.Projection().State)
}

func TestSummariseOrder(t *testing.T) {
	p := NewPool(nil)
	w := NewEntry("workload", 100)
	d := NewEntry("database", 0)
	p.Add(w)
	p.Add(d)
	w.Set(Active, "")
	d.Set(Blocked, "integration missing")

	lines := strings.Split(p.Summarise(), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "database")
	assert.Contains(t, lines[1], "workload")
}

func TestParseState(t *testing.T) {
	assert.Equal(t, Blocked, ParseState("blocked"))
	assert.Equal(t, Unknown, ParseState("nonsense"))
}
