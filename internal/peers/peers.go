// Package peers coordinates the co-deployed instances of one service
// through a replicated key/value bag: an app-scoped region written by
// convention only by the elected leader, and per-instance regions each
// instance writes for itself.
package peers

import (
	"log/slog"
	"strconv"
	"strings"
)

// LeaderReadyKey is the well-known app-scoped key the leader writes
// once its cluster-wide initialisation is complete. It is monotonic:
// false until the first leader write, true forever after.
const LeaderReadyKey = "leader_ready"

// Bag is the replicated key/value store shared by the peer group. The
// transport replicating it is out of scope; an in-memory Bag ships for
// embedding and tests.
type Bag interface {
	// Connected reports whether the peer group relation exists at all.
	Connected() bool

	SetAppData(settings map[string]string) error
	GetAppData(key string) (string, bool)
	AllAppData() map[string]string

	SetUnitData(settings map[string]string) error
	// UnitValues returns the value stored under key by every peer
	// instance, optionally including this instance's own value.
	UnitValues(key string, includeSelf bool) []string
}

// Coordinator wraps a Bag with the leader-convention operations the
// controller consumes.
type Coordinator struct {
	bag    Bag
	leader func() bool
}

func New(bag Bag, leader func() bool) *Coordinator {
	if leader == nil {
		leader = func() bool { return false }
	}
	return &Coordinator{bag: bag, leader: leader}
}

// Connected reports whether the peer channel exists.
func (c *Coordinator) Connected() bool { return c.bag.Connected() }

// Leader reports whether this instance is the elected leader.
func (c *Coordinator) Leader() bool { return c.leader() }

// SetAppData stores settings in the app-scoped region. By convention
// only the leader writes here; the convention is not enforced.
func (c *Coordinator) SetAppData(settings map[string]string) error {
	return c.bag.SetAppData(settings)
}

func (c *Coordinator) GetAppData(key string) (string, bool) {
	return c.bag.GetAppData(key)
}

// AppData returns all app-scoped data with keys normalised for use in
// render contexts ("-" becomes "_").
func (c *Coordinator) AppData() map[string]string {
	out := make(map[string]string)
	for k, v := range c.bag.AllAppData() {
		out[strings.ReplaceAll(k, "-", "_")] = v
	}
	return out
}

// SetLeaderReady announces that cluster-wide initialisation is done.
// Non-leader calls are logged no-ops, which keeps the key monotonic.
func (c *Coordinator) SetLeaderReady() error {
	if !c.leader() {
		slog.Warn("ignoring leader_ready write from non-leader instance")
		return nil
	}
	return c.bag.SetAppData(map[string]string{LeaderReadyKey: "true"})
}

// IsLeaderReady reads the boolean-encoded leader_ready key. Missing or
// malformed values read as false.
func (c *Coordinator) IsLeaderReady() bool {
	raw, ok := c.bag.GetAppData(LeaderReadyKey)
	if !ok {
		return false
	}
	ready, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("malformed leader_ready value", "value", raw)
		return false
	}
	return ready
}

// SetUnitData publishes settings in this instance's own region, e.g.
// address gossip for a clustered peer set.
func (c *Coordinator) SetUnitData(settings map[string]string) error {
	return c.bag.SetUnitData(settings)
}

// GetAllUnitValues retrieves the value for key from all peers.
func (c *Coordinator) GetAllUnitValues(key string, includeSelf bool) []string {
	return c.bag.UnitValues(key, includeSelf)
}
