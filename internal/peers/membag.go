package peers

import (
	"sort"
	"sync"
)

// bagState is the replicated state shared by every MemBag view.
type bagState struct {
	mu        sync.RWMutex
	connected bool
	app       map[string]string
	units     map[string]map[string]string
}

// MemBag is an in-process Bag for embedding and tests. Views created
// with Join share the same underlying state, so peers see each other's
// writes immediately.
type MemBag struct {
	state *bagState
	self  string
}

func NewMemBag(self string) *MemBag {
	return &MemBag{
		state: &bagState{
			connected: true,
			app:       make(map[string]string),
			units:     map[string]map[string]string{self: {}},
		},
		self: self,
	}
}

// Join registers another instance and returns a view of the same
// shared state scoped to that instance.
func (b *MemBag) Join(instance string) *MemBag {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	if _, ok := b.state.units[instance]; !ok {
		b.state.units[instance] = map[string]string{}
	}
	return &MemBag{state: b.state, self: instance}
}

// SetConnected simulates the peer relation appearing or going away.
func (b *MemBag) SetConnected(v bool) {
	b.state.mu.Lock()
	b.state.connected = v
	b.state.mu.Unlock()
}

func (b *MemBag) Connected() bool {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	return b.state.connected
}

func (b *MemBag) SetAppData(settings map[string]string) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	for k, v := range settings {
		b.state.app[k] = v
	}
	return nil
}

func (b *MemBag) GetAppData(key string) (string, bool) {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	v, ok := b.state.app[key]
	return v, ok
}

func (b *MemBag) AllAppData() map[string]string {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	out := make(map[string]string, len(b.state.app))
	for k, v := range b.state.app {
		out[k] = v
	}
	return out
}

func (b *MemBag) SetUnitData(settings map[string]string) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	unit := b.state.units[b.self]
	if unit == nil {
		unit = map[string]string{}
		b.state.units[b.self] = unit
	}
	for k, v := range settings {
		unit[k] = v
	}
	return nil
}

func (b *MemBag) UnitValues(key string, includeSelf bool) []string {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	names := make([]string, 0, len(b.state.units))
	for name := range b.state.units {
		names = append(names, name)
	}
	sort.Strings(names)
	var values []string
	for _, name := range names {
		if name == b.self && !includeSelf {
			continue
		}
		if v, ok := b.state.units[name][key]; ok {
			values = append(values, v)
		}
	}
	return values
}
