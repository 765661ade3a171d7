package deplink

import "sync"

// MemChannel is an in-process Channel for embedding and tests. Data
// written with Set is visible to reads immediately and fires every
// subscription, which is how external changes drive reconcile passes.
type MemChannel struct {
	mu     sync.RWMutex
	data   map[Scope]map[string]string
	leader bool
	subs   []subscription
}

type subscription struct {
	event string
	fn    func(trigger string)
}

func NewMemChannel() *MemChannel {
	return &MemChannel{data: make(map[Scope]map[string]string)}
}

func (c *MemChannel) Subscribe(event string, fn func(trigger string)) {
	c.mu.Lock()
	c.subs = append(c.subs, subscription{event: event, fn: fn})
	c.mu.Unlock()
}

func (c *MemChannel) Read(scope Scope, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	region, ok := c.data[scope]
	if !ok {
		return "", false
	}
	v, ok := region[key]
	return v, ok
}

func (c *MemChannel) IsLeader() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.leader
}

// SetLeader marks this instance as the elected leader.
func (c *MemChannel) SetLeader(v bool) {
	c.mu.Lock()
	c.leader = v
	c.mu.Unlock()
}

// Set writes values into a scope and notifies subscribers.
func (c *MemChannel) Set(scope Scope, values map[string]string) {
	c.mu.Lock()
	region, ok := c.data[scope]
	if !ok {
		region = make(map[string]string)
		c.data[scope] = region
	}
	for k, v := range values {
		region[k] = v
	}
	subs := append([]subscription(nil), c.subs...)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(s.event)
	}
}

// Delete removes keys from a scope and notifies subscribers.
func (c *MemChannel) Delete(scope Scope, keys ...string) {
	c.mu.Lock()
	if region, ok := c.data[scope]; ok {
		for _, k := range keys {
			delete(region, k)
		}
	}
	subs := append([]subscription(nil), c.subs...)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(s.event)
	}
}
