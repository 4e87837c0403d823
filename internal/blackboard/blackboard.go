// Package blackboard provides the thread-safe key-value store used for agent
// world state and for each planner worker's private scratch copy of it.
package blackboard

import (
	"maps"
	"sync"
)

// Blackboard is a string-keyed store safe for concurrent use. The zero value
// is empty and ready to use.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns a blackboard holding a shallow copy of initial.
func New(initial map[string]any) *Blackboard {
	b := new(Blackboard)
	b.Load(initial)
	return b
}

// Get returns the value under key, or nil.
func (b *Blackboard) Get(key string) any {
	v, _ := b.Lookup(key)
	return v
}

// Lookup reports whether key is present, since a stored nil and a missing key
// both Get as nil.
func (b *Blackboard) Lookup(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make(map[string]any)
	}
	b.data[key] = value
}

// Load replaces the contents with a shallow copy of values in one critical
// section, so readers never see a half-loaded state. Planner scratch state is
// reset this way before every search.
func (b *Blackboard) Load(values map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make(map[string]any, len(values))
	}
	clear(b.data)
	maps.Copy(b.data, values)
}

func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Snapshot returns a shallow copy of the contents, or nil if nothing was
// ever stored. Mutable values are shared with the blackboard.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.data)
}
