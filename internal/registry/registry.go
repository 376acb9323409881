// Package registry implements the plugin registry used for every strategy
// role. Each role gets its own Registry instance; plugins register a factory
// under a unique name with metadata that controls listing order.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Factory builds a plugin instance from its configuration map.
type Factory[T any] func(cfg map[string]any) (T, error)

// Meta describes a registered plugin.
type Meta struct {
	Priority    int
	Version     string
	Description string
}

type registration[T any] struct {
	name    string
	factory Factory[T]
	meta    Meta
	seq     int
}

// Registry maps plugin names to factories for a single strategy role.
// Registering an existing name logs a warning and replaces the previous
// entry. Registration happens at package initialization; reads dominate
// afterwards.
type Registry[T any] struct {
	role string
	log  zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*registration[T]
	nextSeq int
}

// New creates an empty registry for the given role.
func New[T any](role string, log zerolog.Logger) *Registry[T] {
	return &Registry[T]{
		role:    role,
		log:     log.With().Str("component", "registry").Str("role", role).Logger(),
		entries: make(map[string]*registration[T]),
	}
}

// Register adds factory under name. Higher priority sorts first in Names.
func (r *Registry[T]) Register(name string, factory Factory[T], meta Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		r.log.Warn().Str("name", name).Msg("Plugin already registered, replacing")
	}
	r.entries[name] = &registration[T]{
		name:    name,
		factory: factory,
		meta:    meta,
		seq:     r.nextSeq,
	}
	r.nextSeq++
}

// Get returns the factory registered under name.
func (r *Registry[T]) Get(name string) (Factory[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return reg.factory, true
}

// Create instantiates the named plugin with cfg.
func (r *Registry[T]) Create(name string, cfg map[string]any) (T, error) {
	factory, ok := r.Get(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s plugin %q is not registered", r.role, name)
	}
	return factory(cfg)
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns all registered names, highest priority first. Ties keep
// registration order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]*registration[T], 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].meta.Priority != regs[j].meta.Priority {
			return regs[i].meta.Priority > regs[j].meta.Priority
		}
		return regs[i].seq < regs[j].seq
	})

	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.name
	}
	return names
}

// Metadata returns the Meta recorded for name.
func (r *Registry[T]) Metadata(name string) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok {
		return Meta{}, false
	}
	return reg.meta, true
}

// Unregister removes name, reporting whether it was present. Intended for
// tests, which must restore what they remove.
func (r *Registry[T]) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	delete(r.entries, name)
	return ok
}

// Clear removes all registrations.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*registration[T])
}

// Len returns the number of registered plugins.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Summary returns role, count and the ordered names, for diagnostics.
func (r *Registry[T]) Summary() string {
	return fmt.Sprintf("%s registry: %d plugins %v", r.role, r.Len(), r.Names())
}
