package ecs

import "reflect"

// Registry tracks all component stores and supports bulk cleanup on despawn.
type Registry struct {
	stores map[reflect.Type]*ComponentStore
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[reflect.Type]*ComponentStore, 16),
	}
}

// Store returns the store for typ, creating it on first use.
func (r *Registry) Store(typ reflect.Type) *ComponentStore {
	s, ok := r.stores[typ]
	if !ok {
		s = NewComponentStore(typ)
		r.stores[typ] = s
	}
	return s
}

// Lookup returns the store for typ without creating it.
func (r *Registry) Lookup(typ reflect.Type) (*ComponentStore, bool) {
	s, ok := r.stores[typ]
	return s, ok
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
