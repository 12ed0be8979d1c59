// Package resource holds process-wide singleton values keyed by type, plus
// system-local singletons keyed by (SystemID, type).
package resource

import (
	"reflect"
	"sync"

	"github.com/you-win/bevy/internal/core/ecs"
)

type localKey struct {
	system ecs.SystemID
	typ    reflect.Type
}

// Resources is the resource registry. Values are keyed by their dynamic
// type, so Get[T] must name the same concrete type that was inserted.
type Resources struct {
	mu     sync.RWMutex
	global map[reflect.Type]any
	local  map[localKey]any
}

func New() *Resources {
	return &Resources{
		global: make(map[reflect.Type]any, 16),
		local:  make(map[localKey]any, 16),
	}
}

// Insert overwrites the global singleton for v's type. Nil is ignored.
func (r *Resources) Insert(v any) {
	if v == nil {
		return
	}
	r.mu.Lock()
	r.global[reflect.TypeOf(v)] = v
	r.mu.Unlock()
}

// InsertLocal overwrites the singleton scoped to (id, v's type). It never
// touches the global singleton of the same type.
func (r *Resources) InsertLocal(id ecs.SystemID, v any) {
	if v == nil {
		return
	}
	r.mu.Lock()
	r.local[localKey{system: id, typ: reflect.TypeOf(v)}] = v
	r.mu.Unlock()
}

// Len returns the number of global and local resources.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.global) + len(r.local)
}

// Get returns the global resource of type T.
func Get[T any](r *Resources) (T, bool) {
	r.mu.RLock()
	v, ok := r.global[reflect.TypeOf((*T)(nil)).Elem()]
	r.mu.RUnlock()
	return cast[T](v, ok)
}

// GetLocal returns the resource of type T scoped to id.
func GetLocal[T any](r *Resources, id ecs.SystemID) (T, bool) {
	r.mu.RLock()
	v, ok := r.local[localKey{system: id, typ: reflect.TypeOf((*T)(nil)).Elem()}]
	r.mu.RUnlock()
	return cast[T](v, ok)
}

// Remove deletes the global resource of type T and reports whether it existed.
func Remove[T any](r *Resources) bool {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.global[t]
	delete(r.global, t)
	return ok
}

// RemoveLocal deletes the resource of type T scoped to id.
func RemoveLocal[T any](r *Resources, id ecs.SystemID) bool {
	k := localKey{system: id, typ: reflect.TypeOf((*T)(nil)).Elem()}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.local[k]
	delete(r.local, k)
	return ok
}

func cast[T any](v any, ok bool) (T, bool) {
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
