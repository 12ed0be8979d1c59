package ecs

import (
	"fmt"
	"reflect"
)

// World is the top-level ECS container. It owns the entity pool and the
// component registry.
//
// Reads (Alive, Get, Each2, ...) may run concurrently with each other and with
// Reserve. Structural writes (Spawn, Despawn, Insert) must not overlap with
// anything else; the scheduler only performs them while applying commands
// after every system of a pass has returned.
type World struct {
	pool     *EntityPool
	registry *Registry
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
	}
}

// Entities returns the identifier pool. Command buffers use it to reserve
// identities before the corresponding spawn is applied.
func (w *World) Entities() *EntityPool { return w.pool }
func (w *World) Registry() *Registry   { return w.registry }

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.pool.Len()
}

// Spawn allocates a fresh identifier and makes it live with the bundle.
func (w *World) Spawn(b Bundle) EntityID {
	id := w.pool.Reserve()
	if err := w.SpawnAsEntity(id, b); err != nil {
		// A freshly reserved id can only fail to commit if the pool is corrupt.
		panic(fmt.Sprintf("ecs: spawn reserved entity %s: %v", id, err))
	}
	return id
}

// SpawnAsEntity makes a previously reserved identifier live with the bundle.
// If the identifier is already live its components are replaced.
func (w *World) SpawnAsEntity(id EntityID, b Bundle) error {
	if w.pool.Alive(id) {
		w.registry.RemoveAll(id)
	} else if err := w.pool.Commit(id); err != nil {
		return fmt.Errorf("spawn %s: %w", id, err)
	}
	w.set(id, b)
	return nil
}

// SpawnBatch spawns one entity per bundle, in order.
func (w *World) SpawnBatch(bundles []Bundle) []EntityID {
	ids := make([]EntityID, 0, len(bundles))
	for _, b := range bundles {
		ids = append(ids, w.Spawn(b))
	}
	return ids
}

// Despawn removes the entity and all of its components.
func (w *World) Despawn(id EntityID) error {
	if !w.pool.Alive(id) {
		return fmt.Errorf("despawn %s: %w", id, ErrNoSuchEntity)
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
	return nil
}

// Insert adds or overwrites every component of the bundle on a live entity.
func (w *World) Insert(id EntityID, b Bundle) error {
	if !w.pool.Alive(id) {
		return fmt.Errorf("insert into %s: %w", id, ErrNoSuchEntity)
	}
	w.set(id, b)
	return nil
}

// Remove detaches the component of type T from a live entity. It reports
// whether the component was present.
func Remove[T any](w *World, id EntityID) bool {
	s, ok := w.registry.Lookup(reflect.TypeOf((*T)(nil)).Elem())
	if !ok || !s.Has(id) {
		return false
	}
	s.Remove(id)
	return true
}

func (w *World) set(id EntityID, b Bundle) {
	for _, c := range b {
		if c == nil {
			continue
		}
		w.registry.Store(reflect.TypeOf(c)).Set(id, c)
	}
}
