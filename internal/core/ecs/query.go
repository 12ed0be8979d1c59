package ecs

import (
	"reflect"
	"sort"
)

// Row2 is one result of Query2.
type Row2[A, B any] struct {
	ID EntityID
	A  A
	B  B
}

func storeFor[T any](w *World) (*ComponentStore, bool) {
	return w.registry.Lookup(reflect.TypeOf((*T)(nil)).Elem())
}

// Get returns the component of type T attached to id.
func Get[T any](w *World, id EntityID) (T, bool) {
	var zero T
	s, ok := storeFor[T](w)
	if !ok {
		return zero, false
	}
	c, ok := s.Get(id)
	if !ok {
		return zero, false
	}
	v, ok := c.(T)
	return v, ok
}

// Has reports whether id carries a component of type T.
func Has[T any](w *World, id EntityID) bool {
	s, ok := storeFor[T](w)
	return ok && s.Has(id)
}

// Each iterates over every entity that has component T. Order is unspecified.
func Each[T any](w *World, fn func(EntityID, T)) {
	s, ok := storeFor[T](w)
	if !ok {
		return
	}
	s.Each(func(id EntityID, c any) {
		fn(id, c.(T))
	})
}

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller store and checks the larger one.
func Each2[A, B any](w *World, fn func(EntityID, A, B)) {
	sa, ok := storeFor[A](w)
	if !ok {
		return
	}
	sb, ok := storeFor[B](w)
	if !ok {
		return
	}
	if sa.Len() <= sb.Len() {
		for id, a := range sa.data {
			if b, ok := sb.data[id]; ok {
				fn(id, a.(A), b.(B))
			}
		}
	} else {
		for id, b := range sb.data {
			if a, ok := sa.data[id]; ok {
				fn(id, a.(A), b.(B))
			}
		}
	}
}

// Query2 collects every (A, B) pair, ordered by entity index.
func Query2[A, B any](w *World) []Row2[A, B] {
	var rows []Row2[A, B]
	Each2(w, func(id EntityID, a A, b B) {
		rows = append(rows, Row2[A, B]{ID: id, A: a, B: b})
	})
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID.Index() < rows[j].ID.Index()
	})
	return rows
}

// Count returns the number of entities carrying component T.
func Count[T any](w *World) int {
	s, ok := storeFor[T](w)
	if !ok {
		return 0
	}
	return s.Len()
}
