package ecs

import "reflect"

// Bundle is a heterogeneous set of component values inserted together.
// Components are keyed by their dynamic type; when a bundle carries two
// values of the same type the later one wins. Nil entries are skipped.
type Bundle []any

// ComponentStore holds every value of one component type, keyed by entity.
type ComponentStore struct {
	typ  reflect.Type
	data map[EntityID]any
}

func NewComponentStore(typ reflect.Type) *ComponentStore {
	return &ComponentStore{
		typ:  typ,
		data: make(map[EntityID]any, 256),
	}
}

func (s *ComponentStore) Type() reflect.Type { return s.typ }

func (s *ComponentStore) Set(id EntityID, c any) {
	s.data[id] = c
}

func (s *ComponentStore) Get(id EntityID) (any, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *ComponentStore) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *ComponentStore) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore) Len() int {
	return len(s.data)
}

func (s *ComponentStore) Each(fn func(EntityID, any)) {
	for id, c := range s.data {
		fn(id, c)
	}
}
