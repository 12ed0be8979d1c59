// Package command implements the deferred command buffer: systems queue
// mutation intents while they run, and the coordinator replays them exactly
// once, in enqueue order, against the live world and resource registry.
package command

import "github.com/you-win/bevy/internal/core/ecs"

// World is the storage a command buffer is applied to.
type World interface {
	Spawn(ecs.Bundle) ecs.EntityID
	SpawnAsEntity(ecs.EntityID, ecs.Bundle) error
	SpawnBatch([]ecs.Bundle) []ecs.EntityID
	Despawn(ecs.EntityID) error
	Insert(ecs.EntityID, ecs.Bundle) error
}

// Resources is the resource registry a command buffer is applied to.
type Resources interface {
	Insert(any)
	InsertLocal(ecs.SystemID, any)
}

// Allocator reserves entity identifiers ahead of storage insertion.
type Allocator interface {
	Reserve() ecs.EntityID
}

// Category selects which collaborator a command mutates.
type Category uint8

const (
	CategoryWorld Category = iota
	CategoryResources
)

func (c Category) String() string {
	switch c {
	case CategoryWorld:
		return "world"
	case CategoryResources:
		return "resources"
	default:
		return "unknown"
	}
}

// Kind is the closed set of mutation kinds.
type Kind uint8

const (
	KindSpawn Kind = iota
	KindSpawnAsEntity
	KindSpawnBatch
	KindDespawn
	KindInsert
	KindInsertOne
	KindInsertResource
	KindInsertLocalResource
)

var kindNames = [...]string{
	KindSpawn:               "spawn",
	KindSpawnAsEntity:       "spawn_as_entity",
	KindSpawnBatch:          "spawn_batch",
	KindDespawn:             "despawn",
	KindInsert:              "insert",
	KindInsertOne:           "insert_one",
	KindInsertResource:      "insert_resource",
	KindInsertLocalResource: "insert_local_resource",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Category reports whether the kind mutates the world or the resources.
func (k Kind) Category() Category {
	switch k {
	case KindInsertResource, KindInsertLocalResource:
		return CategoryResources
	default:
		return CategoryWorld
	}
}
