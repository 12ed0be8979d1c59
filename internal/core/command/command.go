package command

import (
	"fmt"

	"github.com/you-win/bevy/internal/core/ecs"
)

// WorldOp is the payload of a world-mutating command.
type WorldOp struct {
	Kind      Kind
	Entity    ecs.EntityID
	Bundle    ecs.Bundle
	Batch     []ecs.Bundle
	Component any
}

// ResourceOp is the payload of a resource-mutating command.
type ResourceOp struct {
	Kind   Kind
	System ecs.SystemID
	Value  any
}

// Command is one queued mutation: either a WorldOp or a ResourceOp, selected
// by its category. Commands are built by the constructors below and are not
// modified afterwards.
type Command struct {
	category Category
	world    WorldOp
	res      ResourceOp
}

func Spawn(b ecs.Bundle) Command {
	return worldCommand(WorldOp{Kind: KindSpawn, Bundle: b})
}

func SpawnAsEntity(e ecs.EntityID, b ecs.Bundle) Command {
	return worldCommand(WorldOp{Kind: KindSpawnAsEntity, Entity: e, Bundle: b})
}

func SpawnBatch(bundles []ecs.Bundle) Command {
	return worldCommand(WorldOp{Kind: KindSpawnBatch, Batch: bundles})
}

func Despawn(e ecs.EntityID) Command {
	return worldCommand(WorldOp{Kind: KindDespawn, Entity: e})
}

func Insert(e ecs.EntityID, b ecs.Bundle) Command {
	return worldCommand(WorldOp{Kind: KindInsert, Entity: e, Bundle: b})
}

func InsertOne(e ecs.EntityID, component any) Command {
	return worldCommand(WorldOp{Kind: KindInsertOne, Entity: e, Component: component})
}

func InsertResource(v any) Command {
	return Command{category: CategoryResources, res: ResourceOp{Kind: KindInsertResource, Value: v}}
}

func InsertLocalResource(id ecs.SystemID, v any) Command {
	return Command{category: CategoryResources, res: ResourceOp{Kind: KindInsertLocalResource, System: id, Value: v}}
}

func worldCommand(op WorldOp) Command {
	return Command{category: CategoryWorld, world: op}
}

func (c Command) Category() Category { return c.category }

func (c Command) Kind() Kind {
	if c.category == CategoryResources {
		return c.res.Kind
	}
	return c.world.Kind
}

// Entity returns the targeted entity, or zero for kinds without one.
func (c Command) Entity() ecs.EntityID {
	if c.category == CategoryResources {
		return 0
	}
	return c.world.Entity
}

func (c Command) WorldOp() (WorldOp, bool) {
	return c.world, c.category == CategoryWorld
}

func (c Command) ResourceOp() (ResourceOp, bool) {
	return c.res, c.category == CategoryResources
}

func (c Command) String() string {
	switch c.Kind() {
	case KindSpawnAsEntity, KindDespawn, KindInsert, KindInsertOne:
		return fmt.Sprintf("%s(%s)", c.Kind(), c.world.Entity)
	case KindSpawnBatch:
		return fmt.Sprintf("%s(%d)", c.Kind(), len(c.world.Batch))
	case KindInsertResource:
		return fmt.Sprintf("%s(%T)", c.Kind(), c.res.Value)
	case KindInsertLocalResource:
		return fmt.Sprintf("%s(%s, %T)", c.Kind(), c.res.System, c.res.Value)
	default:
		return c.Kind().String()
	}
}

func (c Command) apply(w World, r Resources) error {
	switch c.category {
	case CategoryWorld:
		return c.world.apply(w)
	case CategoryResources:
		c.res.apply(r)
		return nil
	default:
		panic(fmt.Sprintf("command: unknown category %d", c.category))
	}
}

func (op WorldOp) apply(w World) error {
	switch op.Kind {
	case KindSpawn:
		w.Spawn(op.Bundle)
		return nil
	case KindSpawnAsEntity:
		return w.SpawnAsEntity(op.Entity, op.Bundle)
	case KindSpawnBatch:
		w.SpawnBatch(op.Batch)
		return nil
	case KindDespawn:
		return w.Despawn(op.Entity)
	case KindInsert:
		return w.Insert(op.Entity, op.Bundle)
	case KindInsertOne:
		return w.Insert(op.Entity, ecs.Bundle{op.Component})
	default:
		panic(fmt.Sprintf("command: %s is not a world operation", op.Kind))
	}
}

func (op ResourceOp) apply(r Resources) {
	switch op.Kind {
	case KindInsertResource:
		r.Insert(op.Value)
	case KindInsertLocalResource:
		r.InsertLocal(op.System, op.Value)
	default:
		panic(fmt.Sprintf("command: %s is not a resource operation", op.Kind))
	}
}

// Record is a journal-friendly summary of one command.
type Record struct {
	Seq    int
	Kind   Kind
	Entity ecs.EntityID
	System ecs.SystemID
}

func (c Command) record(seq int) Record {
	return Record{Seq: seq, Kind: c.Kind(), Entity: c.Entity(), System: c.res.System}
}
