package command_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/you-win/bevy/internal/core/command"
	"github.com/you-win/bevy/internal/core/ecs"
	"github.com/you-win/bevy/internal/core/resource"
)

type position struct{ X, Y int }
type health struct{ HP int }
type counter struct{ N int }

func setup(t *testing.T) (*ecs.World, *resource.Resources, *command.Commands) {
	t.Helper()
	w := ecs.NewWorld()
	return w, resource.New(), command.NewCommands(w.Entities())
}

func mustPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("expected panic wrapping %v, got %v", target, r)
		}
	}()
	fn()
}

// go test -run ^TestCommandBuffer$ ./internal/core/command -count 1
func TestCommandBuffer(t *testing.T) {
	w, res, cmds := setup(t)
	cmds.Spawn(ecs.Bundle{uint32(1), uint64(2)})
	cmds.InsertResource(float32(3.14))
	if err := cmds.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rows := ecs.Query2[uint32, uint64](w)
	if len(rows) != 1 || rows[0].A != 1 || rows[0].B != 2 {
		t.Fatalf("expected [(1,2)], got %+v", rows)
	}
	f, ok := resource.Get[float32](res)
	if !ok || f != 3.14 {
		t.Fatalf("expected 3.14, got %v %v", f, ok)
	}
}

func TestInsertLastWriteWins(t *testing.T) {
	w, res, cmds := setup(t)
	a := w.Spawn(ecs.Bundle{position{0, 0}})
	b := w.Spawn(ecs.Bundle{position{0, 0}})

	cmds.InsertOne(a, position{1, 1})
	cmds.Insert(b, ecs.Bundle{position{2, 2}, health{5}})
	cmds.Insert(a, ecs.Bundle{position{3, 3}})
	cmds.InsertOne(b, position{4, 4})
	if err := cmds.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got, _ := ecs.Get[position](w, a); got != (position{3, 3}) {
		t.Fatalf("a: expected last insert to win, got %v", got)
	}
	if got, _ := ecs.Get[position](w, b); got != (position{4, 4}) {
		t.Fatalf("b: expected last insert to win, got %v", got)
	}
	if got, _ := ecs.Get[health](w, b); got.HP != 5 {
		t.Fatalf("b: expected health from bundle, got %v", got)
	}
}

func TestSpawnWithTargetsReservedEntity(t *testing.T) {
	w, res, cmds := setup(t)
	cmds.Spawn(ecs.Bundle{position{1, 2}}).With(health{10})
	id, ok := cmds.Current()
	if !ok {
		t.Fatal("expected cursor after spawn")
	}
	if w.Alive(id) {
		t.Fatal("reserved entity must not be visible before apply")
	}
	if cmds.Len() != 2 {
		t.Fatalf("expected 2 queued commands, got %d", cmds.Len())
	}

	if err := cmds.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !w.Alive(id) {
		t.Fatal("expected entity alive after apply")
	}
	if got, _ := ecs.Get[health](w, id); got.HP != 10 {
		t.Fatalf("expected With component on spawned entity, got %v", got)
	}
	if got, _ := ecs.Get[position](w, id); got != (position{1, 2}) {
		t.Fatalf("unexpected position %v", got)
	}
}

func TestWithoutSpawnPanics(t *testing.T) {
	t.Run("buffer", func(t *testing.T) {
		w := ecs.NewWorld()
		b := command.NewBuffer(w.Entities())
		mustPanic(t, command.ErrMissingEntityContext, func() { b.With(health{1}) })
		mustPanic(t, command.ErrMissingEntityContext, func() { b.WithBundle(ecs.Bundle{health{1}}) })
		if b.Len() != 0 {
			t.Fatalf("nothing may be queued, got %d", b.Len())
		}
	})

	t.Run("shared handle poisons", func(t *testing.T) {
		w, res, cmds := setup(t)
		mustPanic(t, command.ErrMissingEntityContext, func() { cmds.With(health{1}) })
		if !cmds.Poisoned() {
			t.Fatal("expected poisoned handle")
		}
		clone := cmds.Clone()
		mustPanic(t, command.ErrLockPoisoned, func() { clone.InsertResource(counter{1}) })
		if err := cmds.Apply(w, res); !errors.Is(err, command.ErrLockPoisoned) {
			t.Fatalf("expected ErrLockPoisoned, got %v", err)
		}
	})

	t.Run("cursor cleared by apply", func(t *testing.T) {
		w, res, cmds := setup(t)
		cmds.Spawn(ecs.Bundle{position{}})
		if err := cmds.Apply(w, res); err != nil {
			t.Fatalf("apply: %v", err)
		}
		mustPanic(t, command.ErrMissingEntityContext, func() { cmds.With(health{1}) })
	})
}

func TestSpawnBatch(t *testing.T) {
	w, res, cmds := setup(t)
	bundles := []ecs.Bundle{{position{0, 0}}, {position{1, 0}}, {position{2, 0}}, {position{3, 0}}}
	cmds.SpawnBatch(bundles)

	recs := cmds.Records()
	if len(recs) != 1 || recs[0].Kind != command.KindSpawnBatch {
		t.Fatalf("expected one spawn_batch command, got %+v", recs)
	}
	if w.Len() != 0 || ecs.Count[position](w) != 0 {
		t.Fatal("batch must not be visible before apply")
	}
	if err := cmds.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if w.Len() != len(bundles) || ecs.Count[position](w) != len(bundles) {
		t.Fatalf("expected %d entities, got %d", len(bundles), w.Len())
	}
	for i, id := range w.Entities().Live() {
		if got, _ := ecs.Get[position](w, id); got.X != i {
			t.Fatalf("batch order not preserved: entity %d has %v", i, got)
		}
	}
}

func TestResourceCommands(t *testing.T) {
	t.Run("overwrite", func(t *testing.T) {
		w, res, cmds := setup(t)
		cmds.InsertResource(counter{1}).InsertResource(counter{2})
		if err := cmds.Apply(w, res); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if got, _ := resource.Get[counter](res); got.N != 2 {
			t.Fatalf("expected 2, got %v", got)
		}
	})

	t.Run("local resources", func(t *testing.T) {
		w, res, cmds := setup(t)
		a, b := ecs.NewSystemID(), ecs.NewSystemID()
		cmds.InsertLocalResource(a, counter{7})
		cmds.InsertLocalResource(b, counter{7})
		cmds.InsertLocalResource(b, counter{8})
		if err := cmds.Apply(w, res); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if got, ok := resource.GetLocal[counter](res, a); !ok || got.N != 7 {
			t.Fatalf("system a: got %v %v", got, ok)
		}
		if got, ok := resource.GetLocal[counter](res, b); !ok || got.N != 8 {
			t.Fatalf("system b: got %v %v", got, ok)
		}
		if _, ok := resource.Get[counter](res); ok {
			t.Fatal("local inserts must not create a global resource")
		}
	})
}

func TestApplyStopsAtMissingTarget(t *testing.T) {
	w, res, cmds := setup(t)
	ghost := ecs.NewEntityID(99, 0)
	cmds.InsertResource(counter{1})
	cmds.Despawn(ghost)
	cmds.InsertResource(counter{2})
	cmds.Spawn(ecs.Bundle{position{}})

	err := cmds.Apply(w, res)
	if !errors.Is(err, command.ErrApplyTargetMissing) {
		t.Fatalf("expected ErrApplyTargetMissing, got %v", err)
	}
	if !errors.Is(err, ecs.ErrNoSuchEntity) {
		t.Fatalf("expected storage cause in chain, got %v", err)
	}
	var applyErr *command.ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected *ApplyError, got %T", err)
	}
	if applyErr.Index != 1 || applyErr.Kind != command.KindDespawn || applyErr.Entity != ghost || applyErr.Discarded != 2 {
		t.Fatalf("unexpected apply error %+v", applyErr)
	}

	if got, _ := resource.Get[counter](res); got.N != 1 {
		t.Fatalf("commands before the failure apply, later ones do not; got %v", got)
	}
	if w.Len() != 0 {
		t.Fatalf("spawn queued after the failure must not apply, got %d entities", w.Len())
	}
	if cmds.Len() != 0 {
		t.Fatalf("handle must be empty after a failed apply, got %d", cmds.Len())
	}
	if cmds.Poisoned() {
		t.Fatal("a failed apply is not a panic and must not poison")
	}
}

func TestInsertOnMissingTarget(t *testing.T) {
	w, res, cmds := setup(t)
	id := w.Spawn(ecs.Bundle{position{}})
	cmds.Despawn(id).InsertOne(id, health{1})
	err := cmds.Apply(w, res)
	var applyErr *command.ApplyError
	if !errors.As(err, &applyErr) || applyErr.Kind != command.KindInsertOne {
		t.Fatalf("expected insert_one failure, got %v", err)
	}
	if !errors.Is(err, command.ErrApplyTargetMissing) {
		t.Fatalf("expected ErrApplyTargetMissing, got %v", err)
	}
}

func TestApplyIsFIFO(t *testing.T) {
	w, res, cmds := setup(t)
	cmds.Spawn(ecs.Bundle{position{}})
	id, _ := cmds.Current()
	cmds.InsertOne(id, health{1})
	cmds.Despawn(id)
	recs, err := cmds.ApplyRecorded(w, res)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []command.Kind{command.KindSpawnAsEntity, command.KindInsertOne, command.KindDespawn}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(recs))
	}
	for i, k := range want {
		if recs[i].Kind != k || recs[i].Seq != i || recs[i].Entity != id {
			t.Fatalf("record %d: got %+v", i, recs[i])
		}
	}
	if w.Alive(id) {
		t.Fatal("entity must be despawned")
	}
}

func TestConcurrentClones(t *testing.T) {
	w, res, root := setup(t)
	const workers, per = 8, 250

	targets := make([]ecs.EntityID, workers)
	for i := range targets {
		targets[i] = w.Spawn(ecs.Bundle{counter{-1}})
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(h *command.Commands, target ecs.EntityID) {
			defer wg.Done()
			for n := 0; n < per; n++ {
				h.InsertOne(target, counter{n})
			}
		}(root.Clone(), targets[i])
	}
	wg.Wait()

	if root.Len() != workers*per {
		t.Fatalf("expected %d queued commands, got %d", workers*per, root.Len())
	}
	if err := root.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	for i, id := range targets {
		if got, _ := ecs.Get[counter](w, id); got.N != per-1 {
			t.Fatalf("worker %d: per-clone order lost, final value %d", i, got.N)
		}
	}
}

type panickingWorld struct {
	*ecs.World
}

func (panickingWorld) Despawn(ecs.EntityID) error {
	panic("storage corrupted")
}

var errReadOnly = errors.New("world is read-only")

type readOnlyWorld struct {
	*ecs.World
}

func (readOnlyWorld) Insert(ecs.EntityID, ecs.Bundle) error {
	return errReadOnly
}

func TestApplyErrorKeepsStorageCause(t *testing.T) {
	w, res, cmds := setup(t)
	id := w.Spawn(ecs.Bundle{position{}})
	cmds.InsertOne(id, health{HP: 1}).InsertResource(counter{1})

	err := cmds.Apply(readOnlyWorld{w}, res)
	var ae *command.ApplyError
	if !errors.As(err, &ae) || ae.Kind != command.KindInsertOne || ae.Discarded != 1 {
		t.Fatalf("expected ApplyError for insert_one, got %v", err)
	}
	if !errors.Is(err, errReadOnly) {
		t.Fatalf("storage cause lost: %v", err)
	}
	if errors.Is(err, command.ErrApplyTargetMissing) {
		t.Fatal("a live target must not be reported as missing")
	}
}

func TestPanicDuringApplyPoisons(t *testing.T) {
	w, res, cmds := setup(t)
	cmds.Despawn(ecs.NewEntityID(1, 0))

	func() {
		defer func() {
			if r := recover(); r != "storage corrupted" {
				t.Fatalf("expected storage panic to propagate, got %v", r)
			}
		}()
		_ = cmds.Apply(panickingWorld{w}, res)
	}()

	if err := cmds.Apply(w, res); !errors.Is(err, command.ErrLockPoisoned) {
		t.Fatalf("expected ErrLockPoisoned, got %v", err)
	}
	mustPanic(t, command.ErrLockPoisoned, func() { cmds.Spawn(nil) })
}

func TestResetDiscards(t *testing.T) {
	w, res, cmds := setup(t)
	cmds.Spawn(ecs.Bundle{position{}}).InsertResource(counter{1})
	cmds.Reset()
	if err := cmds.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if w.Len() != 0 || res.Len() != 0 {
		t.Fatal("reset must discard queued work")
	}
}

func TestBufferApply(t *testing.T) {
	w := ecs.NewWorld()
	res := resource.New()
	b := command.NewBuffer(w.Entities())
	b.Spawn(ecs.Bundle{position{1, 1}}).With(health{3}).WithBundle(ecs.Bundle{counter{4}})
	b.Push(command.InsertResource(counter{9}))
	id, _ := b.Current()
	if err := b.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b.Len() != 0 {
		t.Fatal("buffer must be empty after apply")
	}
	if got, _ := ecs.Get[counter](w, id); got.N != 4 {
		t.Fatalf("unexpected counter %v", got)
	}
	if got, _ := resource.Get[counter](res); got.N != 9 {
		t.Fatalf("unexpected resource %v", got)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		kind     command.Kind
		name     string
		category command.Category
	}{
		{command.KindSpawn, "spawn", command.CategoryWorld},
		{command.KindSpawnAsEntity, "spawn_as_entity", command.CategoryWorld},
		{command.KindSpawnBatch, "spawn_batch", command.CategoryWorld},
		{command.KindDespawn, "despawn", command.CategoryWorld},
		{command.KindInsert, "insert", command.CategoryWorld},
		{command.KindInsertOne, "insert_one", command.CategoryWorld},
		{command.KindInsertResource, "insert_resource", command.CategoryResources},
		{command.KindInsertLocalResource, "insert_local_resource", command.CategoryResources},
	}
	for _, tt := range tests {
		if tt.kind.String() != tt.name {
			t.Errorf("kind %d: expected name %q, got %q", tt.kind, tt.name, tt.kind.String())
		}
		if tt.kind.Category() != tt.category {
			t.Errorf("%s: expected category %s, got %s", tt.name, tt.category, tt.kind.Category())
		}
	}

	c := command.InsertLocalResource(ecs.NewSystemID(), counter{1})
	if _, ok := c.WorldOp(); ok {
		t.Error("resource command must not expose a world op")
	}
	if op, ok := c.ResourceOp(); !ok || op.Value != (counter{1}) {
		t.Errorf("unexpected resource op %+v", op)
	}
}

func TestPlainSpawnCommand(t *testing.T) {
	w, res, cmds := setup(t)
	cmds.Push(command.Spawn(ecs.Bundle{position{5, 5}}))
	if _, ok := cmds.Current(); ok {
		t.Fatal("pushing a plain spawn must not move the cursor")
	}
	if err := cmds.Apply(w, res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if ecs.Count[position](w) != 1 {
		t.Fatal("expected one spawned entity")
	}
}
