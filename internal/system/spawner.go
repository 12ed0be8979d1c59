package system

import (
	"fmt"

	"github.com/you-win/bevy/internal/component"
	"github.com/you-win/bevy/internal/core/ecs"
	"github.com/you-win/bevy/internal/core/resource"
	coresys "github.com/you-win/bevy/internal/core/system"
)

// PrefabSource resolves prefab names to bundles.
type PrefabSource interface {
	Bundle(name string) (ecs.Bundle, bool)
}

// SpawnerSystem spawns a prefab every N ticks and, until it has been
// applied once, an initial batch of prefabs. Phase 1 (PreUpdate).
type SpawnerSystem struct {
	prefabs  PrefabSource
	prefab   string
	every    uint64
	lifetime int
	initial  []string
}

// spawnerState is queued with the initial batch, so it only lands if the
// batch does. A discarded pass leaves the batch pending for the next run.
type spawnerState struct {
	Seeded bool
}

func NewSpawnerSystem(prefabs PrefabSource, prefab string, every, lifetime int, initial []string) (*SpawnerSystem, error) {
	if every > 0 {
		if _, ok := prefabs.Bundle(prefab); !ok {
			return nil, fmt.Errorf("spawner: unknown prefab %q", prefab)
		}
	}
	for _, name := range initial {
		if _, ok := prefabs.Bundle(name); !ok {
			return nil, fmt.Errorf("spawner: unknown prefab %q in initial batch", name)
		}
	}
	return &SpawnerSystem{
		prefabs:  prefabs,
		prefab:   prefab,
		every:    uint64(max(every, 0)),
		lifetime: lifetime,
		initial:  initial,
	}, nil
}

func (s *SpawnerSystem) Name() string         { return "spawner" }
func (s *SpawnerSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *SpawnerSystem) Update(p *coresys.Params) error {
	if st, _ := resource.GetLocal[spawnerState](p.Resources, p.ID); !st.Seeded && len(s.initial) > 0 {
		batch := make([]ecs.Bundle, 0, len(s.initial))
		for _, name := range s.initial {
			b, _ := s.prefabs.Bundle(name)
			batch = append(batch, b)
		}
		p.Commands.
			SpawnBatch(batch).
			InsertLocalResource(p.ID, spawnerState{Seeded: true})
	}

	if s.every == 0 || p.Tick%s.every != 0 {
		return nil
	}
	b, _ := s.prefabs.Bundle(s.prefab)
	// Other systems of this pass share the cursor, so name the entity
	// explicitly instead of chaining With.
	id := p.World.Entities().Reserve()
	p.Commands.SpawnAsEntity(id, b)
	if s.lifetime > 0 {
		p.Commands.InsertOne(id, component.Lifetime{Ticks: s.lifetime})
	}
	return nil
}
