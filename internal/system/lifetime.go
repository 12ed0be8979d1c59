package system

import (
	"github.com/you-win/bevy/internal/component"
	"github.com/you-win/bevy/internal/core/ecs"
	coresys "github.com/you-win/bevy/internal/core/system"
)

// LifetimeSystem counts down Lifetime and despawns entities that run out.
// Phase 3 (PostUpdate).
type LifetimeSystem struct{}

func NewLifetimeSystem() *LifetimeSystem { return &LifetimeSystem{} }

func (s *LifetimeSystem) Name() string         { return "lifetime" }
func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *LifetimeSystem) Update(p *coresys.Params) error {
	ecs.Each(p.World, func(id ecs.EntityID, l component.Lifetime) {
		if l.Ticks <= 1 {
			p.Commands.Despawn(id)
			return
		}
		p.Commands.InsertOne(id, component.Lifetime{Ticks: l.Ticks - 1})
	})
	return nil
}
