package system

import (
	"github.com/you-win/bevy/internal/component"
	"github.com/you-win/bevy/internal/core/ecs"
	coresys "github.com/you-win/bevy/internal/core/system"
)

// MovementSystem integrates Velocity into Position. Phase 2 (Update).
// The new position is queued, so every reader of this pass sees the old one.
type MovementSystem struct{}

func NewMovementSystem() *MovementSystem { return &MovementSystem{} }

func (s *MovementSystem) Name() string         { return "movement" }
func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(p *coresys.Params) error {
	dt := p.DT.Seconds()
	ecs.Each2(p.World, func(id ecs.EntityID, pos component.Position, vel component.Velocity) {
		if vel.X == 0 && vel.Y == 0 {
			return
		}
		p.Commands.InsertOne(id, component.Position{
			X: pos.X + vel.X*dt,
			Y: pos.Y + vel.Y*dt,
		})
	})
	return nil
}
