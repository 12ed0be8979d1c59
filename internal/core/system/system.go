package system

import (
	"context"
	"time"

	"github.com/you-win/bevy/internal/core/command"
	"github.com/you-win/bevy/internal/core/ecs"
	"github.com/you-win/bevy/internal/core/event"
	"github.com/you-win/bevy/internal/core/resource"
)

// Phase defines execution ordering within a single tick. Every phase is
// one scheduling pass: its systems run concurrently, then their queued
// commands are applied before the next phase starts.
type Phase int

const (
	PhaseFirst      Phase = iota // 0: input, timers
	PhasePreUpdate               // 1: spawning
	PhaseUpdate                  // 2: game logic
	PhasePostUpdate              // 3: lifetimes, cleanup
	PhaseLast                    // 4: stats, bookkeeping
)

var phaseNames = [...]string{"first", "pre_update", "update", "post_update", "last"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// ParsePhase maps a phase name back to its Phase.
func ParsePhase(name string) (Phase, bool) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), true
		}
	}
	return 0, false
}

// Params is what a system receives for one invocation. World and Resources
// are shared with every other system of the pass and must only be read;
// mutations go through Commands and land after the pass.
type Params struct {
	Ctx       context.Context
	DT        time.Duration
	Tick      uint64
	ID        ecs.SystemID
	Commands  *command.Commands
	World     *ecs.World
	Resources *resource.Resources
	Bus       *event.Bus
}

// System is the interface every ECS system implements.
type System interface {
	Name() string
	Phase() Phase
	Update(p *Params) error
}
