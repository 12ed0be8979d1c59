package system

import (
	"github.com/you-win/bevy/internal/core/resource"
	coresys "github.com/you-win/bevy/internal/core/system"
)

// WorldStats is the global resource StatsSystem maintains.
type WorldStats struct {
	Tick     uint64
	Entities int
}

// statsRuns is StatsSystem's private run counter, kept as a local resource.
type statsRuns struct {
	N int
}

// StatsSystem publishes entity counts as a resource. Phase 4 (Last).
type StatsSystem struct{}

func NewStatsSystem() *StatsSystem { return &StatsSystem{} }

func (s *StatsSystem) Name() string         { return "stats" }
func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseLast }

func (s *StatsSystem) Update(p *coresys.Params) error {
	runs, _ := resource.GetLocal[statsRuns](p.Resources, p.ID)
	p.Commands.
		InsertResource(WorldStats{Tick: p.Tick, Entities: p.World.Len()}).
		InsertLocalResource(p.ID, statsRuns{N: runs.N + 1})
	return nil
}
