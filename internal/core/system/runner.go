package system

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/you-win/bevy/internal/core/command"
	"github.com/you-win/bevy/internal/core/ecs"
	"github.com/you-win/bevy/internal/core/event"
	"github.com/you-win/bevy/internal/core/resource"
)

const tracerName = "github.com/you-win/bevy/internal/core/system"

// Journal receives the commands each pass applied.
type Journal interface {
	Record(ctx context.Context, pass uint64, phase string, recs []command.Record) error
}

type entry struct {
	sys System
	id  ecs.SystemID
}

// Runner executes systems in phase order each tick and is the coordinator
// that drains the per-pass command buffer.
type Runner struct {
	world     *ecs.World
	resources *resource.Resources
	log       *zap.Logger
	tracer    trace.Tracer

	bus     *event.Bus
	journal Journal
	workers int

	systems []entry
	sorted  bool
	tick    uint64
	pass    uint64
}

func NewRunner(world *ecs.World, resources *resource.Resources, log *zap.Logger) *Runner {
	return &Runner{
		world:     world,
		resources: resources,
		log:       log,
		tracer:    otel.Tracer(tracerName),
		systems:   make([]entry, 0, 16),
	}
}

// SetBus attaches an event bus. Buffers are swapped and dispatched at the
// start of every tick, and pass results are published on it.
func (r *Runner) SetBus(b *event.Bus) { r.bus = b }

// SetJournal attaches a journal for applied commands.
func (r *Runner) SetJournal(j Journal) { r.journal = j }

// SetWorkers bounds how many systems of one pass run at once. Zero or less
// means no limit.
func (r *Runner) SetWorkers(n int) { r.workers = n }

// Register adds a system and returns the SystemID that scopes its local
// resources.
func (r *Runner) Register(s System) ecs.SystemID {
	id := ecs.NewSystemID()
	r.systems = append(r.systems, entry{sys: s, id: id})
	r.sorted = false
	return id
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

// Passes returns the number of scheduling passes run so far.
func (r *Runner) Passes() uint64 { return r.pass }

// Tick runs one pass per phase that has systems, in phase order. It stops
// at the first pass that fails.
func (r *Runner) Tick(ctx context.Context, dt time.Duration) error {
	r.ensureSorted()
	r.tick++
	if r.bus != nil {
		r.bus.SwapBuffers()
		r.bus.DispatchAll()
	}
	for start := 0; start < len(r.systems); {
		phase := r.systems[start].sys.Phase()
		end := start
		for end < len(r.systems) && r.systems[end].sys.Phase() == phase {
			end++
		}
		if err := r.runPass(ctx, phase, r.systems[start:end], dt); err != nil {
			return err
		}
		start = end
	}
	return nil
}

// TickPhase runs a single pass for the given phase only.
func (r *Runner) TickPhase(ctx context.Context, phase Phase, dt time.Duration) error {
	r.ensureSorted()
	r.tick++
	var group []entry
	for _, e := range r.systems {
		if e.sys.Phase() == phase {
			group = append(group, e)
		}
	}
	if len(group) == 0 {
		return nil
	}
	return r.runPass(ctx, phase, group, dt)
}

func (r *Runner) runPass(ctx context.Context, phase Phase, group []entry, dt time.Duration) error {
	r.pass++
	pass := r.pass
	ctx, span := r.tracer.Start(ctx, "scheduling pass", trace.WithAttributes(
		attribute.Int64("pass", int64(pass)),
		attribute.String("phase", phase.String()),
		attribute.Int("systems", len(group)),
	))
	defer span.End()

	start := time.Now()
	cmds := command.NewCommands(r.world.Entities())

	g, gctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}
	for _, e := range group {
		p := &Params{
			Ctx:       gctx,
			DT:        dt,
			Tick:      r.tick,
			ID:        e.id,
			Commands:  cmds.Clone(),
			World:     r.world,
			Resources: r.resources,
			Bus:       r.bus,
		}
		sys := e.sys
		g.Go(func() error {
			if err := sys.Update(p); err != nil {
				return fmt.Errorf("system %s: %w", sys.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Nothing from a failed pass is applied.
		cmds.Reset()
		return r.fail(span, pass, phase, err)
	}

	queued := cmds.Len()
	recs, err := cmds.ApplyRecorded(r.world, r.resources)
	r.record(ctx, pass, phase, recs)
	if err != nil {
		return r.fail(span, pass, phase, err)
	}

	span.SetAttributes(attribute.Int("commands", len(recs)))
	if r.bus != nil {
		event.Emit(r.bus, event.PassApplied{Pass: pass, Phase: phase.String(), Applied: len(recs)})
	}
	r.log.Debug("pass applied",
		zap.Uint64("pass", pass),
		zap.String("phase", phase.String()),
		zap.Int("systems", len(group)),
		zap.Int("commands", queued),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Runner) record(ctx context.Context, pass uint64, phase Phase, recs []command.Record) {
	if r.journal == nil || len(recs) == 0 {
		return
	}
	if err := r.journal.Record(ctx, pass, phase.String(), recs); err != nil {
		r.log.Warn("journal write failed",
			zap.Uint64("pass", pass),
			zap.String("phase", phase.String()),
			zap.Error(err),
		)
	}
}

func (r *Runner) fail(span trace.Span, pass uint64, phase Phase, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if r.bus != nil {
		event.Emit(r.bus, event.PassFailed{Pass: pass, Phase: phase.String(), Err: err})
	}
	r.log.Error("pass failed",
		zap.Uint64("pass", pass),
		zap.String("phase", phase.String()),
		zap.Error(err),
	)
	return fmt.Errorf("pass %d (%s): %w", pass, phase, err)
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].sys.Phase() < r.systems[j].sys.Phase()
		})
		r.sorted = true
	}
}
