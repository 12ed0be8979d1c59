package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/you-win/bevy/internal/component"
	"github.com/you-win/bevy/internal/config"
	"github.com/you-win/bevy/internal/core/command"
	"github.com/you-win/bevy/internal/core/ecs"
	"github.com/you-win/bevy/internal/core/event"
	"github.com/you-win/bevy/internal/core/resource"
	coresys "github.com/you-win/bevy/internal/core/system"
	"github.com/you-win/bevy/internal/data"
	"github.com/you-win/bevy/internal/persist"
	"github.com/you-win/bevy/internal/scripting"
	"github.com/you-win/bevy/internal/system"
	"github.com/you-win/bevy/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/bevy.toml"
	if p := os.Getenv("BEVY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if stop := startProfile(cfg.Profile); stop != nil {
		defer stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 3. Tracing
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdown(flushCtx); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	// 4. Journal
	openCtx, openCancel := context.WithTimeout(ctx, 30*time.Second)
	journal, err := persist.Open(openCtx, cfg.Journal, log)
	openCancel()
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if journal != nil {
		defer journal.Close()
		log.Info("journal enabled", zap.String("driver", cfg.Journal.Driver))
	}

	// 5. Prefabs
	prefabs, err := data.LoadPrefabTable(cfg.Data.Prefabs)
	if err != nil {
		return fmt.Errorf("prefabs: %w", err)
	}
	log.Info("prefabs loaded", zap.Int("count", prefabs.Count()), zap.Strings("names", prefabs.Names()))

	// 6. World, resources and the initial scene
	world := ecs.NewWorld()
	res := resource.New()
	if err := bootstrap(world, res, cfg); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	// 7. Systems
	runner := coresys.NewRunner(world, res, log)
	runner.SetWorkers(cfg.Runner.Workers)
	if journal != nil {
		runner.SetJournal(journal)
	}
	bus := event.NewBus()
	runner.SetBus(bus)

	spawner, err := system.NewSpawnerSystem(prefabs, cfg.Runner.SpawnPrefab, cfg.Runner.SpawnEvery, cfg.Runner.SpawnLife, cfg.Runner.InitialBatch)
	if err != nil {
		return err
	}
	runner.Register(spawner)
	runner.Register(system.NewMovementSystem())
	runner.Register(system.NewLifetimeSystem())
	runner.Register(system.NewStatsSystem())

	scripts, err := scripting.LoadSystems(cfg.Scripting.Dir, prefabs, log)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	for _, s := range scripts {
		defer s.Close()
		runner.Register(s)
	}
	log.Info("systems registered", zap.Int("count", runner.Len()), zap.Int("scripts", len(scripts)))

	var applied int
	event.Subscribe(bus, func(e event.PassApplied) { applied += e.Applied })

	// 8. Game loop
	ticker := time.NewTicker(cfg.Runner.TickRate)
	defer ticker.Stop()
	log.Info("runner started", zap.Duration("tick_rate", cfg.Runner.TickRate), zap.Int("max_ticks", cfg.Runner.MaxTicks))

	ticks := 0
	for {
		select {
		case <-ticker.C:
			if err := runner.Tick(ctx, cfg.Runner.TickRate); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				return fmt.Errorf("tick %d: %w", ticks+1, err)
			}
			ticks++
			if cfg.Runner.MaxTicks > 0 && ticks >= cfg.Runner.MaxTicks {
				logSummary(log, runner, world, res, ticks, applied)
				return nil
			}
		case <-ctx.Done():
			log.Info("shutdown signal received")
			logSummary(log, runner, world, res, ticks, applied)
			return nil
		}
	}
}

// bootstrap queues the initial scene on a single-threaded buffer and
// applies it before any system runs.
func bootstrap(world *ecs.World, res *resource.Resources, cfg *config.Config) error {
	buf := command.NewBuffer(world.Entities())
	buf.Spawn(ecs.Bundle{component.Label("origin"), component.Position{}}).
		With(component.Health{Current: 1, Max: 1})
	buf.Push(command.InsertResource(cfg.Runner))
	return buf.Apply(world, res)
}

func logSummary(log *zap.Logger, runner *coresys.Runner, world *ecs.World, res *resource.Resources, ticks, applied int) {
	stats, _ := resource.Get[system.WorldStats](res)
	log.Info("runner stopped",
		zap.Int("ticks", ticks),
		zap.Uint64("passes", runner.Passes()),
		zap.Int("commands_applied", applied),
		zap.Int("entities", world.Len()),
		zap.Uint64("stats_tick", stats.Tick),
	)
}

func startProfile(cfg config.ProfileConfig) func() {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	case "trace":
		mode = profile.TraceProfile
	default:
		return nil
	}
	return profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook).Stop
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
