package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Runner    RunnerConfig    `toml:"runner"`
	Logging   LoggingConfig   `toml:"logging"`
	Journal   JournalConfig   `toml:"journal"`
	Scripting ScriptingConfig `toml:"scripting"`
	Data      DataConfig      `toml:"data"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Profile   ProfileConfig   `toml:"profile"`
}

type RunnerConfig struct {
	TickRate     time.Duration `toml:"tick_rate" env:"BEVY_TICK_RATE"`
	MaxTicks     int           `toml:"max_ticks" env:"BEVY_MAX_TICKS"` // 0 = run until interrupted
	Workers      int           `toml:"workers" env:"BEVY_WORKERS"`     // systems run at once per pass, 0 = unlimited
	SpawnEvery   int           `toml:"spawn_every"`                    // ticks between spawner runs
	SpawnPrefab  string        `toml:"spawn_prefab"`
	SpawnLife    int           `toml:"spawn_lifetime"` // ticks a spawned entity lives
	InitialBatch []string      `toml:"initial_batch"`  // prefabs spawned as one batch on the first tick
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"BEVY_LOG_LEVEL"`
	Format string `toml:"format" env:"BEVY_LOG_FORMAT"` // "json" or "console"
}

type JournalConfig struct {
	Driver          string        `toml:"driver" env:"BEVY_JOURNAL_DRIVER"` // "", "sqlite" or "postgres"
	DSN             string        `toml:"dsn" env:"BEVY_JOURNAL_DSN"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir" env:"BEVY_SCRIPTS_DIR"`
}

type DataConfig struct {
	Prefabs string `toml:"prefabs" env:"BEVY_PREFABS"`
}

type TelemetryConfig struct {
	ServiceName  string `toml:"service_name"`
	OTLPEndpoint string `toml:"otlp_endpoint" env:"BEVY_OTEL_ENDPOINT"` // empty disables tracing
}

type ProfileConfig struct {
	Mode string `toml:"mode" env:"BEVY_PROFILE"` // "", "cpu", "mem", "trace"
	Path string `toml:"path"`
}

// Load builds the configuration from defaults, the TOML file at path and
// BEVY_* environment variables, in that order. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Runner.TickRate <= 0 {
		return fmt.Errorf("runner.tick_rate must be positive, got %s", c.Runner.TickRate)
	}
	switch c.Journal.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("journal.driver %q is not one of sqlite, postgres", c.Journal.Driver)
	}
	if c.Journal.Driver != "" && c.Journal.DSN == "" {
		return fmt.Errorf("journal.dsn is required for driver %s", c.Journal.Driver)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Runner: RunnerConfig{
			TickRate:    100 * time.Millisecond,
			SpawnEvery:  10,
			SpawnPrefab: "mote",
			SpawnLife:   30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Journal: JournalConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Data: DataConfig{
			Prefabs: "data/prefabs.yaml",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "bevyd",
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}
