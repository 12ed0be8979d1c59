package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bevy.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Runner.TickRate != 100*time.Millisecond {
		t.Fatalf("unexpected tick rate %s", cfg.Runner.TickRate)
	}
	if cfg.Journal.Driver != "" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
[runner]
tick_rate = "50ms"
max_ticks = 20
initial_batch = ["mote", "rock"]

[logging]
level = "debug"

[journal]
driver = "sqlite"
dsn = "journal.db"
`)
	t.Setenv("BEVY_LOG_LEVEL", "warn")
	t.Setenv("BEVY_WORKERS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Runner.TickRate != 50*time.Millisecond || cfg.Runner.MaxTicks != 20 {
		t.Fatalf("unexpected runner config %+v", cfg.Runner)
	}
	if len(cfg.Runner.InitialBatch) != 2 {
		t.Fatalf("unexpected initial batch %v", cfg.Runner.InitialBatch)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("env must override file, got %q", cfg.Logging.Level)
	}
	if cfg.Runner.Workers != 3 {
		t.Fatalf("expected workers from env, got %d", cfg.Runner.Workers)
	}
	if cfg.Journal.Driver != "sqlite" || cfg.Journal.DSN != "journal.db" {
		t.Fatalf("unexpected journal config %+v", cfg.Journal)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown driver": "[journal]\ndriver = \"mysql\"\ndsn = \"x\"\n",
		"missing dsn":    "[journal]\ndriver = \"postgres\"\n",
		"bad toml":       "[runner\n",
		"zero tick":      "[runner]\ntick_rate = \"0s\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
