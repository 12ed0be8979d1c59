// Package persist stores the command journal: one row for every command a
// scheduling pass applied, in application order.
package persist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you-win/bevy/internal/config"
	"github.com/you-win/bevy/internal/core/command"
)

// Entry is one journal row. Pass numbers restart with every run, so a pass
// is only meaningful together with its RunID.
type Entry struct {
	RunID  string
	Pass   uint64
	Phase  string
	Seq    int
	Kind   string
	Entity uint64
	System string
}

// Journal is implemented by every backend. Each opened journal is one run:
// Record tags its rows with RunID.
type Journal interface {
	Record(ctx context.Context, pass uint64, phase string, recs []command.Record) error
	RunID() string
	Count(ctx context.Context) (int64, error)
	Entries(ctx context.Context, runID string, pass uint64) ([]Entry, error)
	Close() error
}

// Open returns the journal selected by cfg.Driver, or nil when journaling
// is disabled.
func Open(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (Journal, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		j, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db.Pool); err != nil {
			db.Close()
			return nil, err
		}
		return NewPGJournal(db), nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}

func newRunID() string { return uuid.NewString() }

func toEntry(runID string, pass uint64, phase string, r command.Record) Entry {
	e := Entry{
		RunID:  runID,
		Pass:   pass,
		Phase:  phase,
		Seq:    r.Seq,
		Kind:   r.Kind.String(),
		Entity: uint64(r.Entity),
	}
	if !r.System.IsZero() {
		e.System = r.System.String()
	}
	return e
}
