package persist

import (
	"context"
	"fmt"

	"github.com/you-win/bevy/internal/core/command"
)

// PGJournal writes the journal to postgres.
type PGJournal struct {
	db    *DB
	runID string
}

// NewPGJournal starts a new run on db.
func NewPGJournal(db *DB) *PGJournal {
	return &PGJournal{db: db, runID: newRunID()}
}

func (j *PGJournal) RunID() string { return j.runID }

// Record atomically writes one pass worth of records in a single transaction.
func (j *PGJournal) Record(ctx context.Context, pass uint64, phase string, recs []command.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := j.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range recs {
		e := toEntry(j.runID, pass, phase, r)
		if _, err := tx.Exec(ctx,
			`INSERT INTO command_journal (run_id, pass, phase, seq, kind, entity, system_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.RunID, int64(e.Pass), e.Phase, e.Seq, e.Kind, int64(e.Entity), e.System,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (j *PGJournal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM command_journal`).Scan(&n)
	return n, err
}

// Entries returns the rows of one pass of a run, ordered by seq.
func (j *PGJournal) Entries(ctx context.Context, runID string, pass uint64) ([]Entry, error) {
	rows, err := j.db.Pool.Query(ctx,
		`SELECT run_id, pass, phase, seq, kind, entity, system_id
		 FROM command_journal WHERE run_id = $1 AND pass = $2 ORDER BY seq`,
		runID, int64(pass),
	)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e               Entry
			rowPass, entity int64
		)
		if err := rows.Scan(&e.RunID, &rowPass, &e.Phase, &e.Seq, &e.Kind, &entity, &e.System); err != nil {
			return nil, err
		}
		e.Pass, e.Entity = uint64(rowPass), uint64(entity)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *PGJournal) Close() error {
	j.db.Close()
	return nil
}
