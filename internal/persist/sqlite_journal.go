package persist

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3/database"
	_ "modernc.org/sqlite"

	"github.com/you-win/bevy/internal/core/command"
)

// SQLiteJournal writes the journal to a local SQLite file.
type SQLiteJournal struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens path and applies the embedded sqlite migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, db, database.DialectSQLite3, "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db, runID: newRunID()}, nil
}

func (j *SQLiteJournal) RunID() string { return j.runID }

func (j *SQLiteJournal) Record(ctx context.Context, pass uint64, phase string, recs []command.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO command_journal (run_id, pass, phase, seq, kind, entity, system_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("journal prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		e := toEntry(j.runID, pass, phase, r)
		if _, err := stmt.ExecContext(ctx,
			e.RunID, int64(e.Pass), e.Phase, e.Seq, e.Kind, int64(e.Entity), e.System,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}
	return tx.Commit()
}

func (j *SQLiteJournal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM command_journal`).Scan(&n)
	return n, err
}

func (j *SQLiteJournal) Entries(ctx context.Context, runID string, pass uint64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, pass, phase, seq, kind, entity, system_id
		 FROM command_journal WHERE run_id = ? AND pass = ? ORDER BY seq`,
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

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
