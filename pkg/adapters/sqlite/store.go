// Package sqlite provides a RunStore backed by an embedded SQLite
// database, suitable for single-host persistence without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/schema"
)

// Store implements ports.RunStore on a SQLite database. Events are kept
// as envelope JSON in a TEXT column so the rows stay inspectable with
// plain SQL tooling.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and prepares the schema.
// Use ":memory:" for an ephemeral store.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS run_events (
			run_id  TEXT    NOT NULL,
			seq     INTEGER NOT NULL,
			at_ns   INTEGER NOT NULL,
			event   TEXT    NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_run_events_at ON run_events (at_ns);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create run_events table: %w", err)
	}
	return nil
}

// Append adds one record to a run's step log.
func (s *Store) Append(ctx context.Context, rec domain.StepRecord) error {
	envelope, err := schema.Encode(rec.Event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, seq, at_ns, event) VALUES (?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.At.UnixNano(), string(envelope),
	)
	if err != nil {
		return fmt.Errorf("insert run event: %w", err)
	}
	return nil
}

// List returns a run's records ordered by Seq.
func (s *Store) List(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, at_ns, event FROM run_events WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	var records []domain.StepRecord
	for rows.Next() {
		var (
			seq      int
			atNanos  int64
			envelope string
		)
		if err := rows.Scan(&seq, &atNanos, &envelope); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		ev, err := schema.Decode([]byte(envelope))
		if err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		records = append(records, domain.StepRecord{
			RunID: runID,
			Seq:   seq,
			At:    time.Unix(0, atNanos).UTC(),
			Event: ev,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run events: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrRunNotFound
	}
	return records, nil
}

// Runs summarizes recorded runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]domain.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, MIN(at_ns) AS started, COUNT(*) AS events
		FROM run_events
		GROUP BY run_id
		ORDER BY started DESC, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	var infos []domain.RunInfo
	for rows.Next() {
		var (
			runID   string
			started int64
			events  int
		)
		if err := rows.Scan(&runID, &started, &events); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		infos = append(infos, domain.RunInfo{
			RunID:     runID,
			StartedAt: time.Unix(0, started).UTC(),
			Events:    events,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summaries: %w", err)
	}
	return infos, nil
}

// Delete removes a run's records. Deleting an unknown run is not an error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_events WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run events: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
