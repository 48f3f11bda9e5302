// Package archive provides SQLite-backed persistence for runs and
// evaluations, so results stay queryable after run workspaces are gone.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/singlefault/mend/internal/result"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	started_at      INTEGER NOT NULL,
	duration_s      INTEGER NOT NULL DEFAULT 0,
	strategy        TEXT NOT NULL,
	pos_count       INTEGER NOT NULL,
	neg_count       INTEGER NOT NULL,
	negative_weight REAL NOT NULL,
	sample_fraction REAL NOT NULL,
	single_fitness  INTEGER NOT NULL DEFAULT 0,
	max_fitness     REAL NOT NULL,
	seed            INTEGER NOT NULL DEFAULT 0,
	candidates      INTEGER NOT NULL DEFAULT 0,
	evaluated       INTEGER NOT NULL DEFAULT 0,
	repairs         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS evaluations (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	variant     TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	fitness     REAL NOT NULL,
	max_fitness REAL NOT NULL,
	success     INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id);
`

// Evaluation is one fitness evaluation of one variant.
type Evaluation struct {
	ID         string
	RunID      string
	Variant    string
	Strategy   string
	Fitness    float64
	MaxFitness float64
	Success    bool
	DurationMS int64
	CreatedAt  time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at path. SQLite allows a
// single writer, so the pool is capped at one connection.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts or updates a run summary.
func (s *Store) RecordRun(ctx context.Context, meta *result.RunMeta) error {
	const q = `INSERT INTO runs (run_id, started_at, duration_s, strategy, pos_count, neg_count,
	negative_weight, sample_fraction, single_fitness, max_fitness, seed, candidates, evaluated, repairs)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
	duration_s = excluded.duration_s,
	candidates = excluded.candidates,
	evaluated = excluded.evaluated,
	repairs = excluded.repairs`
	_, err := s.db.ExecContext(ctx, q,
		meta.RunID,
		meta.StartedAt.Unix(),
		meta.DurationS,
		meta.Strategy,
		meta.PosCount,
		meta.NegCount,
		meta.NegativeWeight,
		meta.SampleFraction,
		boolToInt(meta.SingleFitness),
		meta.MaxFitness,
		meta.Seed,
		meta.Candidates,
		meta.Evaluated,
		meta.Repairs,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecordEvaluation appends one evaluation. A missing ID gets a fresh
// UUID.
func (s *Store) RecordEvaluation(ctx context.Context, e Evaluation) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO evaluations (id, run_id, variant, strategy, fitness, max_fitness, success, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.RunID,
		e.Variant,
		e.Strategy,
		e.Fitness,
		e.MaxFitness,
		boolToInt(e.Success),
		e.DurationMS,
		e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record evaluation: %w", err)
	}
	return nil
}

// ListRuns returns all run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]result.RunMeta, error) {
	const q = `SELECT run_id, started_at, duration_s, strategy, pos_count, neg_count,
	negative_weight, sample_fraction, single_fitness, max_fitness, seed, candidates, evaluated, repairs
FROM runs
ORDER BY started_at DESC, run_id DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []result.RunMeta
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// GetRun looks up one run summary by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (result.RunMeta, bool, error) {
	const q = `SELECT run_id, started_at, duration_s, strategy, pos_count, neg_count,
	negative_weight, sample_fraction, single_fitness, max_fitness, seed, candidates, evaluated, repairs
FROM runs
WHERE run_id = ?`
	row := s.db.QueryRowContext(ctx, q, runID)
	meta, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result.RunMeta{}, false, nil
		}
		return result.RunMeta{}, false, err
	}
	return meta, true, nil
}

// ListEvaluations returns a run's evaluations, best fitness first.
func (s *Store) ListEvaluations(ctx context.Context, runID string) ([]Evaluation, error) {
	const q = `SELECT id, run_id, variant, strategy, fitness, max_fitness, success, duration_ms, created_at
FROM evaluations
WHERE run_id = ?
ORDER BY fitness DESC, created_at ASC, variant ASC`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		var success int
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Variant, &e.Strategy, &e.Fitness, &e.MaxFitness, &success, &e.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		e.Success = success != 0
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (result.RunMeta, error) {
	var meta result.RunMeta
	var startedAt int64
	var single int
	err := row.Scan(
		&meta.RunID,
		&startedAt,
		&meta.DurationS,
		&meta.Strategy,
		&meta.PosCount,
		&meta.NegCount,
		&meta.NegativeWeight,
		&meta.SampleFraction,
		&single,
		&meta.MaxFitness,
		&meta.Seed,
		&meta.Candidates,
		&meta.Evaluated,
		&meta.Repairs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result.RunMeta{}, err
		}
		return result.RunMeta{}, fmt.Errorf("scan run: %w", err)
	}
	meta.StartedAt = time.Unix(startedAt, 0).UTC()
	meta.SingleFitness = single != 0
	return meta, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
