package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists run records in a SQLite database. A single connection and
// WAL keep concurrent recorders simple; database/sql serializes the writes.
type Store struct {
	db *sql.DB
}

// OpenStore opens the results database at path, creating the file, parent
// directory and schema as needed.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create results dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initPragmas(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id           TEXT NOT NULL,
			scenario         TEXT NOT NULL,
			policy           TEXT NOT NULL,
			seed             INTEGER NOT NULL,
			score            INTEGER NOT NULL,
			steps            INTEGER NOT NULL,
			deliveries       INTEGER NOT NULL,
			total_deliveries INTEGER NOT NULL,
			outcome          TEXT NOT NULL,
			created_at       TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_policy ON runs(policy);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Record inserts one finished run. A zero CreatedAt is stamped with the
// current time.
func (s *Store) Record(ctx context.Context, rec RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, scenario, policy, seed, score, steps,
			deliveries, total_deliveries, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Scenario, rec.Policy, rec.Seed, rec.Score, rec.Steps,
		rec.Deliveries, rec.TotalDeliveries, rec.Outcome,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scenario, policy, seed, score, steps,
			deliveries, total_deliveries, outcome, created_at
		 FROM runs
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var createdAt string
		if err := rows.Scan(&rec.RunID, &rec.Scenario, &rec.Policy, &rec.Seed,
			&rec.Score, &rec.Steps, &rec.Deliveries, &rec.TotalDeliveries,
			&rec.Outcome, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PolicyAggregate summarizes every recorded run of one policy.
type PolicyAggregate struct {
	Policy    string  `json:"policy"`
	Runs      int     `json:"runs"`
	AvgScore  float64 `json:"avg_score"`
	AvgSteps  float64 `json:"avg_steps"`
	Completed int     `json:"completed"`
	Stranded  int     `json:"stranded"`
	Depleted  int     `json:"depleted"`
	Cancelled int     `json:"cancelled"`
}

// PolicyAggregates returns one aggregate per policy, sorted by policy name.
func (s *Store) PolicyAggregates(ctx context.Context) ([]PolicyAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT policy,
			COUNT(*),
			AVG(score),
			AVG(steps),
			SUM(CASE WHEN outcome = 'complete' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'stranded' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'depleted' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END)
		 FROM runs
		 GROUP BY policy
		 ORDER BY policy`)
	if err != nil {
		return nil, fmt.Errorf("query policy aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []PolicyAggregate
	for rows.Next() {
		var agg PolicyAggregate
		if err := rows.Scan(&agg.Policy, &agg.Runs, &agg.AvgScore, &agg.AvgSteps,
			&agg.Completed, &agg.Stranded, &agg.Depleted, &agg.Cancelled); err != nil {
			return nil, fmt.Errorf("scan policy aggregate: %w", err)
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}
