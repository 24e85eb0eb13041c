// Package telemetry records per-frame physics statistics.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"stratum/internal/physics"
)

// Sink receives the statistics of every frame.
type Sink interface {
	Record(stats physics.FrameStats)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Record(physics.FrameStats) {}

const (
	bufferSize  = 4096
	commitEvery = 256
)

// SQLiteSink writes frame statistics to a SQLite database from a background
// goroutine. Record never blocks the frame; when the writer falls behind the
// record is dropped and counted.
type SQLiteSink struct {
	db    *sql.DB
	RunID string

	mu      sync.RWMutex
	ch      chan physics.FrameStats
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
	err     error
}

// OpenSQLite opens or creates the database at path and starts a new run
// for scene.
func OpenSQLite(path, scene string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("telemetry: empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := initPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: schema: %w", err)
	}

	s := &SQLiteSink{
		db:    db,
		RunID: uuid.NewString(),
		ch:    make(chan physics.FrameStats, bufferSize),
	}
	if _, err := db.Exec(`INSERT INTO runs(id, scene, started_at) VALUES(?, ?, ?)`,
		s.RunID, scene, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: start run: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scene TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			run_id TEXT NOT NULL REFERENCES runs(id),
			frame INTEGER NOT NULL,
			bodies INTEGER NOT NULL,
			contacts INTEGER NOT NULL,
			pairs INTEGER NOT NULL,
			penetration_iterations INTEGER NOT NULL,
			velocity_iterations INTEGER NOT NULL,
			max_penetration REAL NOT NULL,
			max_velocity REAL NOT NULL,
			woken INTEGER NOT NULL,
			sleeping INTEGER NOT NULL,
			falls INTEGER NOT NULL,
			PRIMARY KEY (run_id, frame)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteSink) Record(stats physics.FrameStats) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- stats:
	default:
		s.dropped.Add(1)
	}
}

// Dropped is the number of records lost to a full buffer.
func (s *SQLiteSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close writes every buffered record, then closes the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	if n := s.Dropped(); n > 0 {
		log.Printf("Telemetry: dropped %d frame records", n)
	}
	return s.err
}

func (s *SQLiteSink) loop() {
	ctx := context.Background()

	var (
		tx      *sql.Tx
		insert  *sql.Stmt
		pending int
	)

	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil && s.err == nil {
			s.err = fmt.Errorf("telemetry: commit: %w", err)
		}
		tx, insert, pending = nil, nil, 0
	}

	write := func(stats physics.FrameStats) {
		if tx == nil {
			var err error
			tx, err = s.db.BeginTx(ctx, nil)
			if err != nil {
				if s.err == nil {
					s.err = fmt.Errorf("telemetry: begin: %w", err)
				}
				return
			}
			insert, err = tx.PrepareContext(ctx, `INSERT OR REPLACE INTO frames(
				run_id, frame, bodies, contacts, pairs,
				penetration_iterations, velocity_iterations,
				max_penetration, max_velocity, woken, sleeping, falls
			) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				tx.Rollback()
				tx = nil
				if s.err == nil {
					s.err = fmt.Errorf("telemetry: prepare: %w", err)
				}
				return
			}
		}

		_, err := insert.ExecContext(ctx,
			s.RunID, stats.Frame, stats.Bodies, stats.Contacts, stats.Pairs,
			stats.PenetrationIterations, stats.VelocityIterations,
			stats.MaxPenetration, stats.MaxVelocity, stats.Woken, stats.Sleeping, stats.Falls,
		)
		if err != nil && s.err == nil {
			s.err = fmt.Errorf("telemetry: insert frame %d: %w", stats.Frame, err)
		}
		pending++
		if pending >= commitEvery {
			commit()
		}
	}

	for stats := range s.ch {
		write(stats)
		// commit whenever the buffer runs dry
		if len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

// Frames reads back every frame of a run in frame order.
func Frames(ctx context.Context, path, runID string) ([]physics.FrameStats, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT
		frame, bodies, contacts, pairs,
		penetration_iterations, velocity_iterations,
		max_penetration, max_velocity, woken, sleeping, falls
		FROM frames WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query: %w", err)
	}
	defer rows.Close()

	var out []physics.FrameStats
	for rows.Next() {
		var f physics.FrameStats
		if err := rows.Scan(
			&f.Frame, &f.Bodies, &f.Contacts, &f.Pairs,
			&f.PenetrationIterations, &f.VelocityIterations,
			&f.MaxPenetration, &f.MaxVelocity, &f.Woken, &f.Sleeping, &f.Falls,
		); err != nil {
			return nil, fmt.Errorf("telemetry: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Runs lists the run ids recorded in the database, oldest first.
func Runs(ctx context.Context, path string) ([]string, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("telemetry: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
