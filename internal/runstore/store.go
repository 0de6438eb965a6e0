// Package runstore keeps one row per experiment run in a SQLite database.
package runstore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"autonomous-car/internal/types"
)

// schema.sql creates the runs table: launch parameters written at start and
// the lap outcome filled in when the run closes.
//
//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// Run is one row of the runs table.
type Run struct {
	SessionID       string
	StartedAt       time.Time
	RunID           int
	Mode            types.DrivingMode
	InitialSpeedKmh float64
	LaunchSpeedKmh  float64
	LaunchSteering  float64
	Finished        bool
	Outcome         types.LapOutcome
	LapTime         float64
	HasLapTime      bool
	Ticks           int
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise run store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts a row for a new run and returns its session id.
func (s *Store) BeginRun(info types.RunInfo) (string, error) {
	session := uuid.New().String()
	started := info.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (
			session_id, started_at, run_id, mode,
			initial_speed_kmh, launch_speed_kmh, launch_steering
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session, started.UnixNano(), info.RunID, string(info.Mode),
		info.InitialSpeedKmh, info.LaunchSpeedKmh, info.LaunchSteering,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return session, nil
}

// FinishRun records the lap outcome of a run.
func (s *Store) FinishRun(session string, result types.RunResult) error {
	var lapTime interface{}
	if result.HasLapTime {
		lapTime = result.LapTime
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, outcome = ?, lap_time = ?, ticks = ?
		WHERE session_id = ?`,
		time.Now().UnixNano(), string(result.Outcome), lapTime, result.Ticks, session,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", session, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", session, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", session)
	}
	return nil
}

// Get returns a run by session id.
func (s *Store) Get(session string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT session_id, started_at, run_id, mode,
			initial_speed_kmh, launch_speed_kmh, launch_steering,
			finished_at, outcome, lap_time, ticks
		FROM runs WHERE session_id = ?`, session)
	return scanRun(row)
}

// ListByMode returns the runs of a mode ordered by run id.
func (s *Store) ListByMode(mode types.DrivingMode) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT session_id, started_at, run_id, mode,
			initial_speed_kmh, launch_speed_kmh, launch_steering,
			finished_at, outcome, lap_time, ticks
		FROM runs WHERE mode = ? ORDER BY run_id, started_at`, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r        Run
		started  int64
		mode     string
		finished sql.NullInt64
		outcome  sql.NullString
		lapTime  sql.NullFloat64
		ticks    sql.NullInt64
	)
	err := sc.Scan(&r.SessionID, &started, &r.RunID, &mode,
		&r.InitialSpeedKmh, &r.LaunchSpeedKmh, &r.LaunchSteering,
		&finished, &outcome, &lapTime, &ticks)
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	r.StartedAt = time.Unix(0, started)
	r.Mode = types.DrivingMode(mode)
	r.Finished = finished.Valid
	r.Outcome = types.LapOutcome(outcome.String)
	r.LapTime = lapTime.Float64
	r.HasLapTime = lapTime.Valid
	r.Ticks = int(ticks.Int64)
	return &r, nil
}
