// Package store persists named scenarios and generated schedules to
// SQLite (spec.md §4.9 / SPEC_FULL.md's Schedule Store), adapted from
// the teacher's internal/database package: one Open that opens the
// file, runs a single multi-statement schema, then applies an
// ALTER-TABLE migration list with errors ignored (column may already
// exist).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	tasks_json TEXT NOT NULL,
	physicians_json TEXT NOT NULL,
	calendar_json TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schedules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scenario TEXT NOT NULL,
	schedule_json TEXT NOT NULL,
	status TEXT NOT NULL,
	generated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

var migrations = []string{
	`ALTER TABLE schedules ADD COLUMN trace_json TEXT`,
}

// Store wraps a *sql.DB with the scenario/schedule persistence the CLI
// and HTTP boundary both read and write through.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite file at path (creating its parent
// directory if needed), runs the schema, and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	for _, m := range migrations {
		db.Exec(m) // column may already exist
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveScenario records a named bundle of the three config documents.
func (s *Store) SaveScenario(name, tasksJSON, physiciansJSON, calendarJSON string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO scenarios (name, tasks_json, physicians_json, calendar_json) VALUES (?, ?, ?, ?)`,
		name, tasksJSON, physiciansJSON, calendarJSON,
	)
	return err
}

// ScenarioBundle is one named scenario's three raw config documents.
type ScenarioBundle struct {
	Name           string
	TasksJSON      string
	PhysiciansJSON string
	CalendarJSON   string
}

// LoadScenario returns a previously saved scenario bundle by name.
func (s *Store) LoadScenario(name string) (*ScenarioBundle, error) {
	var b ScenarioBundle
	b.Name = name
	err := s.db.QueryRow(
		`SELECT tasks_json, physicians_json, calendar_json FROM scenarios WHERE name = ?`, name,
	).Scan(&b.TasksJSON, &b.PhysiciansJSON, &b.CalendarJSON)
	if err != nil {
		return nil, fmt.Errorf("store: load scenario %s: %w", name, err)
	}
	return &b, nil
}

// SaveSchedule stores a generated schedule's JSON rendering for a
// scenario, tagged with the solver status it was produced under.
func (s *Store) SaveSchedule(scenario, scheduleJSON, status string) error {
	return s.SaveScheduleWithTrace(scenario, scheduleJSON, status, "")
}

// SaveScheduleWithTrace is SaveSchedule plus the candidate trace JSON
// (spec.md §6's debug artifact) a run produced, if any — populated for
// infeasible runs so an operator can diagnose the run later without
// re-solving.
func (s *Store) SaveScheduleWithTrace(scenario, scheduleJSON, status, traceJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO schedules (scenario, schedule_json, status, trace_json) VALUES (?, ?, ?, ?)`,
		scenario, scheduleJSON, status, traceJSON,
	)
	return err
}

// SavedSchedule is one row of the schedules table.
type SavedSchedule struct {
	ScheduleJSON string
	Status       string
	TraceJSON    string
	GeneratedAt  time.Time
}

// LatestSchedule returns the most recently generated schedule for a
// scenario, if any.
func (s *Store) LatestSchedule(scenario string) (*SavedSchedule, error) {
	var sc SavedSchedule
	var trace sql.NullString
	err := s.db.QueryRow(
		`SELECT schedule_json, status, trace_json, generated_at FROM schedules WHERE scenario = ? ORDER BY id DESC LIMIT 1`,
		scenario,
	).Scan(&sc.ScheduleJSON, &sc.Status, &trace, &sc.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("store: latest schedule for %s: %w", scenario, err)
	}
	sc.TraceJSON = trace.String
	return &sc, nil
}
