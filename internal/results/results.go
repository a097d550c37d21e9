// Package results persists conformance run outcomes to SQLite so the
// report command can show run history across invocations.
package results

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/tester"
)

//go:embed schema.sql
var schemaSQL string

// Outcome classifies how one test case ended.
type Outcome string

const (
	// OutcomePass means the test ran and all assertions held.
	OutcomePass Outcome = "pass"

	// OutcomeFail means an assertion failed (schema or emptiness).
	OutcomeFail Outcome = "fail"

	// OutcomeError means the test could not complete: lifecycle
	// violation, bad test case, configuration error or runtime failure.
	OutcomeError Outcome = "error"
)

// Run is one recorded test case execution.
type Run struct {
	ID          string
	Interface   string
	Version     int
	Role        relmodel.Role
	TestName    string
	Outcome     Outcome
	Message     string
	Diagnostics []tester.Diagnostic
	CreatedAt   string
}

// Store provides durable storage for run results.
type Store struct {
	db *sql.DB
}

// Open creates or opens a results database at the given path. ":memory:"
// opens an ephemeral one. Idempotent; the schema is applied on every
// open.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under the harness's sequential write pattern.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one run. An empty ID is filled with a UUIDv7 so rows
// sort by insertion time; the filled ID is returned.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.Must(uuid.NewV7()).String()
	}

	diags, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return "", fmt.Errorf("failed to encode diagnostics: %w", err)
	}
	if run.Diagnostics == nil {
		diags = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, interface, version, role, test_name, outcome, message, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Interface, run.Version, string(run.Role),
		run.TestName, string(run.Outcome), run.Message, string(diags),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return run.ID, nil
}

// List returns runs, newest first, optionally filtered by interface
// name. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, iface string, limit int) ([]Run, error) {
	query := `
		SELECT id, interface, version, role, test_name, outcome, message, diagnostics, created_at
		FROM runs`
	var args []any
	if iface != "" {
		query += " WHERE interface = ?"
		args = append(args, iface)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var role, outcome, diags string
		if err := rows.Scan(&r.ID, &r.Interface, &r.Version, &role, &r.TestName, &outcome, &r.Message, &diags, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Role = relmodel.Role(role)
		r.Outcome = Outcome(outcome)
		if err := json.Unmarshal([]byte(diags), &r.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics for run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
