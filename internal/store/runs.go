package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is a persisted diagnostic run: identity, headline counts and the
// full JSON report served by the HTTP API.
type RunRecord struct {
	ID        string    `json:"run_id"`
	Check     string    `json:"check"`
	Selection string    `json:"selection"`
	NTests    int64     `json:"n_tests"`
	NElements int64     `json:"n_elements"`
	NFailures int64     `json:"n_failures"`
	Report    []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveRun persists a completed diagnostic run.
func (s *Store) SaveRun(r *RunRecord) error {
	_, err := s.Exec(`
		INSERT INTO diagnostic_runs (run_id, check_name, selection, n_tests, n_elements, n_failures, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Check, r.Selection, r.NTests, r.NElements, r.NFailures, string(r.Report))
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first, without their reports.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Query(`
		SELECT run_id, check_name, selection, n_tests, n_elements, n_failures, created_at
		FROM diagnostic_runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Check, &r.Selection, &r.NTests, &r.NElements, &r.NFailures, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: list runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run including its report, or nil when absent.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	row := s.QueryRow(`
		SELECT run_id, check_name, selection, n_tests, n_elements, n_failures, report, created_at
		FROM diagnostic_runs WHERE run_id = ?`, id)

	var r RunRecord
	var report string
	err := row.Scan(&r.ID, &r.Check, &r.Selection, &r.NTests, &r.NElements, &r.NFailures, &report, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run %s: %w", id, err)
	}
	r.Report = []byte(report)
	return &r, nil
}
