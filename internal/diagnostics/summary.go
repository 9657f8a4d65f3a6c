package diagnostics

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Summary is the wide failure table: one row per element with at least one
// failing test, one column per test that fails anywhere in the run, plus a
// total-fails count. Rows are sorted by descending total. Elements with no
// failures are omitted by construction, not by accident.
type Summary struct {
	Tests    []string
	Elements []string
	Fails    [][]bool // [element][test], aligned with Elements x Tests
	Totals   []int
}

// TestCounts is the per-test failure tally over the whole run, unfiltered.
type TestCounts struct {
	Names        []string
	Descriptions []string
	Counts       []int
}

// Matrix is the complete element x test boolean table, including all-pass
// rows.
type Matrix struct {
	Tests    []string
	Elements []string
	Fail     [][]bool // [element][test]
}

// Summary builds the filtered wide table.
func (r *Runner) Summary() (*Summary, error) {
	if r.state != StateEvaluated {
		return nil, ErrNotEvaluated
	}

	// Columns: tests failing at least once, in declaration order.
	var testIdx []int
	for i, res := range r.results {
		for _, f := range res.Fail {
			if f {
				testIdx = append(testIdx, i)
				break
			}
		}
	}

	s := &Summary{}
	for _, ti := range testIdx {
		s.Tests = append(s.Tests, r.results[ti].Name)
	}

	type row struct {
		element string
		fails   []bool
		total   int
	}
	var rows []row
	for ei, el := range r.elements {
		fails := make([]bool, len(testIdx))
		total := 0
		for j, ti := range testIdx {
			if r.results[ti].Fail[ei] {
				fails[j] = true
				total++
			}
		}
		if total > 0 {
			rows = append(rows, row{element: el, fails: fails, total: total})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].total > rows[j].total })

	for _, rw := range rows {
		s.Elements = append(s.Elements, rw.element)
		s.Fails = append(s.Fails, rw.fails)
		s.Totals = append(s.Totals, rw.total)
	}
	return s, nil
}

// SummaryPerTest tallies failures per test across the whole run.
func (r *Runner) SummaryPerTest() (*TestCounts, error) {
	if r.state != StateEvaluated {
		return nil, ErrNotEvaluated
	}
	tc := &TestCounts{}
	for _, res := range r.results {
		n := 0
		for _, f := range res.Fail {
			if f {
				n++
			}
		}
		tc.Names = append(tc.Names, res.Name)
		tc.Descriptions = append(tc.Descriptions, res.Description)
		tc.Counts = append(tc.Counts, n)
	}
	return tc, nil
}

// FullSummary returns the unfiltered boolean matrix.
func (r *Runner) FullSummary() (*Matrix, error) {
	if r.state != StateEvaluated {
		return nil, ErrNotEvaluated
	}
	m := &Matrix{Elements: r.elements}
	for _, res := range r.results {
		m.Tests = append(m.Tests, res.Name)
	}
	for ei := range r.elements {
		row := make([]bool, len(r.results))
		for ti, res := range r.results {
			row[ti] = res.Fail[ei]
		}
		m.Fail = append(m.Fail, row)
	}
	return m, nil
}

// Report is the JSON document persisted to the store and served by the API.
// It carries everything needed to rebuild summaries and charts for a run
// after the fact.
type Report struct {
	RunID     string               `json:"run_id"`
	Check     string               `json:"check"`
	Selection string               `json:"selection"`
	Elements  []string             `json:"elements"`
	Tests     []ReportTest         `json:"tests"`
	Stats     map[string][]float64 `json:"stats,omitempty"`
	StatCols  []string             `json:"stat_columns,omitempty"`
}

// ReportTest is one test's results inside a Report.
type ReportTest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Failures    int    `json:"failures"`
	Fail        []bool `json:"fail"`
}

// Report renders the evaluated run as a persistable document.
func (r *Runner) Report() (*Report, error) {
	if r.state != StateEvaluated {
		return nil, ErrNotEvaluated
	}
	doc := &Report{
		RunID:     r.ID,
		Check:     r.Check,
		Selection: r.sel.String(),
		Elements:  r.elements,
	}
	for _, res := range r.results {
		n := 0
		for _, f := range res.Fail {
			if f {
				n++
			}
		}
		doc.Tests = append(doc.Tests, ReportTest{
			Name:        res.Name,
			Description: res.Description,
			Failures:    n,
			Fail:        res.Fail,
		})
	}
	if r.stats != nil {
		doc.Stats = r.stats.Values
		doc.StatCols = r.stats.Columns
	}
	return doc, nil
}

// ReportJSON renders the evaluated run for persistence.
func (r *Runner) ReportJSON() ([]byte, error) {
	doc, err := r.Report()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// ParseReport decodes a stored report document.
func ParseReport(data []byte) (*Report, error) {
	var doc Report
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("diagnostics: parsing report: %w", err)
	}
	return &doc, nil
}

// TestCounts rebuilds the per-test failure tally from a stored report.
func (doc *Report) TestCounts() *TestCounts {
	tc := &TestCounts{}
	for _, t := range doc.Tests {
		tc.Names = append(tc.Names, t.Name)
		tc.Descriptions = append(tc.Descriptions, t.Description)
		tc.Counts = append(tc.Counts, t.Failures)
	}
	return tc
}

// Statistics rebuilds the auxiliary statistics from a stored report, nil
// when the run recorded none.
func (doc *Report) Statistics() *Stats {
	if len(doc.StatCols) == 0 {
		return nil
	}
	return &Stats{Columns: doc.StatCols, Values: doc.Stats}
}
