// Package diagnostics is the generic quality-assurance harness: it drives a
// data selection through locate, load and evaluate, and aggregates the named
// boolean test results into summaries at several granularities.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/monitoring"
	"github.com/weave-qa/qagmire/internal/survey"
	"github.com/weave-qa/qagmire/internal/timeutil"
)

// State tracks the harness lifecycle. A run moves strictly forward:
// Unprepared -> Prepared (data located and loaded) -> Evaluated (tests
// computed). There is no partial retry; a failed load fails the run.
type State int

const (
	StateUnprepared State = iota
	StatePrepared
	StateEvaluated
)

func (s State) String() string {
	switch s {
	case StateUnprepared:
		return "unprepared"
	case StatePrepared:
		return "prepared"
	case StateEvaluated:
		return "evaluated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrNotEvaluated is returned by the summary accessors before a successful
// Run.
var ErrNotEvaluated = errors.New("diagnostics: run has not been evaluated")

// TestResult is one named boolean condition evaluated over every element of
// a run. True means the element FAILED the test.
type TestResult struct {
	Name        string
	Description string
	Fail        []bool
}

// Stats carries auxiliary continuous values computed during testing, keyed
// by element and unfiltered by pass/fail.
type Stats struct {
	Columns []string
	Values  map[string][]float64
}

// Outcome is what a test strategy produces: the element labels the run is
// keyed by (runs, observing blocks, ...), the test results aligned with
// them and optional stats.
type Outcome struct {
	Elements []string
	Results  []TestResult
	Stats    *Stats
}

// TestFunc evaluates a loaded dataset. Implementations are pure functions
// of the dataset; the harness owns sequencing and aggregation.
type TestFunc func(ds *dataset.Dataset) (*Outcome, error)

// Runner drives one diagnostic over one selection.
type Runner struct {
	ID    string
	Check string

	loader survey.Loader
	fn     TestFunc
	clock  timeutil.Clock

	state    State
	sel      survey.Selection
	data     *dataset.Dataset
	elements []string
	results  []TestResult
	stats    *Stats

	LoadDuration time.Duration
	EvalDuration time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock substitutes the timing source, for tests.
func WithClock(c timeutil.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// New builds a runner for the named check.
func New(check string, loader survey.Loader, fn TestFunc, opts ...Option) *Runner {
	r := &Runner{
		ID:     uuid.NewString(),
		Check:  check,
		loader: loader,
		fn:     fn,
		clock:  timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the lifecycle state.
func (r *Runner) State() State { return r.state }

// Selection returns the selection of the last Run.
func (r *Runner) Selection() survey.Selection { return r.sel }

// Dataset returns the loaded dataset, nil before Prepared.
func (r *Runner) Dataset() *dataset.Dataset { return r.data }

// Results returns the raw test results, nil before Evaluated.
func (r *Runner) Results() []TestResult { return r.results }

// Elements returns the element labels of the run.
func (r *Runner) Elements() []string { return r.elements }

// Stats returns the auxiliary statistics, nil when the check produced none.
func (r *Runner) Stats() *Stats { return r.stats }

// Run resolves the selection, loads the data and evaluates the tests. Any
// failure aborts the run and leaves it unusable; re-running resets prior
// state first.
func (r *Runner) Run(ctx context.Context, sel survey.Selection) error {
	r.state = StateUnprepared
	r.sel = sel
	r.data = nil
	r.elements = nil
	r.results = nil
	r.stats = nil

	start := r.clock.Now()
	ds, err := r.loader.Load(ctx, sel)
	if err != nil {
		return fmt.Errorf("diagnostics: %s: loading %s: %w", r.Check, sel, err)
	}
	r.LoadDuration = r.clock.Since(start)
	r.data = ds
	r.state = StatePrepared

	start = r.clock.Now()
	out, err := r.fn(ds)
	if err != nil {
		return fmt.Errorf("diagnostics: %s: evaluating: %w", r.Check, err)
	}
	if err := validateOutcome(out); err != nil {
		return fmt.Errorf("diagnostics: %s: %w", r.Check, err)
	}
	r.EvalDuration = r.clock.Since(start)
	r.elements = out.Elements
	r.results = out.Results
	r.stats = out.Stats
	r.state = StateEvaluated

	r.logReport()
	return nil
}

// validateOutcome checks alignment and name uniqueness. An empty result set
// is legal: the run simply evaluates nothing.
func validateOutcome(out *Outcome) error {
	if out == nil {
		return errors.New("test function returned no outcome")
	}
	seen := make(map[string]bool, len(out.Results))
	for _, res := range out.Results {
		if seen[res.Name] {
			return fmt.Errorf("duplicate test name %q", res.Name)
		}
		seen[res.Name] = true
		if len(res.Fail) != len(out.Elements) {
			return fmt.Errorf("test %q has %d values for %d elements",
				res.Name, len(res.Fail), len(out.Elements))
		}
	}
	return nil
}

// logReport prints the per-test descriptions and the aggregate pass/fail
// fractions.
func (r *Runner) logReport() {
	for _, res := range r.results {
		monitoring.Logf("test %s: %s", res.Name, res.Description)
	}
	varieties := len(r.results)
	elements := len(r.elements)
	total := varieties * elements
	failed := 0
	for _, res := range r.results {
		for _, f := range res.Fail {
			if f {
				failed++
			}
		}
	}
	var failPct, passPct float64
	if total > 0 {
		failPct = 100 * float64(failed) / float64(total)
		passPct = 100 - failPct
	}
	monitoring.Logf("%d test varieties x %d elements = %d evaluations; %d failed (%.2f%%), %d passed (%.2f%%)",
		varieties, elements, total, failed, failPct, total-failed, passPct)
}

// NFailures counts failing evaluations across all tests.
func (r *Runner) NFailures() int {
	n := 0
	for _, res := range r.results {
		for _, f := range res.Fail {
			if f {
				n++
			}
		}
	}
	return n
}
