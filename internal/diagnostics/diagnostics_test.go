package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/monitoring"
	"github.com/weave-qa/qagmire/internal/survey"
	"github.com/weave-qa/qagmire/internal/timeutil"
)

// fakeLoader returns a canned dataset, optionally advancing a fake clock to
// make load timing observable.
type fakeLoader struct {
	ds    *dataset.Dataset
	err   error
	clock *timeutil.FakeClock
	delay time.Duration
}

func (f *fakeLoader) Load(ctx context.Context, sel survey.Selection) (*dataset.Dataset, error) {
	if f.clock != nil {
		f.clock.Advance(f.delay)
	}
	return f.ds, f.err
}

func threeElementOutcome() *Outcome {
	return &Outcome{
		Elements: []string{"1001", "1002", "1003"},
		Results: []TestResult{
			{Name: "too_bright", Description: "is it too bright?", Fail: []bool{true, false, false}},
			{Name: "too_fuzzy", Description: "is the seeing too poor?", Fail: []bool{true, false, true}},
			{Name: "never_fails", Description: "always fine", Fail: []bool{false, false, false}},
		},
	}
}

func evaluatedRunner(t *testing.T) *Runner {
	t.Helper()
	r := New("demo", &fakeLoader{ds: dataset.New(nil)}, func(ds *dataset.Dataset) (*Outcome, error) {
		return threeElementOutcome(), nil
	})
	require.NoError(t, r.Run(context.Background(), survey.Selection{}))
	return r
}

func TestRunStateMachine(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Unix(0, 0))
	loader := &fakeLoader{ds: dataset.New(nil), clock: clock, delay: 2 * time.Second}
	r := New("demo", loader, func(ds *dataset.Dataset) (*Outcome, error) {
		clock.Advance(time.Second)
		return threeElementOutcome(), nil
	}, WithClock(clock))

	assert.Equal(t, StateUnprepared, r.State())
	require.NoError(t, r.Run(context.Background(), survey.Selection{Level: "raw"}))
	assert.Equal(t, StateEvaluated, r.State())
	assert.Equal(t, 2*time.Second, r.LoadDuration)
	assert.Equal(t, time.Second, r.EvalDuration)
	assert.Equal(t, "raw", r.Selection().Level)
	assert.NotEmpty(t, r.ID)
}

func TestRunLoadFailureIsFatal(t *testing.T) {
	r := New("demo", &fakeLoader{err: errors.New("disk gone")}, nil)
	err := r.Run(context.Background(), survey.Selection{})
	require.Error(t, err)
	assert.Equal(t, StateUnprepared, r.State())
	_, err = r.Summary()
	assert.ErrorIs(t, err, ErrNotEvaluated)
}

func TestRunEvaluationErrors(t *testing.T) {
	mkRunner := func(out *Outcome) *Runner {
		return New("demo", &fakeLoader{ds: dataset.New(nil)},
			func(ds *dataset.Dataset) (*Outcome, error) { return out, nil })
	}

	t.Run("duplicate test names", func(t *testing.T) {
		out := &Outcome{
			Elements: []string{"a"},
			Results: []TestResult{
				{Name: "x", Fail: []bool{true}},
				{Name: "x", Fail: []bool{false}},
			},
		}
		err := mkRunner(out).Run(context.Background(), survey.Selection{})
		assert.ErrorContains(t, err, "duplicate test name")
	})

	t.Run("misaligned result", func(t *testing.T) {
		out := &Outcome{
			Elements: []string{"a", "b"},
			Results:  []TestResult{{Name: "x", Fail: []bool{true}}},
		}
		err := mkRunner(out).Run(context.Background(), survey.Selection{})
		assert.ErrorContains(t, err, "2 elements")
	})

	t.Run("empty result set is legal", func(t *testing.T) {
		r := mkRunner(&Outcome{Elements: []string{"a"}})
		require.NoError(t, r.Run(context.Background(), survey.Selection{}))
		assert.Equal(t, StateEvaluated, r.State())
		s, err := r.Summary()
		require.NoError(t, err)
		assert.Empty(t, s.Tests)
		assert.Empty(t, s.Elements)
	})
}

func TestSummaryFiltersAndSorts(t *testing.T) {
	r := evaluatedRunner(t)
	s, err := r.Summary()
	require.NoError(t, err)

	// never_fails fails nowhere, so it contributes no column.
	assert.Equal(t, []string{"too_bright", "too_fuzzy"}, s.Tests)
	// 1002 passes everything and is omitted; 1001 (2 fails) sorts first.
	assert.Equal(t, []string{"1001", "1003"}, s.Elements)
	assert.Equal(t, []int{2, 1}, s.Totals)
	assert.Equal(t, [][]bool{{true, true}, {false, true}}, s.Fails)
}

func TestFullSummaryIsUnfiltered(t *testing.T) {
	r := evaluatedRunner(t)
	m, err := r.FullSummary()
	require.NoError(t, err)
	assert.Equal(t, []string{"too_bright", "too_fuzzy", "never_fails"}, m.Tests)
	assert.Equal(t, []string{"1001", "1002", "1003"}, m.Elements)
	require.Len(t, m.Fail, 3)
	assert.Equal(t, []bool{false, false, false}, m.Fail[1], "all-pass row retained")
}

func TestPerTestCountsMatchFullSummaryColumnSums(t *testing.T) {
	r := evaluatedRunner(t)
	tc, err := r.SummaryPerTest()
	require.NoError(t, err)
	m, err := r.FullSummary()
	require.NoError(t, err)

	require.Equal(t, tc.Names, m.Tests)
	for ti, name := range m.Tests {
		sum := 0
		for ei := range m.Elements {
			if m.Fail[ei][ti] {
				sum++
			}
		}
		assert.Equal(t, sum, tc.Counts[ti], "test %s", name)
	}
	assert.Equal(t, []int{1, 2, 0}, tc.Counts)
}

func TestRunLogsAggregates(t *testing.T) {
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(nil)

	evaluatedRunner(t)
	require.NotEmpty(t, logs)
	assert.Contains(t, logs, "test too_bright: is it too bright?")
	assert.Contains(t, logs,
		"3 test varieties x 3 elements = 9 evaluations; 3 failed (33.33%), 6 passed (66.67%)")
}

func TestReportJSON(t *testing.T) {
	r := evaluatedRunner(t)
	raw, err := r.ReportJSON()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, r.ID, doc["run_id"])
	assert.Equal(t, "demo", doc["check"])
	tests := doc["tests"].([]interface{})
	require.Len(t, tests, 3)
	first := tests[0].(map[string]interface{})
	assert.Equal(t, "too_bright", first["name"])
	assert.Equal(t, float64(1), first["failures"])
}

func TestNFailures(t *testing.T) {
	r := evaluatedRunner(t)
	assert.Equal(t, 3, r.NFailures())
}
