package checks

import (
	"fmt"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/diagnostics"
	"github.com/weave-qa/qagmire/internal/obstemp"
	"github.com/weave-qa/qagmire/internal/survey"
)

// ObservingConditions compares the conditions measured at the telescope
// against the constraints requested through each group's OBSTEMP code.
//
// Sky brightness is in mag/arcsec^2, where a LOWER number is brighter, so
// "brighter than the limit" reads measured < limit. Seeing is in arcsec,
// where a higher number is worse. Tolerances widen the acceptable range and
// default to zero, i.e. strict comparison.
type ObservingConditions struct {
	SkyTolerance    float64
	SeeingTolerance float64
	Grouping        diagnostics.GroupingPolicy
}

// Runner wires the check to a header loader.
func (c *ObservingConditions) Runner(l survey.Loader) *diagnostics.Runner {
	return diagnostics.New("observing-conditions", l, c.Func())
}

// Func evaluates one group per element. The requested constraints are
// decoded from the first run of each group; an undecodable OBSTEMP is a
// configuration error and fails the whole run.
func (c *ObservingConditions) Func() diagnostics.TestFunc {
	return func(ds *dataset.Dataset) (*diagnostics.Outcome, error) {
		sky := make([]float64, ds.Len())
		seeing := make([]float64, ds.Len())
		for i, e := range ds.Exposures {
			sky[i] = e.SkyBrTel
			seeing[i] = e.SeeingB
		}

		groups := c.Grouping.Groups(ds)
		elements := make([]string, len(groups))
		tooBright := make([]bool, len(groups))
		tooPoor := make([]bool, len(groups))
		wrongCount := make([]bool, len(groups))
		mismatched := make([]bool, len(groups))
		stats := &diagnostics.Stats{
			Columns: []string{"sky_measured", "sky_limit", "seeing_measured", "seeing_limit"},
			Values:  make(map[string][]float64),
		}

		for gi, g := range groups {
			rep := ds.Exposures[g.Rows[0]]
			cons, err := obstemp.Decode(rep.ObsTemp)
			if err != nil {
				return nil, fmt.Errorf("run %d: %w", rep.Run, err)
			}
			elements[gi] = g.Key
			for _, r := range g.Rows {
				if sky[r] < cons.SkyBrightness-c.SkyTolerance {
					tooBright[gi] = true
				}
				if seeing[r] > cons.Seeing+c.SeeingTolerance {
					tooPoor[gi] = true
				}
			}
			wrongCount[gi] = len(g.Rows) != c.Grouping.ExpectedRuns()
			mismatched[gi] = !c.Grouping.Matches(sky, g.Rows) || !c.Grouping.Matches(seeing, g.Rows)

			stats.Values["sky_measured"] = append(stats.Values["sky_measured"], rep.SkyBrTel)
			stats.Values["sky_limit"] = append(stats.Values["sky_limit"], cons.SkyBrightness)
			stats.Values["seeing_measured"] = append(stats.Values["seeing_measured"], rep.SeeingB)
			stats.Values["seeing_limit"] = append(stats.Values["seeing_limit"], cons.Seeing)
		}

		return &diagnostics.Outcome{
			Elements: elements,
			Results: []diagnostics.TestResult{
				{
					Name:        "sky_too_bright",
					Description: "Is the measured sky brighter than the requested constraint?",
					Fail:        tooBright,
				},
				{
					Name:        "seeing_too_poor",
					Description: "Is the measured seeing worse than the requested constraint?",
					Fail:        tooPoor,
				},
				{
					Name: "wrong_run_count",
					Description: fmt.Sprintf("Does the group have a number of runs other than %d?",
						c.Grouping.ExpectedRuns()),
					Fail: wrongCount,
				},
				{
					Name:        "mismatched_values",
					Description: "Do the sky or seeing measurements disagree within the group?",
					Fail:        mismatched,
				},
			},
			Stats: stats,
		}, nil
	}
}
