package checks

import (
	"fmt"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/diagnostics"
	"github.com/weave-qa/qagmire/internal/survey"
)

// l1NegativeExtensions are the L1 arrays that are non-negative by
// definition, so a negative value is a pipeline defect wherever it appears.
var l1NegativeExtensions = []string{"IVAR", "IVAR_NOSS", "SENSFUNC"}

// L1Values inspects the spectral arrays of L1 products: non-finite values
// in every extension, plus negative values in the inverse-variance and
// sensitivity-function extensions. Tests are per camera; a run only fails
// the tests of its own arm.
type L1Values struct {
	Camera dataset.Camera // optional restriction; zero value checks both arms
}

// Runner wires the check to an L1 loader.
func (c *L1Values) Runner(l survey.Loader) *diagnostics.Runner {
	return diagnostics.New("l1-values", l, c.Func())
}

func (c *L1Values) Func() diagnostics.TestFunc {
	return func(ds *dataset.Dataset) (*diagnostics.Outcome, error) {
		cameras := dataset.Cameras
		if c.Camera != "" {
			ds = ds.ByCamera(c.Camera)
			cameras = []dataset.Camera{c.Camera}
		}
		out := &diagnostics.Outcome{Elements: runElements(ds)}

		for _, cam := range cameras {
			match := make([]bool, ds.Len())
			for i, e := range ds.Exposures {
				match[i] = e.Camera == cam
			}
			for _, ext := range survey.L1Extensions {
				arrays, ok := ds.Matrix(ext)
				if !ok {
					return nil, fmt.Errorf("dataset has no %s arrays", ext)
				}
				nan := make([]bool, ds.Len())
				for i, m := range arrays {
					nan[i] = match[i] && anyNonFinite(m)
				}
				out.Results = append(out.Results, diagnostics.TestResult{
					Name:        fmt.Sprintf("nans_in_%s_%s", cam, ext),
					Description: fmt.Sprintf("Are there non-finite values in %s %s?", cam, ext),
					Fail:        nan,
				})
			}
			for _, ext := range l1NegativeExtensions {
				arrays, _ := ds.Matrix(ext)
				neg := make([]bool, ds.Len())
				for i, m := range arrays {
					neg[i] = match[i] && anyNegative(m)
				}
				out.Results = append(out.Results, diagnostics.TestResult{
					Name:        fmt.Sprintf("negs_in_%s_%s", cam, ext),
					Description: fmt.Sprintf("Are there negative values in %s %s?", cam, ext),
					Fail:        neg,
				})
			}
		}
		return out, nil
	}
}
