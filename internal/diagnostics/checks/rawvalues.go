package checks

import (
	"fmt"
	"strings"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/diagnostics"
	"github.com/weave-qa/qagmire/internal/survey"
)

// DefaultSaturation is the 16-bit ADU ceiling of the WEAVE detectors.
const DefaultSaturation = 65535

// RawValues inspects the two amplifier count arrays of each raw exposure
// for saturated, negative and non-finite pixels. Three conditions over two
// amplifiers give six named tests per run.
type RawValues struct {
	SaturationThreshold float64 // counts at or above are saturated; <=0 means DefaultSaturation
	AllowedSaturated    int     // saturated pixels tolerated before the test fails
}

// Runner wires the check to a raw-exposure loader.
func (c *RawValues) Runner(l survey.Loader) *diagnostics.Runner {
	return diagnostics.New("raw-values", l, c.Func())
}

func (c *RawValues) Func() diagnostics.TestFunc {
	threshold := c.SaturationThreshold
	if threshold <= 0 {
		threshold = DefaultSaturation
	}
	return func(ds *dataset.Dataset) (*diagnostics.Outcome, error) {
		out := &diagnostics.Outcome{Elements: runElements(ds)}
		for _, ext := range survey.RawExtensions {
			arrays, ok := ds.Matrix(ext)
			if !ok {
				return nil, fmt.Errorf("dataset has no %s arrays", ext)
			}
			lower := strings.ToLower(ext)
			sat := make([]bool, ds.Len())
			neg := make([]bool, ds.Len())
			nan := make([]bool, ds.Len())
			for i, m := range arrays {
				sat[i] = countAtLeast(m, threshold) > c.AllowedSaturated
				neg[i] = anyNegative(m)
				nan[i] = anyNonFinite(m)
			}
			out.Results = append(out.Results,
				diagnostics.TestResult{
					Name: fmt.Sprintf("too_many_sat_in_%s", lower),
					Description: fmt.Sprintf("Are there more than %d saturated pixels in %s?",
						c.AllowedSaturated, ext),
					Fail: sat,
				},
				diagnostics.TestResult{
					Name:        fmt.Sprintf("negs_in_%s", lower),
					Description: fmt.Sprintf("Are there negative values in %s?", ext),
					Fail:        neg,
				},
				diagnostics.TestResult{
					Name:        fmt.Sprintf("nans_in_%s", lower),
					Description: fmt.Sprintf("Are there non-finite values in %s?", ext),
					Fail:        nan,
				},
			)
		}
		return out, nil
	}
}
