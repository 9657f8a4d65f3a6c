package checks

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/diagnostics"
	"github.com/weave-qa/qagmire/internal/survey"
)

// Default limits for the sky-noise distribution tests.
const (
	DefaultKSProbLimit   = 0.01
	DefaultMeanSigLimit  = 5.0
	DefaultStdevSigLimit = 5.0
)

// SkyNoise tests whether the noise in sky fibres behaves as the pipeline's
// inverse-variance estimates claim. For each sky spectrum the flux is
// normalised by the pipeline noise, flux*sqrt(ivar) over pixels with
// positive ivar; if the estimates are right the result is a standard normal
// sample. One element per sky spectrum, labelled run/fibre.
type SkyNoise struct {
	KSProbLimit   float64 // p-value below which the distribution is non-normal; <=0 means DefaultKSProbLimit
	MeanSigLimit  float64 // significance above which the mean differs from zero; <=0 means DefaultMeanSigLimit
	StdevSigLimit float64 // significance above which the stdev differs from one; <=0 means DefaultStdevSigLimit
	Camera        dataset.Camera
}

// Runner wires the check to an L1 loader that includes the fibre table.
func (c *SkyNoise) Runner(l survey.Loader) *diagnostics.Runner {
	return diagnostics.New("sky-noise", l, c.Func())
}

var skyStatColumns = []string{
	"stdev_measured", "stdev_expected",
	"mean_zscore", "stdev_zscore",
	"err_on_mean_zscore", "err_on_stdev_zscore",
	"sig_mean_zscore", "sig_stdev_zscore",
	"ks_prob",
}

func (c *SkyNoise) Func() diagnostics.TestFunc {
	ksLimit := c.KSProbLimit
	if ksLimit <= 0 {
		ksLimit = DefaultKSProbLimit
	}
	meanLimit := c.MeanSigLimit
	if meanLimit <= 0 {
		meanLimit = DefaultMeanSigLimit
	}
	stdevLimit := c.StdevSigLimit
	if stdevLimit <= 0 {
		stdevLimit = DefaultStdevSigLimit
	}

	return func(ds *dataset.Dataset) (*diagnostics.Outcome, error) {
		if c.Camera != "" {
			ds = ds.ByCamera(c.Camera)
		}
		flux, ok := ds.Matrix("FLUX")
		if !ok {
			return nil, fmt.Errorf("dataset has no FLUX arrays")
		}
		ivar, ok := ds.Matrix("IVAR")
		if !ok {
			return nil, fmt.Errorf("dataset has no IVAR arrays")
		}
		targuse, ok := ds.Labels("TARGUSE")
		if !ok {
			return nil, fmt.Errorf("dataset has no TARGUSE fibre flags")
		}

		out := &diagnostics.Outcome{}
		stats := &diagnostics.Stats{
			Columns: skyStatColumns,
			Values:  make(map[string][]float64),
		}
		var meanFail, stdevFail, ksFail []bool

		for ei, e := range ds.Exposures {
			for fi, use := range targuse[ei] {
				if use != "S" {
					continue
				}
				var norm, raw, invvar []float64
				for k, iv := range ivar[ei][fi] {
					if iv > 0 {
						f := flux[ei][fi][k]
						norm = append(norm, f*math.Sqrt(iv))
						raw = append(raw, f)
						invvar = append(invvar, iv)
					}
				}
				n := len(norm)
				if n < 2 {
					continue
				}

				mean := stat.Mean(norm, nil)
				stdev := stat.StdDev(norm, nil)
				errOnMean := stdev / math.Sqrt(float64(n))
				errOnStdev := stdev / math.Sqrt(float64(2*n-2))
				sigMean := significance(math.Abs(mean), errOnMean)
				sigStdev := significance(math.Abs(stdev-1), errOnStdev)
				ksProb := ksNormProb(norm)

				out.Elements = append(out.Elements, fmt.Sprintf("%d/%d", e.Run, fi+1))
				meanFail = append(meanFail, sigMean > meanLimit)
				stdevFail = append(stdevFail, sigStdev > stdevLimit)
				ksFail = append(ksFail, ksProb < ksLimit)

				stats.Values["stdev_measured"] = append(stats.Values["stdev_measured"],
					stat.StdDev(raw, nil))
				stats.Values["stdev_expected"] = append(stats.Values["stdev_expected"],
					math.Sqrt(meanReciprocal(invvar)))
				stats.Values["mean_zscore"] = append(stats.Values["mean_zscore"], mean)
				stats.Values["stdev_zscore"] = append(stats.Values["stdev_zscore"], stdev)
				stats.Values["err_on_mean_zscore"] = append(stats.Values["err_on_mean_zscore"], errOnMean)
				stats.Values["err_on_stdev_zscore"] = append(stats.Values["err_on_stdev_zscore"], errOnStdev)
				stats.Values["sig_mean_zscore"] = append(stats.Values["sig_mean_zscore"], sigMean)
				stats.Values["sig_stdev_zscore"] = append(stats.Values["sig_stdev_zscore"], sigStdev)
				stats.Values["ks_prob"] = append(stats.Values["ks_prob"], ksProb)
			}
		}

		out.Results = []diagnostics.TestResult{
			{
				Name:        "mean_non_zero",
				Description: "Is the mean of the normalised flux in sky fibres significantly different from zero?",
				Fail:        meanFail,
			},
			{
				Name:        "stdev_non_unit",
				Description: "Is the standard deviation of the normalised flux in sky fibres significantly different from unity?",
				Fail:        stdevFail,
			},
			{
				Name:        "ks_non_normal",
				Description: "Does the distribution of normalised flux in sky fibres fail a KS test comparison with a standard Normal?",
				Fail:        ksFail,
			},
		}
		out.Stats = stats
		return out, nil
	}
}

// significance guards the zero-error case: any deviation with no
// measurement error is infinitely significant, and no deviation is not
// significant at all.
func significance(deviation, err float64) float64 {
	if err == 0 {
		if deviation == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return deviation / err
}

func meanReciprocal(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += 1 / v
	}
	return sum / float64(len(vals))
}

// ksNormProb returns the probability of the sample's one-sample
// Kolmogorov-Smirnov statistic against a standard normal, using the usual
// asymptotic approximation with the small-sample correction of Stephens.
func ksNormProb(sample []float64) float64 {
	n := len(sample)
	if n == 0 {
		return 1
	}
	xs := append([]float64(nil), sample...)
	sort.Float64s(xs)

	d := 0.0
	for i, x := range xs {
		cdf := distuv.UnitNormal.CDF(x)
		if hi := float64(i+1)/float64(n) - cdf; hi > d {
			d = hi
		}
		if lo := cdf - float64(i)/float64(n); lo > d {
			d = lo
		}
	}
	sqrtN := math.Sqrt(float64(n))
	return kolmogorovQ((sqrtN + 0.12 + 0.11/sqrtN) * d)
}

// kolmogorovQ is the complementary CDF of the Kolmogorov distribution.
func kolmogorovQ(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	sum := 0.0
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
