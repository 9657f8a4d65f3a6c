// Package checks holds the concrete diagnostics run by the harness: each
// check is a configuration struct whose Func method produces the test
// strategy for a Runner.
package checks

import (
	"math"
	"strconv"

	"github.com/weave-qa/qagmire/internal/dataset"
)

// runElements labels every dataset row by its run identifier.
func runElements(ds *dataset.Dataset) []string {
	labels := make([]string, ds.Len())
	for i, r := range ds.Runs() {
		labels[i] = strconv.FormatInt(r, 10)
	}
	return labels
}

func anyNonFinite(m [][]float64) bool {
	for _, row := range m {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}

func anyNegative(m [][]float64) bool {
	for _, row := range m {
		for _, v := range row {
			if v < 0 {
				return true
			}
		}
	}
	return false
}

func countAtLeast(m [][]float64, threshold float64) int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v >= threshold {
				n++
			}
		}
	}
	return n
}
