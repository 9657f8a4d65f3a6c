package diagnostics

import (
	"fmt"

	"github.com/weave-qa/qagmire/internal/dataset"
)

// GroupingPolicy selects how exposures are grouped for within-group
// comparison checks. It is passed explicitly at call time; each policy is a
// pure function over the dataset.
type GroupingPolicy int

const (
	// GroupByOB groups all runs sharing an observing block: two cameras
	// times three exposures, six runs. Values match when every member
	// equals the first.
	GroupByOB GroupingPolicy = iota
	// GroupByExposure groups the simultaneous camera pair by MJD: two
	// runs. Values match when the first equals the last.
	GroupByExposure
)

func (p GroupingPolicy) String() string {
	switch p {
	case GroupByOB:
		return "by-OB"
	case GroupByExposure:
		return "by-exposure"
	}
	return fmt.Sprintf("GroupingPolicy(%d)", int(p))
}

// ExpectedRuns is the run count a well-formed group must have under this
// policy.
func (p GroupingPolicy) ExpectedRuns() int {
	if p == GroupByExposure {
		return 2
	}
	return 6
}

// Groups partitions the dataset rows under this policy.
func (p GroupingPolicy) Groups(ds *dataset.Dataset) []dataset.Group {
	if p == GroupByExposure {
		return ds.GroupByExposure()
	}
	return ds.GroupByOB()
}

// Matches reports whether the values at the group's rows agree under this
// policy. Group values are header copies, so exact equality against a
// shared representative is equivalent to pairwise equality.
func (p GroupingPolicy) Matches(vals []float64, rows []int) bool {
	if len(rows) == 0 {
		return true
	}
	if p == GroupByExposure {
		return vals[rows[0]] == vals[rows[len(rows)-1]]
	}
	first := vals[rows[0]]
	for _, r := range rows[1:] {
		if vals[r] != first {
			return false
		}
	}
	return true
}
