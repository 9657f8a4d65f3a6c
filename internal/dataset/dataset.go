// Package dataset holds the in-memory labelled table a diagnostic run
// operates on: one row per exposure, with named per-exposure arrays loaded
// from the FITS extensions. Datasets are read-only once loaded.
package dataset

import (
	"fmt"
	"sort"
)

// Camera identifies one of the two WEAVE spectrograph arms.
type Camera string

const (
	CameraRed  Camera = "RED"
	CameraBlue Camera = "BLUE"
)

// Cameras lists the arms in reporting order.
var Cameras = []Camera{CameraRed, CameraBlue}

// Exposure is the per-row header metadata of one run.
type Exposure struct {
	File     string  // source file path
	Run      int64   // exposure/run identifier
	OBID     int64   // observing-block identifier
	Camera   Camera
	MJD      float64 // Modified Julian Date of observation
	Night    string  // yyyymmdd observing-night bucket derived from MJD
	ObsTemp  string  // requested-constraint code
	SkyBrTel float64 // measured sky brightness, mag/arcsec^2
	SeeingB  float64 // measured seeing, arcsec
}

// Dataset aligns exposures with named data containers. Every container has
// one entry per exposure, in exposure order.
type Dataset struct {
	Exposures []Exposure
	matrices  map[string][][][]float64 // per-exposure 2D pixel/spectral arrays
	scalars   map[string][]float64
	labels    map[string][][]string // per-exposure per-fibre flags, e.g. TARGUSE
}

// New builds a dataset over the given exposures.
func New(exposures []Exposure) *Dataset {
	return &Dataset{
		Exposures: exposures,
		matrices:  make(map[string][][][]float64),
		scalars:   make(map[string][]float64),
		labels:    make(map[string][][]string),
	}
}

// Len returns the number of exposures.
func (d *Dataset) Len() int { return len(d.Exposures) }

// AddMatrix attaches a named per-exposure 2D array. Entries may be nil for
// exposures without that extension.
func (d *Dataset) AddMatrix(name string, m [][][]float64) error {
	if len(m) != d.Len() {
		return fmt.Errorf("dataset: matrix %q has %d entries for %d exposures", name, len(m), d.Len())
	}
	d.matrices[name] = m
	return nil
}

// Matrix returns a named per-exposure 2D array.
func (d *Dataset) Matrix(name string) ([][][]float64, bool) {
	m, ok := d.matrices[name]
	return m, ok
}

// MatrixNames returns the attached matrix names, sorted.
func (d *Dataset) MatrixNames() []string {
	names := make([]string, 0, len(d.matrices))
	for n := range d.matrices {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddScalar attaches a named per-exposure value.
func (d *Dataset) AddScalar(name string, v []float64) error {
	if len(v) != d.Len() {
		return fmt.Errorf("dataset: scalar %q has %d entries for %d exposures", name, len(v), d.Len())
	}
	d.scalars[name] = v
	return nil
}

// Scalar returns a named per-exposure value.
func (d *Dataset) Scalar(name string) ([]float64, bool) {
	v, ok := d.scalars[name]
	return v, ok
}

// AddLabels attaches named per-exposure string slices (e.g. fibre flags).
func (d *Dataset) AddLabels(name string, v [][]string) error {
	if len(v) != d.Len() {
		return fmt.Errorf("dataset: labels %q have %d entries for %d exposures", name, len(v), d.Len())
	}
	d.labels[name] = v
	return nil
}

// Labels returns named per-exposure string slices.
func (d *Dataset) Labels(name string) ([][]string, bool) {
	v, ok := d.labels[name]
	return v, ok
}

// Select returns a new dataset containing the exposures for which keep is
// true, with every container subset in step. The underlying arrays are
// shared, not copied; datasets are read-only by convention.
func (d *Dataset) Select(keep func(Exposure) bool) *Dataset {
	var rows []int
	for i, e := range d.Exposures {
		if keep(e) {
			rows = append(rows, i)
		}
	}
	return d.subset(rows)
}

// ByCamera returns the exposures of one arm.
func (d *Dataset) ByCamera(c Camera) *Dataset {
	return d.Select(func(e Exposure) bool { return e.Camera == c })
}

func (d *Dataset) subset(rows []int) *Dataset {
	exps := make([]Exposure, len(rows))
	for i, r := range rows {
		exps[i] = d.Exposures[r]
	}
	out := New(exps)
	for name, m := range d.matrices {
		sub := make([][][]float64, len(rows))
		for i, r := range rows {
			sub[i] = m[r]
		}
		out.matrices[name] = sub
	}
	for name, v := range d.scalars {
		sub := make([]float64, len(rows))
		for i, r := range rows {
			sub[i] = v[r]
		}
		out.scalars[name] = sub
	}
	for name, v := range d.labels {
		sub := make([][]string, len(rows))
		for i, r := range rows {
			sub[i] = v[r]
		}
		out.labels[name] = sub
	}
	return out
}

// Runs returns the run identifier of every exposure, in row order.
func (d *Dataset) Runs() []int64 {
	runs := make([]int64, d.Len())
	for i, e := range d.Exposures {
		runs[i] = e.Run
	}
	return runs
}

// Group is an ordered set of dataset rows sharing one grouping key.
type Group struct {
	Key  string
	Rows []int
}

// GroupByOB groups rows by observing block, ordered by first appearance.
// The instrument convention is six runs per block: two cameras times three
// exposures.
func (d *Dataset) GroupByOB() []Group {
	return d.groupBy(func(e Exposure) string { return fmt.Sprintf("%d", e.OBID) })
}

// GroupByExposure groups rows by MJD timestamp, so the simultaneous pair of
// camera runs forms one group.
func (d *Dataset) GroupByExposure() []Group {
	return d.groupBy(func(e Exposure) string { return fmt.Sprintf("%.6f", e.MJD) })
}

func (d *Dataset) groupBy(key func(Exposure) string) []Group {
	var groups []Group
	index := make(map[string]int)
	for i, e := range d.Exposures {
		k := key(e)
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, Group{Key: k})
		}
		groups[gi].Rows = append(groups[gi].Rows, i)
	}
	return groups
}
