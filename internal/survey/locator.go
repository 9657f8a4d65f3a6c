// Package survey locates WEAVE data products on disk and loads them into
// datasets, converting headers through the SQLite cache on the way.
//
// The on-disk layout is <root>/<level>/<date>/<name>.fit, where level is one
// of raw, L1 or L2, date is the yyyymmdd observing night and name carries
// the file type and run id (r1002813.fit, single_1002813.fit, ...).
package survey

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/weave-qa/qagmire/internal/fits"
	"github.com/weave-qa/qagmire/internal/fsutil"
)

// Resolution filters files by the spectrograph resolution mode recorded in
// their headers.
type Resolution int

const (
	// LowRes selects low-resolution observations (the default, matching
	// the bulk of survey operations).
	LowRes Resolution = iota
	// HighRes selects high-resolution observations.
	HighRes
	// AnyRes disables resolution filtering.
	AnyRes
)

// Selection describes one data selection. Empty pattern fields match
// everything.
type Selection struct {
	Level      string // file level: raw, L1, L2
	FileType   string // filename prefix: r, single_, stack_
	Date       string // observing night glob, yyyymmdd
	RunID      string // run id glob
	Resolution Resolution
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// Pattern returns the glob for this selection relative to the survey root.
func (s Selection) Pattern() string {
	return fmt.Sprintf("%s/%s/%s*%s*.fit*",
		orStar(s.Level), orStar(s.Date), s.FileType, orStar(s.RunID))
}

// String renders the selection for logs and run records.
func (s Selection) String() string {
	res := map[Resolution]string{LowRes: "LR", HighRes: "HR", AnyRes: "any"}[s.Resolution]
	return fmt.Sprintf("%s/%s date=%s runid=%s res=%s",
		orStar(s.Level), orStar(s.FileType), orStar(s.Date), orStar(s.RunID), res)
}

// RawSingle selects raw exposures for one night/run pattern.
func RawSingle(date, runid string) Selection {
	return Selection{Level: "raw", FileType: "r", Date: date, RunID: runid}
}

// L1Single selects single-exposure L1 products.
func L1Single(date, runid string) Selection {
	return Selection{Level: "L1", FileType: "single_", Date: date, RunID: runid}
}

// L1Stack selects stacked L1 products.
func L1Stack(date, runid string) Selection {
	return Selection{Level: "L1", FileType: "stack_", Date: date, RunID: runid}
}

// Locator resolves selections to ordered file lists.
type Locator struct {
	root string
	fs   fsutil.FileSystem

	// resOf reads the resolution mode of a file. Overridable in tests.
	resOf func(path string) (string, error)
}

// NewLocator returns a locator over the survey root directory.
func NewLocator(root string, fsys fsutil.FileSystem) *Locator {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Locator{
		root: root,
		fs:   fsys,
		resOf: func(path string) (string, error) {
			h, err := fits.ReadPrimaryHeader(path)
			if err != nil {
				return "", err
			}
			return h.StrDefault("RES-OBS", ""), nil
		},
	}
}

// Locate returns the files matching the selection in lexical order. When the
// selection names a resolution, each candidate's RES-OBS header keyword is
// consulted; a header that cannot be read fails the whole lookup.
func (l *Locator) Locate(sel Selection) ([]string, error) {
	pattern := filepath.Join(l.root, sel.Pattern())
	files, err := l.fs.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("survey: glob %q: %w", pattern, err)
	}
	if sel.Resolution == AnyRes {
		return files, nil
	}
	want := "LR"
	if sel.Resolution == HighRes {
		want = "HR"
	}
	var out []string
	for _, f := range files {
		res, err := l.resOf(f)
		if err != nil {
			return nil, fmt.Errorf("survey: resolution of %s: %w", f, err)
		}
		if strings.Contains(res, want) {
			out = append(out, f)
		}
	}
	return out, nil
}
