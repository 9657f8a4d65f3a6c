// Package lines parses spectral line identifiers of the form
// "<species>_<restframe wavelength>", e.g. "HeII_1640.4" or "[OIII]_5006.77".
package lines

import (
	"fmt"
	"strconv"
	"strings"
)

// Line is a parsed spectral line name.
type Line struct {
	Species    string  // species label, possibly in bracket notation
	Wavelength float64 // rest-frame wavelength, angstrom
}

// Parse splits a line name on its single underscore into a species label and
// a wavelength. Names with zero or more than one underscore, or a non-numeric
// wavelength, are rejected.
func Parse(name string) (Line, error) {
	parts := strings.Split(name, "_")
	if len(parts) != 2 {
		return Line{}, fmt.Errorf("lines: name %q must contain exactly one underscore, found %d", name, len(parts)-1)
	}
	wl, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Line{}, fmt.Errorf("lines: name %q has non-numeric wavelength %q", name, parts[1])
	}
	return Line{Species: parts[0], Wavelength: wl}, nil
}

// ParseAll parses a batch of line names, aborting on the first invalid one.
func ParseAll(names []string) ([]Line, error) {
	out := make([]Line, len(names))
	for i, name := range names {
		l, err := Parse(name)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}
