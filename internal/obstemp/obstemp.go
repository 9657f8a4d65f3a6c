// Package obstemp decodes WEAVE OBSTEMP observing-constraint codes.
//
// An OBSTEMP value is a five-letter code in which each position grades one
// physical constraint of the requested observing conditions, in the fixed
// order seeing, transparency, elevation, lunar angle, sky brightness. Each
// position has its own alphabet of uppercase grades mapping to a numeric
// limit.
package obstemp

import (
	"fmt"
	"math"
)

// CodeLength is the number of constraint dimensions, and therefore the
// required length of every OBSTEMP code.
const CodeLength = 5

// Constraints holds the decoded numeric limits for one OBSTEMP code, plus the
// airmass implied by the elevation limit. Values are immutable once decoded.
type Constraints struct {
	Seeing        float64 // maximum seeing, arcsec
	Transparency  float64 // minimum transparency, fraction
	Elevation     float64 // minimum elevation above horizon, degrees
	LunarAngle    float64 // minimum angular distance to the Moon, degrees
	SkyBrightness float64 // minimum sky brightness, mag/arcsec^2
	Airmass       float64 // maximum airmass, derived from Elevation
}

// grade is one letter of a constraint alphabet.
type grade struct {
	Letter byte
	Value  float64
}

// The five alphabets, in code-position order. Declaration order is
// significant: position i of a code is decoded through dimensions[i].
var (
	seeingGrades = []grade{
		{'A', 0.7}, {'B', 0.8}, {'C', 0.9}, {'D', 1.0}, {'E', 1.1}, {'F', 1.2},
		{'G', 1.3}, {'H', 1.4}, {'I', 1.5}, {'J', 1.6}, {'K', 1.7}, {'L', 1.8},
		{'M', 1.9}, {'N', 2.0}, {'O', 2.1}, {'P', 2.2}, {'Q', 2.3}, {'R', 2.4},
		{'S', 2.5}, {'T', 2.6}, {'U', 2.7}, {'V', 2.8}, {'W', 2.9}, {'X', 3.0},
	}
	transparencyGrades = []grade{
		{'A', 0.8}, {'B', 0.7}, {'C', 0.6}, {'D', 0.5}, {'E', 0.4},
	}
	elevationGrades = []grade{
		{'A', 50.28}, {'B', 45.58}, {'C', 41.81}, {'D', 35.68}, {'E', 33.75},
		{'F', 25.00},
	}
	lunarAngleGrades = []grade{
		{'A', 90}, {'B', 70}, {'C', 50}, {'D', 30}, {'E', 0},
	}
	skyBrightnessGrades = []grade{
		{'A', 21.7}, {'B', 21.5}, {'C', 21.0}, {'D', 20.5}, {'E', 19.6},
		{'F', 18.5}, {'G', 17.7},
	}
)

type dimension struct {
	name   string
	grades []grade
	lookup map[byte]float64
}

var dimensions = buildDimensions()

func buildDimensions() []dimension {
	dims := []dimension{
		{name: "seeing", grades: seeingGrades},
		{name: "transparency", grades: transparencyGrades},
		{name: "elevation", grades: elevationGrades},
		{name: "lunar_angle", grades: lunarAngleGrades},
		{name: "sky_brightness", grades: skyBrightnessGrades},
	}
	for i := range dims {
		dims[i].lookup = make(map[byte]float64, len(dims[i].grades))
		for _, g := range dims[i].grades {
			dims[i].lookup[g.Letter] = g.Value
		}
	}
	return dims
}

// Decode maps a five-letter OBSTEMP code onto its numeric constraints. A code
// of the wrong length, or with a letter outside the alphabet of its position,
// is rejected outright.
func Decode(code string) (Constraints, error) {
	if len(code) != CodeLength {
		return Constraints{}, fmt.Errorf("obstemp: code %q has %d characters, want %d", code, len(code), CodeLength)
	}
	var vals [CodeLength]float64
	for i, dim := range dimensions {
		v, ok := dim.lookup[code[i]]
		if !ok {
			return Constraints{}, fmt.Errorf("obstemp: code %q: %q is not a valid %s grade", code, string(code[i]), dim.name)
		}
		vals[i] = v
	}
	airmass, err := AirmassAt(vals[2])
	if err != nil {
		return Constraints{}, fmt.Errorf("obstemp: code %q: %w", code, err)
	}
	return Constraints{
		Seeing:        vals[0],
		Transparency:  vals[1],
		Elevation:     vals[2],
		LunarAngle:    vals[3],
		SkyBrightness: vals[4],
		Airmass:       airmass,
	}, nil
}

// DecodeAll decodes a batch of codes, aborting on the first invalid one.
func DecodeAll(codes []string) ([]Constraints, error) {
	out := make([]Constraints, len(codes))
	for i, code := range codes {
		c, err := Decode(code)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// AirmassAt converts an elevation above the horizon (degrees) to a plane
// parallel airmass, rounded to one decimal place. Elevations at or beyond the
// horizon or zenith are rejected rather than producing infinities; every
// grade in the elevation alphabet lies strictly inside (0, 90).
func AirmassAt(elevationDeg float64) (float64, error) {
	if elevationDeg <= 0 || elevationDeg >= 90 {
		return 0, fmt.Errorf("elevation %v deg outside (0, 90)", elevationDeg)
	}
	zenithAngle := (90 - elevationDeg) * math.Pi / 180
	return math.Round(10/math.Cos(zenithAngle)) / 10, nil
}
