package obstemp

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	c, err := Decode("AAAAA")
	require.NoError(t, err)
	assert.Equal(t, 0.7, c.Seeing)
	assert.Equal(t, 0.8, c.Transparency)
	assert.Equal(t, 50.28, c.Elevation)
	assert.Equal(t, 90.0, c.LunarAngle)
	assert.Equal(t, 21.7, c.SkyBrightness)

	// airmass at 50.28 deg elevation: round(1/cos(39.72 deg), 1)
	want := math.Round(10/math.Cos(39.72*math.Pi/180)) / 10
	assert.Equal(t, want, c.Airmass)
	assert.Equal(t, 1.3, c.Airmass)
}

func TestDecodePerPosition(t *testing.T) {
	c, err := Decode("XEFEG")
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.Seeing)
	assert.Equal(t, 0.4, c.Transparency)
	assert.Equal(t, 25.0, c.Elevation)
	assert.Equal(t, 0.0, c.LunarAngle)
	assert.Equal(t, 17.7, c.SkyBrightness)
	assert.Equal(t, 2.4, c.Airmass)
}

func TestDecodeDeterministic(t *testing.T) {
	a, err := Decode("DACBC")
	require.NoError(t, err)
	b, err := Decode("DACBC")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		code    string
		wantSub string
	}{
		{"AAAA", "4 characters"},
		{"AAAAAA", "6 characters"},
		{"", "0 characters"},
		{"ZAAAA", "seeing"},
		{"AZAAA", "transparency"},
		{"AAZAA", "elevation"},
		{"AAAZA", "lunar_angle"},
		{"AAAAZ", "sky_brightness"},
		{"aaaaa", "seeing"}, // grades are uppercase only
	}
	for _, tc := range tests {
		_, err := Decode(tc.code)
		require.Error(t, err, "code %q", tc.code)
		assert.True(t, strings.Contains(err.Error(), tc.wantSub),
			"error for %q = %q, want substring %q", tc.code, err, tc.wantSub)
	}
}

func TestDecodeAllAbortsOnFirstBadCode(t *testing.T) {
	out, err := DecodeAll([]string{"AAAAA", "ZAAAA", "BBBBB"})
	assert.Error(t, err)
	assert.Nil(t, out)

	out, err = DecodeAll([]string{"AAAAA", "BBBBB"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0.8, out[1].Seeing)
}

func TestAlphabetSizes(t *testing.T) {
	assert.Len(t, seeingGrades, 24)
	assert.Len(t, transparencyGrades, 5)
	assert.Len(t, elevationGrades, 6)
	assert.Len(t, lunarAngleGrades, 5)
	assert.Len(t, skyBrightnessGrades, 7)
}

func TestAirmassTotalOverElevationAlphabet(t *testing.T) {
	for _, g := range elevationGrades {
		_, err := AirmassAt(g.Value)
		assert.NoError(t, err, "grade %c", g.Letter)
	}
}

func TestAirmassRejectsHorizonAndZenith(t *testing.T) {
	for _, elev := range []float64{0, -5, 90, 120} {
		_, err := AirmassAt(elev)
		assert.Error(t, err, "elevation %v", elev)
	}
}
