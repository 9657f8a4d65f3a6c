package timeutil

import (
	"math"
	"testing"
	"time"
)

func TestMJDToNight(t *testing.T) {
	tests := []struct {
		mjd  float64
		want string
	}{
		{57639.8653, "20160908"},
		{57640.1234, "20160908"}, // early morning of the same night
		{57640.6, "20160909"},    // after local noon: next night
		{0.6, "18581117"},
		{0.4, "18581116"},
	}
	for _, tc := range tests {
		if got := MJDToNight(tc.mjd); got != tc.want {
			t.Errorf("MJDToNight(%v) = %q, want %q", tc.mjd, got, tc.want)
		}
	}
}

func TestMJDNightBoundary(t *testing.T) {
	// Both sides of local midnight fall within one observing night.
	if MJDToNight(57639.8653) != MJDToNight(57640.1234) {
		t.Error("evening and morning of one night bucketed differently")
	}
}

func TestMJDRoundTrip(t *testing.T) {
	mjd := 57639.8653
	got := TimeToMJD(MJDToTime(mjd))
	if math.Abs(got-mjd) > 1e-8 {
		t.Errorf("round trip drifted: %v -> %v", mjd, got)
	}
}

func TestMJDEpoch(t *testing.T) {
	want := time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)
	if !MJDToTime(0).Equal(want) {
		t.Errorf("MJDToTime(0) = %v, want %v", MJDToTime(0), want)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(3 * time.Second)
	if got := c.Since(start); got != 3*time.Second {
		t.Errorf("Since = %v, want 3s", got)
	}
}
