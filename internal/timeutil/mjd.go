package timeutil

import (
	"math"
	"time"
)

// mjdEpoch is 1858-11-17T00:00:00 UTC, the zero point of the Modified Julian
// Date scale.
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400.0

// MJDToTime converts a Modified Julian Date to a UTC time.
func MJDToTime(mjd float64) time.Time {
	ns := mjd * secondsPerDay * float64(time.Second)
	return mjdEpoch.Add(time.Duration(ns))
}

// TimeToMJD converts a time to a Modified Julian Date.
func TimeToMJD(t time.Time) float64 {
	return t.Sub(mjdEpoch).Seconds() / secondsPerDay
}

// MJDToNight buckets a timestamp into its observing night, returned as a
// yyyymmdd string. A night runs from local noon to local noon, so everything
// in [n+0.5, n+1.5) belongs to the night that started on day n.
func MJDToNight(mjd float64) string {
	night := int(math.Floor(mjd - 0.5))
	return mjdEpoch.AddDate(0, 0, night).Format("20060102")
}
