package util

import (
	"math"
	"time"
)

// DaysBetween returns the distance from from to to, rounded to the
// nearest whole day. Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// YearsBetween returns the distance from from to to as a fraction of a
// 365-day year, the day-count convention used for option expiries.
func YearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365
}
