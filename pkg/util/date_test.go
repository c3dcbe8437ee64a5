package util

import (
	"testing"
	"time"
)

func TestDaysBetweenWholeDays(t *testing.T) {
	from := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)
	if got := DaysBetween(from, to); got != 30 {
		t.Fatalf("DaysBetween = %d, want 30", got)
	}
}

func TestDaysBetweenRoundsToNearest(t *testing.T) {
	from := time.Date(2024, 10, 10, 16, 0, 0, 0, time.UTC)
	to := time.Date(2024, 11, 9, 0, 0, 0, 0, time.UTC) // 29.33 days later
	if got := DaysBetween(from, to); got != 29 {
		t.Fatalf("DaysBetween = %d, want 29", got)
	}
}

func TestDaysBetweenNegative(t *testing.T) {
	from := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -3)
	if got := DaysBetween(from, to); got != -3 {
		t.Fatalf("DaysBetween = %d, want -3", got)
	}
}

func TestYearsBetween(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 365)
	if got := YearsBetween(from, to); got < 0.999 || got > 1.001 {
		t.Fatalf("YearsBetween = %v, want 1", got)
	}
}
