package services

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStreakFrom(t *testing.T) {
	now := day("2026-08-26")

	if got := streakFrom(nil, now); got != 0 {
		t.Fatalf("no snapshots should mean no streak, got %d", got)
	}

	// Practicing today extends a run ending today.
	days := []time.Time{day("2026-08-26"), day("2026-08-25"), day("2026-08-24")}
	if got := streakFrom(days, now); got != 3 {
		t.Fatalf("expected streak 3, got %d", got)
	}

	// A run ending yesterday still counts; today is not over yet.
	days = []time.Time{day("2026-08-25"), day("2026-08-24")}
	if got := streakFrom(days, now); got != 2 {
		t.Fatalf("expected streak 2 ending yesterday, got %d", got)
	}

	// A gap before yesterday breaks the streak entirely.
	days = []time.Time{day("2026-08-23"), day("2026-08-22")}
	if got := streakFrom(days, now); got != 0 {
		t.Fatalf("stale run should not count, got %d", got)
	}

	// A hole inside the run stops the count at the hole.
	days = []time.Time{day("2026-08-26"), day("2026-08-25"), day("2026-08-22")}
	if got := streakFrom(days, now); got != 2 {
		t.Fatalf("expected streak 2 up to the gap, got %d", got)
	}
}

func TestStreakFromIgnoresOrderAndDuplicates(t *testing.T) {
	now := day("2026-08-26")
	days := []time.Time{
		day("2026-08-24"),
		day("2026-08-26"),
		day("2026-08-25"),
		day("2026-08-25"),
	}
	if got := streakFrom(days, now); got != 3 {
		t.Fatalf("recompute should tolerate unordered backfilled days, got %d", got)
	}
}

func TestStreakFromNormalizesToUTCDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, 8, 26, 1, 30, 0, 0, loc) // still Aug 25 in UTC
	days := []time.Time{day("2026-08-25")}
	if got := streakFrom(days, now); got != 1 {
		t.Fatalf("expected UTC-day streak 1, got %d", got)
	}
}
