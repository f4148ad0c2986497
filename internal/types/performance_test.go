package types

import "testing"

func TestPerformanceTotalsApplyRecomputesDerived(t *testing.T) {
	totals := PerformanceTotals{}

	totals.Apply(PerformanceDelta{Attempted: 4, Correct: 3, Incorrect: 1, TimeTakenSec: 120})
	if totals.AccuracyPercent != 75 {
		t.Fatalf("expected accuracy 75, got %v", totals.AccuracyPercent)
	}
	if totals.AvgTimePerQuestionSec != 30 {
		t.Fatalf("expected avg time 30, got %v", totals.AvgTimePerQuestionSec)
	}

	// Derived fields come from the new totals, not from blending the
	// old percentages with the delta.
	totals.Apply(PerformanceDelta{Attempted: 6, Correct: 2, Incorrect: 4, TimeTakenSec: 180})
	if totals.TotalAttempted != 10 || totals.TotalCorrect != 5 || totals.TotalIncorrect != 5 {
		t.Fatalf("unexpected counters: %+v", totals)
	}
	if totals.AccuracyPercent != 50 {
		t.Fatalf("expected accuracy 50 after second delta, got %v", totals.AccuracyPercent)
	}
	if totals.AvgTimePerQuestionSec != 30 {
		t.Fatalf("expected avg time 30 after second delta, got %v", totals.AvgTimePerQuestionSec)
	}
}

func TestPerformanceTotalsApplyZeroAttempted(t *testing.T) {
	totals := PerformanceTotals{}
	totals.Apply(PerformanceDelta{})
	if totals.AccuracyPercent != 0 || totals.AvgTimePerQuestionSec != 0 {
		t.Fatalf("zero delta should leave derived fields at zero: %+v", totals)
	}
}

func TestPerformanceDeltaAddAndIsZero(t *testing.T) {
	var d PerformanceDelta
	if !d.IsZero() {
		t.Fatalf("zero value should report IsZero")
	}
	d.Add(PerformanceDelta{Attempted: 1, Correct: 1, TimeTakenSec: 45})
	d.Add(PerformanceDelta{Attempted: 1, Incorrect: 1, TimeTakenSec: 15})
	if d.IsZero() {
		t.Fatalf("accumulated delta should not be zero")
	}
	if d.Attempted != 2 || d.Correct != 1 || d.Incorrect != 1 || d.TimeTakenSec != 60 {
		t.Fatalf("unexpected accumulation: %+v", d)
	}
}
