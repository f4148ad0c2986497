package types

import "testing"

func TestParseDifficulty(t *testing.T) {
	if d, ok := ParseDifficulty("  Elite "); !ok || d != DifficultyElite {
		t.Fatalf("expected elite, got %q ok=%v", d, ok)
	}
	if _, ok := ParseDifficulty("impossible"); ok {
		t.Fatalf("unknown difficulty should not parse")
	}
}

func TestDifficultyRankOrdering(t *testing.T) {
	all := AllDifficulties()
	for i := 1; i < len(all); i++ {
		if all[i-1].Rank() >= all[i].Rank() {
			t.Fatalf("expected %s to rank below %s", all[i-1], all[i])
		}
	}
	if Difficulty("unknown").Rank() != 0 {
		t.Fatalf("unknown difficulty should rank zero")
	}
}

func TestUsesExamMarking(t *testing.T) {
	if TestKindCustom.UsesExamMarking() {
		t.Fatalf("custom tests score a flat point per correct answer")
	}
	for _, k := range []TestKind{TestKindRevision, TestKindPYQ, TestKindDiagnostic, TestKindMock} {
		if !k.UsesExamMarking() {
			t.Fatalf("%s should use exam marking", k)
		}
	}
}

func TestTestKindValid(t *testing.T) {
	if !TestKindMock.Valid() {
		t.Fatalf("mock should be a valid kind")
	}
	if TestKind("speedrun").Valid() {
		t.Fatalf("unknown kind should not be valid")
	}
}
