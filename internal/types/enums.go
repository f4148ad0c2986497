package types

import "strings"

// Difficulty is an ordered tier. Rank gives the ordering; the zero
// rank means the value is unknown.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyElite  Difficulty = "elite"
)

var difficultyRanks = map[Difficulty]int{
	DifficultyEasy:   1,
	DifficultyMedium: 2,
	DifficultyHard:   3,
	DifficultyElite:  4,
}

func (d Difficulty) Rank() int {
	return difficultyRanks[d]
}

func (d Difficulty) Valid() bool {
	_, ok := difficultyRanks[d]
	return ok
}

func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyElite}
}

// TestKind tags how an instance was generated and which scoring
// policy applies at submission.
type TestKind string

const (
	TestKindCustom     TestKind = "custom"
	TestKindRevision   TestKind = "revision"
	TestKindPYQ        TestKind = "pyq"
	TestKindDiagnostic TestKind = "diagnostic"
	TestKindMock       TestKind = "mock"
)

func (k TestKind) Valid() bool {
	switch k {
	case TestKindCustom, TestKindRevision, TestKindPYQ, TestKindDiagnostic, TestKindMock:
		return true
	}
	return false
}

// UsesExamMarking reports whether the exam's configured positive and
// negative marks apply. Custom quizzes score a flat point per correct
// answer with no negative marking.
func (k TestKind) UsesExamMarking() bool {
	return k != TestKindCustom
}
