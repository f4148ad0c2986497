package types

import (
	"testing"

	"github.com/google/uuid"
)

func TestWeaknessSummary(t *testing.T) {
	var p *ReadinessProfile
	if p.WeaknessSummary() != "" {
		t.Fatalf("nil profile should summarize to empty")
	}

	p = &ReadinessProfile{}
	if p.WeaknessSummary() != "" {
		t.Fatalf("no weaknesses should summarize to empty")
	}

	p.StrategicWeaknesses = []StrategicWeakness{
		{TopicID: uuid.New(), TopicName: "Thermodynamics", Difficulty: DifficultyHard},
		{TopicID: uuid.New(), TopicName: "Optics", Difficulty: DifficultyMedium},
	}
	want := "Student struggles with: Thermodynamics at hard difficulty; Optics at medium difficulty"
	if got := p.WeaknessSummary(); got != want {
		t.Fatalf("unexpected summary:\n got %q\nwant %q", got, want)
	}
}
