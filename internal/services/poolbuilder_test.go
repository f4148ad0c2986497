package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/types"
)

func TestWeightageCounts(t *testing.T) {
	topics := []*types.Topic{
		{ID: uuid.New(), ExamWeightage: 70},
		{ID: uuid.New(), ExamWeightage: 30},
	}
	counts := weightageCounts(topics, 10)
	if counts[0] != 7 || counts[1] != 3 {
		t.Fatalf("expected 7/3 split, got %v", counts)
	}
}

func TestWeightageCountsMinimumOne(t *testing.T) {
	topics := []*types.Topic{
		{ID: uuid.New(), ExamWeightage: 96},
		{ID: uuid.New(), ExamWeightage: 2},
		{ID: uuid.New(), ExamWeightage: 2},
	}
	counts := weightageCounts(topics, 10)
	// 2% of 10 rounds to zero; positive weightage still guarantees one.
	if counts[1] != 1 || counts[2] != 1 {
		t.Fatalf("positive weightage should floor at one question, got %v", counts)
	}
}

func TestWeightageCountsZeroWeightageExcluded(t *testing.T) {
	topics := []*types.Topic{
		{ID: uuid.New(), ExamWeightage: 100},
		{ID: uuid.New(), ExamWeightage: 0},
	}
	counts := weightageCounts(topics, 20)
	if counts[0] != 20 {
		t.Fatalf("expected the full total on the weighted topic, got %v", counts)
	}
	if counts[1] != 0 {
		t.Fatalf("zero-weightage topic must get nothing, got %d", counts[1])
	}
}

func TestEmbeddingCentroid(t *testing.T) {
	centroid := embeddingCentroid([][]float32{
		{1, 2, 3},
		{3, 4, 5},
	})
	want := []float32{2, 3, 4}
	if len(centroid) != len(want) {
		t.Fatalf("expected %d dimensions, got %d", len(want), len(centroid))
	}
	for i := range want {
		if centroid[i] != want[i] {
			t.Fatalf("dimension %d: expected %v, got %v", i, want[i], centroid[i])
		}
	}
}

func TestEmbeddingCentroidSkipsMismatchedDimensions(t *testing.T) {
	centroid := embeddingCentroid([][]float32{
		{2, 4},
		{1, 2, 3},
		{4, 6},
	})
	if len(centroid) != 2 || centroid[0] != 3 || centroid[1] != 5 {
		t.Fatalf("mismatched vector should be skipped, got %v", centroid)
	}
}

func TestEmbeddingCentroidEmptyInput(t *testing.T) {
	if got := embeddingCentroid(nil); got != nil {
		t.Fatalf("expected nil for no vectors, got %v", got)
	}
	if got := embeddingCentroid([][]float32{{}}); got != nil {
		t.Fatalf("expected nil for zero-dimension vectors, got %v", got)
	}
}

func TestCandidatePoolFirstSourceWins(t *testing.T) {
	subtopicID := uuid.New()
	topicID := uuid.New()
	pool := newCandidatePool(
		map[uuid.UUID]uuid.UUID{subtopicID: topicID},
		map[uuid.UUID]string{topicID: "Thermodynamics"},
	)

	question := &types.Question{ID: uuid.New(), SubtopicID: subtopicID, Difficulty: types.DifficultyHard}
	pool.add([]*types.Question{question}, sourceMistake)
	pool.add([]*types.Question{question}, sourceCoverage)

	if pool.len() != 1 {
		t.Fatalf("duplicate question should not re-enter the pool, got %d", pool.len())
	}
	c := pool.candidates[0]
	if c.Source != sourceMistake {
		t.Fatalf("first source should win, got %s", c.Source)
	}
	if c.TopicID != topicID || c.TopicName != "Thermodynamics" {
		t.Fatalf("lineage not resolved: %+v", c)
	}
}
