package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/types"
)

func candidateSet(n int) []types.CandidateQuestion {
	candidates := make([]types.CandidateQuestion, n)
	for i := range candidates {
		candidates[i] = types.CandidateQuestion{QuestionID: uuid.New()}
	}
	return candidates
}

func TestParseSelectionValid(t *testing.T) {
	candidates := candidateSet(4)
	raw := map[string]any{
		"selected_question_ids": []any{
			candidates[2].QuestionID.String(),
			candidates[0].QuestionID.String(),
		},
	}
	selected, err := parseSelection(raw, candidates, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 2 || selected[0] != candidates[2].QuestionID || selected[1] != candidates[0].QuestionID {
		t.Fatalf("selection order not preserved: %v", selected)
	}
}

func TestParseSelectionRejectsForeignID(t *testing.T) {
	candidates := candidateSet(2)
	raw := map[string]any{
		"selected_question_ids": []any{uuid.New().String()},
	}
	if _, err := parseSelection(raw, candidates, 1); err == nil {
		t.Fatalf("id outside the candidate set must be rejected")
	}
}

func TestParseSelectionRejectsMalformedID(t *testing.T) {
	candidates := candidateSet(2)
	raw := map[string]any{
		"selected_question_ids": []any{"not-a-uuid"},
	}
	if _, err := parseSelection(raw, candidates, 1); err == nil {
		t.Fatalf("malformed id must be rejected")
	}
}

func TestParseSelectionRejectsWrongCount(t *testing.T) {
	candidates := candidateSet(3)
	raw := map[string]any{
		"selected_question_ids": []any{candidates[0].QuestionID.String()},
	}
	if _, err := parseSelection(raw, candidates, 2); err == nil {
		t.Fatalf("short selection must be rejected")
	}
}

func TestParseSelectionDeduplicatesBeforeCounting(t *testing.T) {
	candidates := candidateSet(3)
	id := candidates[0].QuestionID.String()
	raw := map[string]any{
		"selected_question_ids": []any{id, id},
	}
	// Two entries collapse to one distinct id, which misses the target.
	if _, err := parseSelection(raw, candidates, 2); err == nil {
		t.Fatalf("duplicates must not count toward the target")
	}
}

func TestParseSelectionRejectsMissingField(t *testing.T) {
	candidates := candidateSet(1)
	if _, err := parseSelection(map[string]any{}, candidates, 1); err == nil {
		t.Fatalf("missing selected_question_ids must be rejected")
	}
	raw := map[string]any{"selected_question_ids": "oops"}
	if _, err := parseSelection(raw, candidates, 1); err == nil {
		t.Fatalf("non-array selected_question_ids must be rejected")
	}
}
