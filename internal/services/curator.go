package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

const curatorSystemPrompt = `You are an exam-preparation test curator. Given a student's readiness profile and a candidate question pool, select the question set that best advances the student's readiness. Bias the selection toward declared strategic weaknesses (about 60%), weightage coverage of lagging topics (about 25%), and a mix of confidence boosters and challengers (about 15%). Select only from the supplied candidates.`

// CuratorService asks the ranking oracle for a curated selection. All
// parsing and validation of the oracle's output happens here; only a
// validated id list crosses the boundary. Any failure is reported as
// an OracleFailure so the caller can fall back deterministically.
type CuratorService interface {
	RankedSelection(ctx context.Context, profile *types.ReadinessProfile, candidates []types.CandidateQuestion, n int) ([]uuid.UUID, error)
}

type curatorService struct {
	log    *logger.Logger
	oracle OpenAIClient
}

func NewCuratorService(baseLog *logger.Logger, oracle OpenAIClient) CuratorService {
	return &curatorService{
		log:    baseLog.With("service", "CuratorService"),
		oracle: oracle,
	}
}

var curatorSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"selected_question_ids": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"selected_question_ids"},
	"additionalProperties": false,
}

type curatorInput struct {
	TargetCount int                       `json:"target_count"`
	Profile     *types.ReadinessProfile   `json:"profile"`
	Candidates  []types.CandidateQuestion `json:"candidates"`
}

func (s *curatorService) RankedSelection(ctx context.Context, profile *types.ReadinessProfile, candidates []types.CandidateQuestion, n int) ([]uuid.UUID, error) {
	if n <= 0 {
		return nil, apierr.Validation("selection size must be positive")
	}
	if len(candidates) < n {
		return nil, apierr.InsufficientCandidates("candidate pool has %d questions, need %d", len(candidates), n)
	}

	payload, err := json.Marshal(curatorInput{
		TargetCount: n,
		Profile:     profile,
		Candidates:  candidates,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.oracle.GenerateJSON(ctx, curatorSystemPrompt, string(payload), "curated_selection", curatorSchema)
	if err != nil {
		return nil, apierr.OracleFailure("ranking oracle call failed: %v", err)
	}

	selected, err := parseSelection(raw, candidates, n)
	if err != nil {
		s.log.Warn("Ranking oracle returned an unusable selection", "error", err)
		return nil, apierr.OracleFailure("ranking oracle selection invalid: %v", err)
	}
	return selected, nil
}

// parseSelection validates the oracle output: parseable ids, exactly n
// of them after dedup, every one drawn from the candidate set.
func parseSelection(raw map[string]any, candidates []types.CandidateQuestion, n int) ([]uuid.UUID, error) {
	rawIDs, ok := raw["selected_question_ids"].([]any)
	if !ok {
		return nil, fmt.Errorf("selected_question_ids missing or not an array")
	}

	allowed := make(map[uuid.UUID]bool, len(candidates))
	for _, c := range candidates {
		allowed[c.QuestionID] = true
	}

	selected := make([]uuid.UUID, 0, len(rawIDs))
	seen := map[uuid.UUID]bool{}
	for _, rawID := range rawIDs {
		idStr, ok := rawID.(string)
		if !ok {
			return nil, fmt.Errorf("selection contains a non-string id")
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("selection contains a malformed id %q", idStr)
		}
		if !allowed[id] {
			return nil, fmt.Errorf("selection contains id %s outside the candidate set", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		selected = append(selected, id)
	}

	if len(selected) != n {
		return nil, fmt.Errorf("selection has %d distinct ids, want %d", len(selected), n)
	}
	return selected, nil
}
