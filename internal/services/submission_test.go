package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/types"
)

func TestAnswerNormalization(t *testing.T) {
	if !answerIsCorrect("  B ", "b") {
		t.Fatalf("comparison should trim whitespace and ignore case")
	}
	if answerIsCorrect("c", "b") {
		t.Fatalf("different options should not match")
	}
	if normalizeAnswer("   ") != "" {
		t.Fatalf("whitespace-only answer should normalize to empty")
	}
}

type scoringFixture struct {
	instance  *types.TestInstance
	exam      *types.Exam
	questions []*types.Question
	paths     []types.QuestionPath
}

// buildScoringFixture creates n questions whose correct option is "a",
// all under one subtopic/topic/subject lineage.
func buildScoringFixture(kind types.TestKind, n int) *scoringFixture {
	exam := &types.Exam{
		ID:                        uuid.New(),
		MarksPerCorrect:           4,
		NegativeMarksPerIncorrect: 1,
	}
	subtopicID := uuid.New()
	topicID := uuid.New()
	subjectID := uuid.New()

	fixture := &scoringFixture{
		exam: exam,
		instance: &types.TestInstance{
			ID:     uuid.New(),
			ExamID: exam.ID,
			Kind:   kind,
		},
	}
	for i := 0; i < n; i++ {
		q := &types.Question{
			ID:            uuid.New(),
			ExamID:        exam.ID,
			SubtopicID:    subtopicID,
			CorrectOption: "a",
			Difficulty:    types.DifficultyMedium,
		}
		fixture.questions = append(fixture.questions, q)
		fixture.instance.QuestionIDs = append(fixture.instance.QuestionIDs, q.ID)
		fixture.paths = append(fixture.paths, types.QuestionPath{
			QuestionID: q.ID,
			SubtopicID: subtopicID,
			TopicID:    topicID,
			SubjectID:  subjectID,
			Difficulty: q.Difficulty,
		})
	}
	fixture.instance.TotalQuestions = n
	return fixture
}

func TestScoreSubmissionExamMarking(t *testing.T) {
	f := buildScoringFixture(types.TestKindMock, 10)

	// 5 correct, 3 incorrect, 2 never answered.
	progress := &types.TestProgress{TestInstanceID: f.instance.ID}
	for i := 0; i < 5; i++ {
		progress.Entries = append(progress.Entries, types.ProgressEntry{
			QuestionID:         f.instance.QuestionIDs[i],
			LastAnswer:         "A ",
			AccumulatedTimeSec: 30,
		})
	}
	for i := 5; i < 8; i++ {
		progress.Entries = append(progress.Entries, types.ProgressEntry{
			QuestionID:         f.instance.QuestionIDs[i],
			LastAnswer:         "b",
			AccumulatedTimeSec: 20,
		})
	}

	scored := scoreSubmission(f.instance, f.exam, progress, f.questions, f.paths)

	if scored.score != 17 {
		t.Fatalf("expected score 5*4 - 3*1 = 17, got %v", scored.score)
	}
	if scored.numCorrect != 5 || scored.numIncorrect != 3 || scored.numUnattempted != 2 {
		t.Fatalf("unexpected classification: %d/%d/%d", scored.numCorrect, scored.numIncorrect, scored.numUnattempted)
	}
	if got := scored.numCorrect + scored.numIncorrect + scored.numUnattempted; got != len(f.instance.QuestionIDs) {
		t.Fatalf("classification should cover every question, got %d of %d", got, len(f.instance.QuestionIDs))
	}
	if len(scored.answers) != 10 {
		t.Fatalf("expected one answer row per present question, got %d", len(scored.answers))
	}

	if scored.overall.Attempted != 8 || scored.overall.Correct != 5 || scored.overall.Incorrect != 3 {
		t.Fatalf("unexpected overall delta: %+v", scored.overall)
	}
	if scored.overall.TimeTakenSec != 5*30+3*20 {
		t.Fatalf("expected overall time 210, got %d", scored.overall.TimeTakenSec)
	}
}

func TestScoreSubmissionCustomFlatScoring(t *testing.T) {
	f := buildScoringFixture(types.TestKindCustom, 3)

	progress := &types.TestProgress{
		Entries: []types.ProgressEntry{
			{QuestionID: f.instance.QuestionIDs[0], LastAnswer: "a"},
			{QuestionID: f.instance.QuestionIDs[1], LastAnswer: "d"},
		},
	}
	scored := scoreSubmission(f.instance, f.exam, progress, f.questions, f.paths)

	if scored.score != 1 {
		t.Fatalf("custom scoring is one point per correct with no negatives, got %v", scored.score)
	}
	if scored.answers[0].MarksAwarded != 1 {
		t.Fatalf("expected 1 mark for correct answer, got %v", scored.answers[0].MarksAwarded)
	}
	if scored.answers[1].MarksAwarded != 0 {
		t.Fatalf("expected no penalty on custom tests, got %v", scored.answers[1].MarksAwarded)
	}
}

func TestScoreSubmissionBlankAnswerIsUnattempted(t *testing.T) {
	f := buildScoringFixture(types.TestKindRevision, 2)

	progress := &types.TestProgress{
		Entries: []types.ProgressEntry{
			{QuestionID: f.instance.QuestionIDs[0], LastAnswer: "   ", AccumulatedTimeSec: 40},
			{QuestionID: f.instance.QuestionIDs[1], LastAnswer: "a", AccumulatedTimeSec: 25},
		},
	}
	scored := scoreSubmission(f.instance, f.exam, progress, f.questions, f.paths)

	if scored.numUnattempted != 1 || scored.numCorrect != 1 {
		t.Fatalf("blank answer should count as unattempted: %d/%d/%d", scored.numCorrect, scored.numIncorrect, scored.numUnattempted)
	}
	if scored.answers[0].Attempted {
		t.Fatalf("blank answer row should not be marked attempted")
	}
	// Unattempted questions contribute nothing to any aggregate.
	if scored.overall.Attempted != 1 || scored.overall.TimeTakenSec != 25 {
		t.Fatalf("unattempted question leaked into the overall delta: %+v", scored.overall)
	}
}

func TestScoreSubmissionMissingCatalogRow(t *testing.T) {
	f := buildScoringFixture(types.TestKindMock, 3)
	// Drop the last question from the catalog load.
	questions := f.questions[:2]

	progress := &types.TestProgress{
		Entries: []types.ProgressEntry{
			{QuestionID: f.instance.QuestionIDs[2], LastAnswer: "a"},
		},
	}
	scored := scoreSubmission(f.instance, f.exam, progress, questions, f.paths)

	if scored.numUnattempted != 3 {
		t.Fatalf("expected all three unattempted, got %d", scored.numUnattempted)
	}
	if len(scored.answers) != 3 {
		t.Fatalf("every instance question keeps an answer row, got %d", len(scored.answers))
	}
	// The vanished question's row survives for review but scores
	// nothing.
	vanished := scored.answers[2]
	if vanished.QuestionID != f.instance.QuestionIDs[2] {
		t.Fatalf("unexpected row order: %+v", vanished)
	}
	if vanished.Attempted || vanished.IsCorrect || vanished.MarksAwarded != 0 {
		t.Fatalf("vanished question must not score: %+v", vanished)
	}
	if vanished.Answer != "a" {
		t.Fatalf("submitted answer should be preserved for review, got %q", vanished.Answer)
	}
	if !scored.overall.IsZero() {
		t.Fatalf("vanished question leaked into the overall delta: %+v", scored.overall)
	}
}

func TestScoreSubmissionDeltaFanout(t *testing.T) {
	f := buildScoringFixture(types.TestKindRevision, 4)

	progress := &types.TestProgress{
		Entries: []types.ProgressEntry{
			{QuestionID: f.instance.QuestionIDs[0], LastAnswer: "a", AccumulatedTimeSec: 10},
			{QuestionID: f.instance.QuestionIDs[1], LastAnswer: "a", AccumulatedTimeSec: 10},
			{QuestionID: f.instance.QuestionIDs[2], LastAnswer: "b", AccumulatedTimeSec: 10},
		},
	}
	scored := scoreSubmission(f.instance, f.exam, progress, f.questions, f.paths)

	if len(scored.subtopicDeltas) != 1 || len(scored.topicDeltas) != 1 || len(scored.subjectDeltas) != 1 {
		t.Fatalf("shared lineage should collapse to one delta per dimension")
	}
	for _, delta := range scored.topicDeltas {
		if delta.Attempted != 3 || delta.Correct != 2 || delta.Incorrect != 1 {
			t.Fatalf("unexpected topic delta: %+v", delta)
		}
	}
	key := topicDifficultyKey{topicID: f.paths[0].TopicID, difficulty: types.DifficultyMedium}
	if delta, ok := scored.topicDifficultyDeltas[key]; !ok || delta.Attempted != 3 {
		t.Fatalf("expected topic-difficulty delta keyed on medium, got %+v", scored.topicDifficultyDeltas)
	}

	touched := scored.touched()
	if len(touched.TopicIDs) != 1 || len(touched.SubtopicIDs) != 1 || len(touched.SubjectIDs) != 1 {
		t.Fatalf("touched dimensions should mirror the delta maps: %+v", touched)
	}
}

func TestScoreSubmissionSubjectDeltasRevisionOnly(t *testing.T) {
	f := buildScoringFixture(types.TestKindMock, 2)

	progress := &types.TestProgress{
		Entries: []types.ProgressEntry{
			{QuestionID: f.instance.QuestionIDs[0], LastAnswer: "a", AccumulatedTimeSec: 10},
			{QuestionID: f.instance.QuestionIDs[1], LastAnswer: "b", AccumulatedTimeSec: 10},
		},
	}
	scored := scoreSubmission(f.instance, f.exam, progress, f.questions, f.paths)

	if len(scored.subjectDeltas) != 0 {
		t.Fatalf("mock tests must not move subject aggregates: %+v", scored.subjectDeltas)
	}
	if got := scored.touched().SubjectIDs; len(got) != 0 {
		t.Fatalf("mock tests must not report touched subjects: %v", got)
	}
	// Topic and subtopic aggregates still move for every kind.
	if len(scored.topicDeltas) != 1 || len(scored.subtopicDeltas) != 1 {
		t.Fatalf("topic/subtopic deltas missing: %d/%d", len(scored.topicDeltas), len(scored.subtopicDeltas))
	}
}

func TestSubmitAlreadyCompleted(t *testing.T) {
	userID := uuid.New()
	completedAt := time.Now().UTC()
	instance := &types.TestInstance{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        types.TestKindMock,
		CompletedAt: &completedAt,
	}
	svc := &submissionService{
		log:              newTestLogger(t),
		testInstanceRepo: &fakeInstanceRepo{lookup: instance},
	}

	_, err := svc.Submit(context.Background(), userID, instance.ID)
	if !apierr.Is(err, apierr.CodeAlreadyCompleted) {
		t.Fatalf("expected already_completed, got %v", err)
	}
}

func TestSubmitNoProgress(t *testing.T) {
	userID := uuid.New()
	instance := &types.TestInstance{
		ID:     uuid.New(),
		UserID: userID,
		Kind:   types.TestKindMock,
	}
	svc := &submissionService{
		log:              newTestLogger(t),
		testInstanceRepo: &fakeInstanceRepo{lookup: instance},
		progressBuffer:   &fakeBuffer{},
	}

	_, err := svc.Submit(context.Background(), userID, instance.ID)
	if !apierr.Is(err, apierr.CodeNoProgress) {
		t.Fatalf("expected no_progress on empty buffer, got %v", err)
	}
}

func TestCompletionTxError(t *testing.T) {
	// Losing the completed_at compare-and-set surfaces as a state
	// conflict, not a persistence failure.
	lost := apierr.AlreadyCompleted("test instance %s is already completed", uuid.New())
	if got := completionTxError(lost); !apierr.Is(got, apierr.CodeAlreadyCompleted) {
		t.Fatalf("expected already_completed to pass through, got %v", got)
	}
	if apierr.Is(completionTxError(lost), apierr.CodePersistenceFailure) {
		t.Fatalf("conflict must not be reported as persistence_failure")
	}

	rolled := completionTxError(errors.New("connection reset"))
	if !apierr.Is(rolled, apierr.CodePersistenceFailure) {
		t.Fatalf("expected persistence_failure for rolled-back errors, got %v", rolled)
	}
}
