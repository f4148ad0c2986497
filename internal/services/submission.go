package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/repos"
	"github.com/prepwise/prepwise-backend/internal/types"
)

// SubmissionResult is returned to the caller once the commit landed.
type SubmissionResult struct {
	TestInstanceID uuid.UUID `json:"test_instance_id"`
	Score          float64   `json:"score"`
	TotalMarks     float64   `json:"total_marks"`
	NumCorrect     int       `json:"num_correct"`
	NumIncorrect   int       `json:"num_incorrect"`
	NumUnattempted int       `json:"num_unattempted"`
	TimeTakenSec   int       `json:"time_taken_sec"`
}

// SubmissionService drains the progress buffer, scores the attempt and
// commits the instance plus every touched aggregate in one
// transaction. Concurrent submits for the same instance serialize on
// the completed_at compare-and-set; exactly one wins.
type SubmissionService interface {
	Submit(ctx context.Context, userID, instanceID uuid.UUID) (*SubmissionResult, error)
}

type submissionService struct {
	db               *gorm.DB
	log              *logger.Logger
	examRepo         repos.ExamRepo
	questionRepo     repos.QuestionRepo
	testInstanceRepo repos.TestInstanceRepo
	testAnswerRepo   repos.TestAnswerRepo
	performanceRepo  repos.PerformanceRepo
	progressBuffer   ProgressBufferService
	stats            StatsService
}

func NewSubmissionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	examRepo repos.ExamRepo,
	questionRepo repos.QuestionRepo,
	testInstanceRepo repos.TestInstanceRepo,
	testAnswerRepo repos.TestAnswerRepo,
	performanceRepo repos.PerformanceRepo,
	progressBuffer ProgressBufferService,
	stats StatsService,
) SubmissionService {
	return &submissionService{
		db:               db,
		log:              baseLog.With("service", "SubmissionService"),
		examRepo:         examRepo,
		questionRepo:     questionRepo,
		testInstanceRepo: testInstanceRepo,
		testAnswerRepo:   testAnswerRepo,
		performanceRepo:  performanceRepo,
		progressBuffer:   progressBuffer,
		stats:            stats,
	}
}

func (s *submissionService) Submit(ctx context.Context, userID, instanceID uuid.UUID) (*SubmissionResult, error) {
	instance, err := s.testInstanceRepo.GetByIDForUser(ctx, nil, instanceID, userID)
	if err != nil {
		return nil, err
	}
	if instance.Completed() {
		return nil, apierr.AlreadyCompleted("test instance %s is already completed", instanceID)
	}

	progress, err := s.progressBuffer.ReadAll(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if progress.Empty() {
		return nil, apierr.NoProgress("no recorded progress for test instance %s", instanceID)
	}

	exam, err := s.examRepo.GetByID(ctx, nil, instance.ExamID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.GetByIDs(ctx, nil, instance.QuestionIDs)
	if err != nil {
		return nil, err
	}
	paths, err := s.questionRepo.ResolvePaths(ctx, nil, instance.QuestionIDs)
	if err != nil {
		return nil, err
	}

	scored := scoreSubmission(instance, exam, progress, questions, paths)
	completedAt := time.Now().UTC()

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.testInstanceRepo.CompleteIfOpen(ctx, tx, instanceID, repos.TestResult{
			Score:          scored.score,
			NumCorrect:     scored.numCorrect,
			NumIncorrect:   scored.numIncorrect,
			NumUnattempted: scored.numUnattempted,
			TimeTakenSec:   progress.TotalTimeSec,
			CompletedAt:    completedAt,
		})
		if err != nil {
			return err
		}
		if !won {
			return apierr.AlreadyCompleted("test instance %s is already completed", instanceID)
		}

		for _, answer := range scored.answers {
			answer.TestInstanceID = instanceID
			answer.UserID = userID
		}
		if err := s.testAnswerRepo.CreateBatch(ctx, tx, scored.answers); err != nil {
			return err
		}

		for subtopicID, delta := range scored.subtopicDeltas {
			if err := s.performanceRepo.ApplySubtopicDelta(ctx, tx, userID, subtopicID, delta); err != nil {
				return err
			}
		}
		for topicID, delta := range scored.topicDeltas {
			if err := s.performanceRepo.ApplyTopicDelta(ctx, tx, userID, topicID, delta); err != nil {
				return err
			}
		}
		for key, delta := range scored.topicDifficultyDeltas {
			if err := s.performanceRepo.ApplyTopicDifficultyDelta(ctx, tx, userID, key.topicID, key.difficulty, delta); err != nil {
				return err
			}
		}
		for subjectID, delta := range scored.subjectDeltas {
			if err := s.performanceRepo.ApplySubjectDelta(ctx, tx, userID, subjectID, delta); err != nil {
				return err
			}
		}
		return s.performanceRepo.ApplyOverallDelta(ctx, tx, userID, instance.ExamID, scored.overall, 1)
	})
	if txErr != nil {
		return nil, completionTxError(txErr)
	}

	if err := s.progressBuffer.Clear(ctx, instanceID); err != nil {
		s.log.Warn("Failed to clear progress buffer after commit", "test_instance_id", instanceID, "error", err)
	}

	s.stats.DispatchPostSubmit(PostSubmitUpdate{
		UserID:       userID,
		Kind:         instance.Kind,
		Touched:      scored.touched(),
		Attempted:    scored.overall.Attempted,
		Correct:      scored.overall.Correct,
		TimeSpentSec: progress.TotalTimeSec,
		Day:          completedAt,
	})

	return &SubmissionResult{
		TestInstanceID: instanceID,
		Score:          scored.score,
		TotalMarks:     instance.TotalMarks,
		NumCorrect:     scored.numCorrect,
		NumIncorrect:   scored.numIncorrect,
		NumUnattempted: scored.numUnattempted,
		TimeTakenSec:   progress.TotalTimeSec,
	}, nil
}

// completionTxError classifies a failed submission transaction. Losing
// the completed_at compare-and-set is a state conflict that a retry
// can never win; anything else rolled back with the buffer intact, so
// the caller may retry as-is.
func completionTxError(err error) error {
	if apierr.Is(err, apierr.CodeAlreadyCompleted) {
		return err
	}
	return apierr.PersistenceFailure(err)
}

type topicDifficultyKey struct {
	topicID    uuid.UUID
	difficulty types.Difficulty
}

type scoredSubmission struct {
	answers        []*types.TestAnswer
	score          float64
	numCorrect     int
	numIncorrect   int
	numUnattempted int

	subtopicDeltas        map[uuid.UUID]types.PerformanceDelta
	topicDeltas           map[uuid.UUID]types.PerformanceDelta
	topicDifficultyDeltas map[topicDifficultyKey]types.PerformanceDelta
	subjectDeltas         map[uuid.UUID]types.PerformanceDelta
	overall               types.PerformanceDelta
}

func (s *scoredSubmission) touched() TouchedDimensions {
	touched := TouchedDimensions{}
	for id := range s.topicDeltas {
		touched.TopicIDs = append(touched.TopicIDs, id)
	}
	for id := range s.subtopicDeltas {
		touched.SubtopicIDs = append(touched.SubtopicIDs, id)
	}
	for id := range s.subjectDeltas {
		touched.SubjectIDs = append(touched.SubjectIDs, id)
	}
	return touched
}

// normalizeAnswer trims whitespace; comparison is case-insensitive.
// An answer that is empty after trimming counts as unattempted.
func normalizeAnswer(answer string) string {
	return strings.TrimSpace(answer)
}

func answerIsCorrect(submitted, correct string) bool {
	return strings.EqualFold(normalizeAnswer(submitted), normalizeAnswer(correct))
}

// scoreSubmission classifies and scores every question of the instance
// and accumulates the per-dimension deltas in memory. Pure; all
// persistence happens in the caller's transaction.
func scoreSubmission(
	instance *types.TestInstance,
	exam *types.Exam,
	progress *types.TestProgress,
	questions []*types.Question,
	paths []types.QuestionPath,
) *scoredSubmission {
	questionByID := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}
	pathByID := make(map[uuid.UUID]types.QuestionPath, len(paths))
	for _, p := range paths {
		pathByID[p.QuestionID] = p
	}
	entryByID := make(map[uuid.UUID]types.ProgressEntry, len(progress.Entries))
	for _, e := range progress.Entries {
		entryByID[e.QuestionID] = e
	}

	marksPerCorrect := 1.0
	negativePerIncorrect := 0.0
	if instance.Kind.UsesExamMarking() {
		marksPerCorrect = exam.MarksPerCorrect
		negativePerIncorrect = exam.NegativeMarksPerIncorrect
	}

	scored := &scoredSubmission{
		subtopicDeltas:        map[uuid.UUID]types.PerformanceDelta{},
		topicDeltas:           map[uuid.UUID]types.PerformanceDelta{},
		topicDifficultyDeltas: map[topicDifficultyKey]types.PerformanceDelta{},
		subjectDeltas:         map[uuid.UUID]types.PerformanceDelta{},
	}

	for _, questionID := range instance.QuestionIDs {
		question := questionByID[questionID]
		if question == nil {
			// Catalog row vanished since creation; keep an unattempted
			// answer row so review stays complete, score nothing.
			entry := entryByID[questionID]
			scored.numUnattempted++
			scored.answers = append(scored.answers, &types.TestAnswer{
				QuestionID:   questionID,
				Answer:       normalizeAnswer(entry.LastAnswer),
				TimeTakenSec: entry.AccumulatedTimeSec,
			})
			continue
		}

		entry, hasEntry := entryByID[questionID]
		answer := ""
		timeTaken := 0
		if hasEntry {
			answer = normalizeAnswer(entry.LastAnswer)
			timeTaken = entry.AccumulatedTimeSec
		}

		record := &types.TestAnswer{
			QuestionID:   questionID,
			Answer:       answer,
			TimeTakenSec: timeTaken,
		}

		if answer == "" {
			scored.numUnattempted++
			scored.answers = append(scored.answers, record)
			continue
		}

		record.Attempted = true
		delta := types.PerformanceDelta{Attempted: 1, TimeTakenSec: timeTaken}
		if answerIsCorrect(answer, question.CorrectOption) {
			record.IsCorrect = true
			record.MarksAwarded = marksPerCorrect
			scored.numCorrect++
			scored.score += marksPerCorrect
			delta.Correct = 1
		} else {
			record.MarksAwarded = -negativePerIncorrect
			scored.numIncorrect++
			scored.score -= negativePerIncorrect
			delta.Incorrect = 1
		}
		scored.answers = append(scored.answers, record)
		scored.overall.Add(delta)

		if path, ok := pathByID[questionID]; ok {
			addDelta(scored.subtopicDeltas, path.SubtopicID, delta)
			addDelta(scored.topicDeltas, path.TopicID, delta)
			// Subject aggregates only move for revision tests; the
			// empty map keeps them out of the touched set too.
			if instance.Kind == types.TestKindRevision {
				addDelta(scored.subjectDeltas, path.SubjectID, delta)
			}
			key := topicDifficultyKey{topicID: path.TopicID, difficulty: path.Difficulty}
			existing := scored.topicDifficultyDeltas[key]
			existing.Add(delta)
			scored.topicDifficultyDeltas[key] = existing
		}
	}

	return scored
}

func addDelta(m map[uuid.UUID]types.PerformanceDelta, key uuid.UUID, delta types.PerformanceDelta) {
	existing := m[key]
	existing.Add(delta)
	m[key] = existing
}
