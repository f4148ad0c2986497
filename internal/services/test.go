package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/repos"
	"github.com/prepwise/prepwise-backend/internal/types"
)

type CustomTestRequest struct {
	ExamID      uuid.UUID        `json:"exam_id"`
	TopicIDs    []uuid.UUID      `json:"topic_ids,omitempty"`
	SubtopicIDs []uuid.UUID      `json:"subtopic_ids,omitempty"`
	Difficulty  types.Difficulty `json:"difficulty,omitempty"`
	Count       int              `json:"count"`
}

// SmartMockResult reports which mode generation actually took. A
// degraded result means the oracle path failed and the deterministic
// diagnostic was synthesized instead.
type SmartMockResult struct {
	Instance              *types.TestInstance `json:"instance"`
	Mode                  types.TestKind      `json:"mode"`
	Degraded              bool                `json:"degraded"`
	AttemptsUntilAdaptive int                 `json:"attempts_until_adaptive,omitempty"`
}

// TakingQuestion is a question as served for an open attempt: no
// correct option, no solution.
type TakingQuestion struct {
	ID         uuid.UUID        `json:"id"`
	Text       string           `json:"text"`
	Options    json.RawMessage  `json:"options"`
	Difficulty types.Difficulty `json:"difficulty"`
}

type TestTakingView struct {
	Instance  *types.TestInstance `json:"instance"`
	Questions []TakingQuestion    `json:"questions"`
}

// ReviewItem is the question-level payload for a completed instance.
type ReviewItem struct {
	QuestionID    uuid.UUID       `json:"question_id"`
	Text          string          `json:"text"`
	Options       json.RawMessage `json:"options"`
	CorrectOption string          `json:"correct_option"`
	Solution      string          `json:"solution,omitempty"`
	UserAnswer    string          `json:"user_answer"`
	Attempted     bool            `json:"attempted"`
	IsCorrect     bool            `json:"is_correct"`
	TimeTakenSec  int             `json:"time_taken_sec"`
	MarksAwarded  float64         `json:"marks_awarded"`
}

type TestReview struct {
	Instance *types.TestInstance `json:"instance"`
	Items    []ReviewItem        `json:"items"`
}

// TestService owns the instance lifecycle: generation (all kinds),
// serving for taking, progress guarding, and review of completed
// attempts. Completion itself belongs to the submission engine.
type TestService interface {
	CreateCustom(ctx context.Context, userID uuid.UUID, req CustomTestRequest) (*types.TestInstance, error)
	CreateRevision(ctx context.Context, userID, examID uuid.UUID, count int) (*types.TestInstance, error)
	CreatePYQ(ctx context.Context, userID, examID, sessionID uuid.UUID) (*types.TestInstance, error)
	CreateSmartMock(ctx context.Context, userID, examID uuid.UUID) (*SmartMockResult, error)

	GetForTaking(ctx context.Context, userID, instanceID uuid.UUID) (*TestTakingView, error)
	RecordProgress(ctx context.Context, userID, instanceID, questionID uuid.UUID, answer string, timeDeltaSec int) error
	ReadProgress(ctx context.Context, userID, instanceID uuid.UUID) (*types.TestProgress, error)
	Review(ctx context.Context, userID, instanceID uuid.UUID) (*TestReview, error)
}

type testService struct {
	db               *gorm.DB
	log              *logger.Logger
	cfg              GenerationConfig
	examRepo         repos.ExamRepo
	questionRepo     repos.QuestionRepo
	testInstanceRepo repos.TestInstanceRepo
	testAnswerRepo   repos.TestAnswerRepo
	poolBuilder      PoolBuilderService
	curator          CuratorService
	profiles         ProfileService
	progressBuffer   ProgressBufferService
}

func NewTestService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg GenerationConfig,
	examRepo repos.ExamRepo,
	questionRepo repos.QuestionRepo,
	testInstanceRepo repos.TestInstanceRepo,
	testAnswerRepo repos.TestAnswerRepo,
	poolBuilder PoolBuilderService,
	curator CuratorService,
	profiles ProfileService,
	progressBuffer ProgressBufferService,
) TestService {
	return &testService{
		db:               db,
		log:              baseLog.With("service", "TestService"),
		cfg:              cfg,
		examRepo:         examRepo,
		questionRepo:     questionRepo,
		testInstanceRepo: testInstanceRepo,
		testAnswerRepo:   testAnswerRepo,
		poolBuilder:      poolBuilder,
		curator:          curator,
		profiles:         profiles,
		progressBuffer:   progressBuffer,
	}
}

// durationFor scales the exam's configured time budget to the question
// count, with a floor of one minute per question.
func durationFor(exam *types.Exam, count int) int {
	if exam.TotalQuestions > 0 && exam.DurationMinutes > 0 {
		return int(math.Ceil(float64(count) * float64(exam.DurationMinutes) / float64(exam.TotalQuestions)))
	}
	return count
}

func (s *testService) create(ctx context.Context, userID uuid.UUID, exam *types.Exam, kind types.TestKind, questionIDs []uuid.UUID) (*types.TestInstance, error) {
	totalMarks := float64(len(questionIDs))
	if kind.UsesExamMarking() {
		totalMarks = float64(len(questionIDs)) * exam.MarksPerCorrect
	}
	instance := &types.TestInstance{
		UserID:          userID,
		ExamID:          exam.ID,
		Kind:            kind,
		QuestionIDs:     questionIDs,
		TotalQuestions:  len(questionIDs),
		TotalMarks:      totalMarks,
		DurationMinutes: durationFor(exam, len(questionIDs)),
	}
	return s.testInstanceRepo.Create(ctx, nil, instance)
}

func (s *testService) CreateCustom(ctx context.Context, userID uuid.UUID, req CustomTestRequest) (*types.TestInstance, error) {
	if req.Count <= 0 {
		return nil, apierr.Validation("count must be positive")
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		return nil, apierr.Validation("unknown difficulty %q", req.Difficulty)
	}
	exam, err := s.examRepo.GetByID(ctx, nil, req.ExamID)
	if err != nil {
		return nil, err
	}

	var questions []*types.Question
	switch {
	case len(req.SubtopicIDs) > 0:
		questions, err = s.questionRepo.RandomBySubtopics(ctx, nil, req.SubtopicIDs, req.Difficulty, req.Count, nil)
	case len(req.TopicIDs) > 0:
		var difficulties []types.Difficulty
		if req.Difficulty != "" {
			difficulties = []types.Difficulty{req.Difficulty}
		}
		questions, err = s.questionRepo.RandomByTopicDifficulties(ctx, nil, req.TopicIDs, difficulties, req.Count, nil)
	default:
		questions, err = s.questionRepo.RandomByExam(ctx, nil, req.ExamID, req.Count, nil)
	}
	if err != nil {
		return nil, err
	}
	if len(questions) < req.Count {
		return nil, apierr.InsufficientCandidates("only %d questions match the requested criteria, need %d", len(questions), req.Count)
	}

	ids := make([]uuid.UUID, req.Count)
	for i := 0; i < req.Count; i++ {
		ids[i] = questions[i].ID
	}
	return s.create(ctx, userID, exam, types.TestKindCustom, ids)
}

func (s *testService) CreateRevision(ctx context.Context, userID, examID uuid.UUID, count int) (*types.TestInstance, error) {
	if count <= 0 {
		return nil, apierr.Validation("count must be positive")
	}
	exam, err := s.examRepo.GetByID(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	ids, err := s.poolBuilder.BuildRevision(ctx, userID, examID, count)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, userID, exam, types.TestKindRevision, ids)
}

func (s *testService) CreatePYQ(ctx context.Context, userID, examID, sessionID uuid.UUID) (*types.TestInstance, error) {
	exam, err := s.examRepo.GetByID(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	session, err := s.examRepo.GetSessionByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ExamID != examID {
		return nil, apierr.Validation("session %s does not belong to exam %s", sessionID, examID)
	}
	questions, err := s.questionRepo.BySession(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, apierr.InsufficientCandidates("session %s has no questions", sessionID)
	}
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return s.create(ctx, userID, exam, types.TestKindPYQ, ids)
}

// CreateSmartMock runs the adaptive path when the user has unlocked
// it, and degrades to the deterministic diagnostic on any oracle or
// pool failure. Generation never surfaces an oracle error to the user.
func (s *testService) CreateSmartMock(ctx context.Context, userID, examID uuid.UUID) (*SmartMockResult, error) {
	exam, err := s.examRepo.GetByID(ctx, nil, examID)
	if err != nil {
		return nil, err
	}

	completed, err := s.testInstanceRepo.CountCompletedByUserExam(ctx, nil, userID, examID)
	if err != nil {
		return nil, err
	}
	if int(completed) < s.cfg.AdaptiveUnlockTests {
		instance, err := s.createDiagnostic(ctx, userID, exam)
		if err != nil {
			return nil, err
		}
		return &SmartMockResult{
			Instance:              instance,
			Mode:                  types.TestKindDiagnostic,
			AttemptsUntilAdaptive: s.cfg.AdaptiveUnlockTests - int(completed),
		}, nil
	}

	instance, err := s.createAdaptive(ctx, userID, examID, exam)
	if err == nil {
		return &SmartMockResult{Instance: instance, Mode: types.TestKindMock}, nil
	}
	if !apierr.Is(err, apierr.CodeOracleFailure) && !apierr.Is(err, apierr.CodeInsufficientCandidates) {
		return nil, err
	}

	s.log.Warn("Adaptive generation degraded to diagnostic", "user_id", userID, "exam_id", examID, "error", err)
	fallback, fbErr := s.createDiagnostic(ctx, userID, exam)
	if fbErr != nil {
		return nil, fbErr
	}
	return &SmartMockResult{Instance: fallback, Mode: types.TestKindDiagnostic, Degraded: true}, nil
}

func (s *testService) createDiagnostic(ctx context.Context, userID uuid.UUID, exam *types.Exam) (*types.TestInstance, error) {
	ids, err := s.poolBuilder.BuildWeightage(ctx, exam.ID, exam.TotalQuestions)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, userID, exam, types.TestKindDiagnostic, ids)
}

func (s *testService) createAdaptive(ctx context.Context, userID, examID uuid.UUID, exam *types.Exam) (*types.TestInstance, error) {
	profile, err := s.profiles.BuildReadinessProfile(ctx, userID, examID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.poolBuilder.BuildAdaptive(ctx, profile)
	if err != nil {
		return nil, err
	}
	selected, err := s.curator.RankedSelection(ctx, profile, candidates, exam.TotalQuestions)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, userID, exam, types.TestKindMock, selected)
}

func (s *testService) GetForTaking(ctx context.Context, userID, instanceID uuid.UUID) (*TestTakingView, error) {
	instance, err := s.testInstanceRepo.GetByIDForUser(ctx, nil, instanceID, userID)
	if err != nil {
		return nil, err
	}
	if instance.Completed() {
		return nil, apierr.New(http.StatusForbidden, apierr.CodeAlreadyCompleted, errors.New("test instance is already completed"))
	}

	questions, err := s.questionRepo.GetByIDs(ctx, nil, instance.QuestionIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	view := &TestTakingView{Instance: instance}
	for _, id := range instance.QuestionIDs {
		q := byID[id]
		if q == nil {
			continue
		}
		view.Questions = append(view.Questions, TakingQuestion{
			ID:         q.ID,
			Text:       q.Text,
			Options:    json.RawMessage(q.Options),
			Difficulty: q.Difficulty,
		})
	}
	return view, nil
}

func (s *testService) RecordProgress(ctx context.Context, userID, instanceID, questionID uuid.UUID, answer string, timeDeltaSec int) error {
	instance, err := s.testInstanceRepo.GetByIDForUser(ctx, nil, instanceID, userID)
	if err != nil {
		return err
	}
	if instance.Completed() {
		return apierr.AlreadyCompleted("test instance %s is already completed", instanceID)
	}
	return s.progressBuffer.RecordPartial(ctx, instanceID, questionID, answer, timeDeltaSec)
}

// ReadProgress treats a completed instance's buffer as absent even if
// it has not been physically cleared yet.
func (s *testService) ReadProgress(ctx context.Context, userID, instanceID uuid.UUID) (*types.TestProgress, error) {
	instance, err := s.testInstanceRepo.GetByIDForUser(ctx, nil, instanceID, userID)
	if err != nil {
		return nil, err
	}
	if instance.Completed() {
		return &types.TestProgress{TestInstanceID: instanceID}, nil
	}
	return s.progressBuffer.ReadAll(ctx, instanceID)
}

func (s *testService) Review(ctx context.Context, userID, instanceID uuid.UUID) (*TestReview, error) {
	instance, err := s.testInstanceRepo.GetByIDForUser(ctx, nil, instanceID, userID)
	if err != nil {
		return nil, err
	}
	if !instance.Completed() {
		return nil, apierr.Validation("test instance %s is not completed yet", instanceID)
	}

	questions, err := s.questionRepo.GetByIDs(ctx, nil, instance.QuestionIDs)
	if err != nil {
		return nil, err
	}
	answers, err := s.testAnswerRepo.ListByInstance(ctx, nil, instanceID)
	if err != nil {
		return nil, err
	}

	questionByID := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}
	answerByQuestion := make(map[uuid.UUID]*types.TestAnswer, len(answers))
	for _, a := range answers {
		answerByQuestion[a.QuestionID] = a
	}

	review := &TestReview{Instance: instance}
	for _, id := range instance.QuestionIDs {
		q := questionByID[id]
		if q == nil {
			continue
		}
		item := ReviewItem{
			QuestionID:    q.ID,
			Text:          q.Text,
			Options:       json.RawMessage(q.Options),
			CorrectOption: q.CorrectOption,
			Solution:      q.Solution,
		}
		if a := answerByQuestion[id]; a != nil {
			item.UserAnswer = a.Answer
			item.Attempted = a.Attempted
			item.IsCorrect = a.IsCorrect
			item.TimeTakenSec = a.TimeTakenSec
			item.MarksAwarded = a.MarksAwarded
		}
		review.Items = append(review.Items, item)
	}
	return review, nil
}
