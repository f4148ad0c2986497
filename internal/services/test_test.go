package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/repos"
	"github.com/prepwise/prepwise-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

// Fakes embed the interface they stand in for; calling an overridden
// method works, anything else panics and fails the test loudly.

type fakeExamRepo struct {
	repos.ExamRepo
	exam    *types.Exam
	session *types.ExamSession
}

func (f *fakeExamRepo) GetByID(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.Exam, error) {
	if f.exam == nil || f.exam.ID != examID {
		return nil, apierr.NotFound("exam %s not found", examID)
	}
	return f.exam, nil
}

func (f *fakeExamRepo) GetSessionByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.ExamSession, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, apierr.NotFound("exam session %s not found", sessionID)
	}
	return f.session, nil
}

type fakeQuestionRepo struct {
	repos.QuestionRepo
	byExam    []*types.Question
	bySession []*types.Question
}

func (f *fakeQuestionRepo) RandomByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, limit int, exclude []uuid.UUID) ([]*types.Question, error) {
	if limit > len(f.byExam) {
		limit = len(f.byExam)
	}
	return f.byExam[:limit], nil
}

func (f *fakeQuestionRepo) BySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Question, error) {
	return f.bySession, nil
}

type fakeInstanceRepo struct {
	repos.TestInstanceRepo
	completedCount int64
	stored         *types.TestInstance
	lookup         *types.TestInstance
}

func (f *fakeInstanceRepo) Create(ctx context.Context, tx *gorm.DB, instance *types.TestInstance) (*types.TestInstance, error) {
	instance.ID = uuid.New()
	f.stored = instance
	return instance, nil
}

func (f *fakeInstanceRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, instanceID, userID uuid.UUID) (*types.TestInstance, error) {
	if f.lookup == nil || f.lookup.ID != instanceID || f.lookup.UserID != userID {
		return nil, apierr.NotFound("test instance %s not found", instanceID)
	}
	return f.lookup, nil
}

func (f *fakeInstanceRepo) CountCompletedByUserExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) (int64, error) {
	return f.completedCount, nil
}

type fakePoolBuilder struct {
	weightageIDs []uuid.UUID
	candidates   []types.CandidateQuestion
	adaptiveErr  error
}

func (f *fakePoolBuilder) BuildWeightage(ctx context.Context, examID uuid.UUID, totalQuestions int) ([]uuid.UUID, error) {
	return f.weightageIDs, nil
}

func (f *fakePoolBuilder) BuildRevision(ctx context.Context, userID, examID uuid.UUID, totalQuestions int) ([]uuid.UUID, error) {
	return f.weightageIDs, nil
}

func (f *fakePoolBuilder) BuildAdaptive(ctx context.Context, profile *types.ReadinessProfile) ([]types.CandidateQuestion, error) {
	if f.adaptiveErr != nil {
		return nil, f.adaptiveErr
	}
	return f.candidates, nil
}

type fakeCurator struct {
	selection []uuid.UUID
	err       error
}

func (f *fakeCurator) RankedSelection(ctx context.Context, profile *types.ReadinessProfile, candidates []types.CandidateQuestion, n int) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.selection, nil
}

type fakeProfiles struct{}

func (fakeProfiles) BuildReadinessProfile(ctx context.Context, userID, examID uuid.UUID) (*types.ReadinessProfile, error) {
	return &types.ReadinessProfile{UserID: userID, ExamID: examID, Tier: types.TierIntermediate}, nil
}

type fakeBuffer struct {
	ProgressBufferService
	recorded int
	progress *types.TestProgress
}

func (f *fakeBuffer) RecordPartial(ctx context.Context, testInstanceID, questionID uuid.UUID, answer string, timeDeltaSec int) error {
	f.recorded++
	return nil
}

func (f *fakeBuffer) ReadAll(ctx context.Context, testInstanceID uuid.UUID) (*types.TestProgress, error) {
	if f.progress != nil {
		return f.progress, nil
	}
	return &types.TestProgress{TestInstanceID: testInstanceID}, nil
}

type smartMockFixture struct {
	svc       *testService
	exam      *types.Exam
	instances *fakeInstanceRepo
	pool      *fakePoolBuilder
	curator   *fakeCurator
	buffer    *fakeBuffer
}

func newSmartMockFixture(t *testing.T) *smartMockFixture {
	t.Helper()
	exam := &types.Exam{
		ID:              uuid.New(),
		TotalQuestions:  5,
		DurationMinutes: 10,
		MarksPerCorrect: 4,
	}
	weightageIDs := make([]uuid.UUID, exam.TotalQuestions)
	candidates := make([]types.CandidateQuestion, exam.TotalQuestions*2)
	for i := range weightageIDs {
		weightageIDs[i] = uuid.New()
	}
	for i := range candidates {
		candidates[i] = types.CandidateQuestion{QuestionID: uuid.New()}
	}
	selection := make([]uuid.UUID, exam.TotalQuestions)
	for i := range selection {
		selection[i] = candidates[i].QuestionID
	}

	f := &smartMockFixture{
		exam:      exam,
		instances: &fakeInstanceRepo{},
		pool:      &fakePoolBuilder{weightageIDs: weightageIDs, candidates: candidates},
		curator:   &fakeCurator{selection: selection},
		buffer:    &fakeBuffer{},
	}
	f.svc = &testService{
		log:              newTestLogger(t).With("service", "TestService"),
		cfg:              testGenerationConfig(),
		examRepo:         &fakeExamRepo{exam: exam},
		questionRepo:     &fakeQuestionRepo{},
		testInstanceRepo: f.instances,
		poolBuilder:      f.pool,
		curator:          f.curator,
		profiles:         fakeProfiles{},
		progressBuffer:   f.buffer,
	}
	return f
}

func TestCreateSmartMockColdStart(t *testing.T) {
	f := newSmartMockFixture(t)
	f.instances.completedCount = 1

	result, err := f.svc.CreateSmartMock(context.Background(), uuid.New(), f.exam.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Mode != types.TestKindDiagnostic || result.Degraded {
		t.Fatalf("cold start should produce a clean diagnostic: %+v", result)
	}
	if result.AttemptsUntilAdaptive != 2 {
		t.Fatalf("expected 2 attempts until adaptive, got %d", result.AttemptsUntilAdaptive)
	}
	if result.Instance.Kind != types.TestKindDiagnostic {
		t.Fatalf("instance kind should be diagnostic, got %s", result.Instance.Kind)
	}
	if result.Instance.TotalMarks != float64(f.exam.TotalQuestions)*f.exam.MarksPerCorrect {
		t.Fatalf("diagnostic should carry exam marking, got %v", result.Instance.TotalMarks)
	}
}

func TestCreateSmartMockAdaptive(t *testing.T) {
	f := newSmartMockFixture(t)
	f.instances.completedCount = 3

	result, err := f.svc.CreateSmartMock(context.Background(), uuid.New(), f.exam.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Mode != types.TestKindMock || result.Degraded {
		t.Fatalf("expected a clean adaptive mock: %+v", result)
	}
	if len(result.Instance.QuestionIDs) != f.exam.TotalQuestions {
		t.Fatalf("expected %d questions, got %d", f.exam.TotalQuestions, len(result.Instance.QuestionIDs))
	}
}

func TestCreateSmartMockDegradesOnOracleFailure(t *testing.T) {
	f := newSmartMockFixture(t)
	f.instances.completedCount = 5
	f.curator.err = apierr.OracleFailure("oracle returned garbage")

	result, err := f.svc.CreateSmartMock(context.Background(), uuid.New(), f.exam.ID)
	if err != nil {
		t.Fatalf("oracle failure must not surface: %v", err)
	}
	if result.Mode != types.TestKindDiagnostic || !result.Degraded {
		t.Fatalf("expected a degraded diagnostic: %+v", result)
	}
	if result.AttemptsUntilAdaptive != 0 {
		t.Fatalf("degraded unlock count should stay zero, got %d", result.AttemptsUntilAdaptive)
	}
}

func TestCreateSmartMockDegradesOnThinPool(t *testing.T) {
	f := newSmartMockFixture(t)
	f.instances.completedCount = 3
	f.pool.adaptiveErr = apierr.InsufficientCandidates("pool is empty")

	result, err := f.svc.CreateSmartMock(context.Background(), uuid.New(), f.exam.ID)
	if err != nil {
		t.Fatalf("thin pool must not surface: %v", err)
	}
	if result.Mode != types.TestKindDiagnostic || !result.Degraded {
		t.Fatalf("expected a degraded diagnostic: %+v", result)
	}
}

func TestCreateSmartMockPropagatesOtherErrors(t *testing.T) {
	f := newSmartMockFixture(t)
	f.instances.completedCount = 3
	f.pool.adaptiveErr = errors.New("connection refused")

	if _, err := f.svc.CreateSmartMock(context.Background(), uuid.New(), f.exam.ID); err == nil {
		t.Fatalf("infrastructure errors must not degrade silently")
	}
}

func TestDurationFor(t *testing.T) {
	exam := &types.Exam{TotalQuestions: 100, DurationMinutes: 180}
	if got := durationFor(exam, 50); got != 90 {
		t.Fatalf("expected 90 minutes for half the exam, got %d", got)
	}
	if got := durationFor(exam, 10); got != 18 {
		t.Fatalf("expected 18 minutes, got %d", got)
	}
	// Fractional budgets round up.
	if got := durationFor(&types.Exam{TotalQuestions: 80, DurationMinutes: 180}, 7); got != 16 {
		t.Fatalf("expected ceil(15.75) = 16, got %d", got)
	}
	if got := durationFor(&types.Exam{}, 25); got != 25 {
		t.Fatalf("unconfigured exam should fall back to a minute per question, got %d", got)
	}
}

func TestCreateCustomValidation(t *testing.T) {
	f := newSmartMockFixture(t)
	userID := uuid.New()

	if _, err := f.svc.CreateCustom(context.Background(), userID, CustomTestRequest{ExamID: f.exam.ID, Count: 0}); !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("zero count should fail validation, got %v", err)
	}
	req := CustomTestRequest{ExamID: f.exam.ID, Count: 5, Difficulty: "brutal"}
	if _, err := f.svc.CreateCustom(context.Background(), userID, req); !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("unknown difficulty should fail validation, got %v", err)
	}
}

func TestCreateCustomFlatMarksAndShortPool(t *testing.T) {
	f := newSmartMockFixture(t)
	questions := make([]*types.Question, 3)
	for i := range questions {
		questions[i] = &types.Question{ID: uuid.New()}
	}
	f.svc.questionRepo = &fakeQuestionRepo{byExam: questions}

	if _, err := f.svc.CreateCustom(context.Background(), uuid.New(), CustomTestRequest{ExamID: f.exam.ID, Count: 5}); !apierr.Is(err, apierr.CodeInsufficientCandidates) {
		t.Fatalf("short pool should report insufficient candidates, got %v", err)
	}

	instance, err := f.svc.CreateCustom(context.Background(), uuid.New(), CustomTestRequest{ExamID: f.exam.ID, Count: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instance.Kind != types.TestKindCustom {
		t.Fatalf("expected custom kind, got %s", instance.Kind)
	}
	if instance.TotalMarks != 3 {
		t.Fatalf("custom tests carry a flat point per question, got %v", instance.TotalMarks)
	}
}

func TestCreatePYQSessionMismatch(t *testing.T) {
	f := newSmartMockFixture(t)
	session := &types.ExamSession{ID: uuid.New(), ExamID: uuid.New(), Label: "2024 Shift 1"}
	f.svc.examRepo = &fakeExamRepo{exam: f.exam, session: session}

	if _, err := f.svc.CreatePYQ(context.Background(), uuid.New(), f.exam.ID, session.ID); !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("session from another exam should fail validation, got %v", err)
	}
}

func TestRecordProgressGuards(t *testing.T) {
	f := newSmartMockFixture(t)
	userID := uuid.New()
	instance := &types.TestInstance{ID: uuid.New(), UserID: userID, Kind: types.TestKindMock}
	f.instances.lookup = instance

	if err := f.svc.RecordProgress(context.Background(), userID, instance.ID, uuid.New(), "a", 10); err != nil {
		t.Fatalf("open instance should accept progress: %v", err)
	}
	if f.buffer.recorded != 1 {
		t.Fatalf("progress should reach the buffer, got %d writes", f.buffer.recorded)
	}

	// A foreign user sees not_found, never someone else's instance.
	if err := f.svc.RecordProgress(context.Background(), uuid.New(), instance.ID, uuid.New(), "a", 10); !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("foreign instance should look missing, got %v", err)
	}

	now := instance.CreatedAt
	instance.CompletedAt = &now
	if err := f.svc.RecordProgress(context.Background(), userID, instance.ID, uuid.New(), "a", 10); !apierr.Is(err, apierr.CodeAlreadyCompleted) {
		t.Fatalf("completed instance should reject progress, got %v", err)
	}
}
