package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

type TestAnswerRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*types.TestAnswer) error
	ListByInstance(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) ([]*types.TestAnswer, error)
	MistakeQuestionIDs(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]uuid.UUID, error)
	MistakeQuestionsWithEmbeddings(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]*types.Question, error)
}

type testAnswerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestAnswerRepo(db *gorm.DB, baseLog *logger.Logger) TestAnswerRepo {
	return &testAnswerRepo{db: db, log: baseLog.With("repo", "TestAnswerRepo")}
}

func (r *testAnswerRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *testAnswerRepo) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*types.TestAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Create(&answers).Error
}

func (r *testAnswerRepo) ListByInstance(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) ([]*types.TestAnswer, error) {
	var answers []*types.TestAnswer
	if err := r.conn(tx).WithContext(ctx).
		Where("test_instance_id = ?", instanceID).
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

// MistakeQuestionIDs returns the user's mistake bank for an exam:
// distinct previously-incorrect question ids, most recent mistake
// first. The scan comes back in recency order with repeats (a question
// can be missed across several tests); dedup keeps the first sighting
// so the cap takes the n most recent distinct mistakes.
func (r *testAnswerRepo) MistakeQuestionIDs(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	if err := r.conn(tx).WithContext(ctx).
		Table("test_answer").
		Select("test_answer.question_id").
		Joins("JOIN test_instance ON test_instance.id = test_answer.test_instance_id").
		Where("test_answer.user_id = ? AND test_instance.exam_id = ?", userID, examID).
		Where("test_answer.attempted = TRUE AND test_answer.is_correct = FALSE").
		Order("test_answer.created_at DESC").
		Scan(&ids).Error; err != nil {
		return nil, err
	}
	return dedupFirstSeen(ids, limit), nil
}

// MistakeQuestionsWithEmbeddings loads the most recent mistakes that
// carry an embedding vector, for centroid-based similarity pooling.
// Recency and dedup semantics match MistakeQuestionIDs.
func (r *testAnswerRepo) MistakeQuestionsWithEmbeddings(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]*types.Question, error) {
	if limit <= 0 {
		return []*types.Question{}, nil
	}
	var questions []*types.Question
	if err := r.conn(tx).WithContext(ctx).
		Table("question").
		Select("question.*").
		Joins("JOIN test_answer ON test_answer.question_id = question.id").
		Joins("JOIN test_instance ON test_instance.id = test_answer.test_instance_id").
		Where("test_answer.user_id = ? AND test_instance.exam_id = ?", userID, examID).
		Where("test_answer.attempted = TRUE AND test_answer.is_correct = FALSE").
		Where("question.embedding IS NOT NULL").
		Order("test_answer.created_at DESC").
		Scan(&questions).Error; err != nil {
		return nil, err
	}
	return dedupQuestionsFirstSeen(questions, limit), nil
}

// dedupFirstSeen keeps the first occurrence of each id in input order
// and caps the result at limit.
func dedupFirstSeen(ids []uuid.UUID, limit int) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, limit)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out
}

func dedupQuestionsFirstSeen(questions []*types.Question, limit int) []*types.Question {
	seen := make(map[uuid.UUID]bool, len(questions))
	out := make([]*types.Question, 0, limit)
	for _, q := range questions {
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}
