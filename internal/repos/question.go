package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

// QuestionRepo is the read-only catalog accessor. The engine never
// writes questions.
type QuestionRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.Question, error)
	RandomByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, limit int, exclude []uuid.UUID) ([]*types.Question, error)
	RandomByTopic(ctx context.Context, tx *gorm.DB, topicID uuid.UUID, limit int, exclude []uuid.UUID) ([]*types.Question, error)
	RandomByTopicDifficulties(ctx context.Context, tx *gorm.DB, topicIDs []uuid.UUID, difficulties []types.Difficulty, limit int, exclude []uuid.UUID) ([]*types.Question, error)
	RandomBySubtopics(ctx context.Context, tx *gorm.DB, subtopicIDs []uuid.UUID, difficulty types.Difficulty, limit int, exclude []uuid.UUID) ([]*types.Question, error)
	BySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Question, error)
	ResolvePaths(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]types.QuestionPath, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *questionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]*types.Question, error) {
	var results []*types.Question
	if len(questionIDs) == 0 {
		return results, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("id IN ?", questionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) RandomByExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID, limit int, exclude []uuid.UUID) ([]*types.Question, error) {
	if limit <= 0 {
		return []*types.Question{}, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Where("exam_id = ?", examID)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var results []*types.Question
	if err := q.Order("RANDOM()").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) RandomByTopic(ctx context.Context, tx *gorm.DB, topicID uuid.UUID, limit int, exclude []uuid.UUID) ([]*types.Question, error) {
	if limit <= 0 {
		return []*types.Question{}, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Joins("JOIN subtopic ON subtopic.id = question.subtopic_id").
		Where("subtopic.topic_id = ?", topicID)
	if len(exclude) > 0 {
		q = q.Where("question.id NOT IN ?", exclude)
	}
	var results []*types.Question
	if err := q.Order("RANDOM()").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) RandomByTopicDifficulties(ctx context.Context, tx *gorm.DB, topicIDs []uuid.UUID, difficulties []types.Difficulty, limit int, exclude []uuid.UUID) ([]*types.Question, error) {
	if limit <= 0 || len(topicIDs) == 0 {
		return []*types.Question{}, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Joins("JOIN subtopic ON subtopic.id = question.subtopic_id").
		Where("subtopic.topic_id IN ?", topicIDs)
	if len(difficulties) > 0 {
		q = q.Where("question.difficulty IN ?", difficulties)
	}
	if len(exclude) > 0 {
		q = q.Where("question.id NOT IN ?", exclude)
	}
	var results []*types.Question
	if err := q.Order("RANDOM()").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) RandomBySubtopics(ctx context.Context, tx *gorm.DB, subtopicIDs []uuid.UUID, difficulty types.Difficulty, limit int, exclude []uuid.UUID) ([]*types.Question, error) {
	if limit <= 0 || len(subtopicIDs) == 0 {
		return []*types.Question{}, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Where("subtopic_id IN ?", subtopicIDs)
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var results []*types.Question
	if err := q.Order("RANDOM()").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) BySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Question, error) {
	var results []*types.Question
	if err := r.conn(tx).WithContext(ctx).
		Where("exam_session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ResolvePaths returns the full dimensional lineage for each question
// in one query. The submission engine addresses every aggregate row it
// touches from these paths.
func (r *questionRepo) ResolvePaths(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) ([]types.QuestionPath, error) {
	var paths []types.QuestionPath
	if len(questionIDs) == 0 {
		return paths, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Table("question").
		Select("question.id AS question_id, question.subtopic_id, subtopic.topic_id, topic.subject_id, question.difficulty").
		Joins("JOIN subtopic ON subtopic.id = question.subtopic_id").
		Joins("JOIN topic ON topic.id = subtopic.topic_id").
		Where("question.id IN ?", questionIDs).
		Scan(&paths).Error; err != nil {
		return nil, err
	}
	return paths, nil
}
