package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

type TaxonomyRepo interface {
	TopicsForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Topic, error)
	TopicsByIDs(ctx context.Context, tx *gorm.DB, topicIDs []uuid.UUID) ([]*types.Topic, error)
	SubjectsForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Subject, error)
	SubtopicsByTopicIDs(ctx context.Context, tx *gorm.DB, topicIDs []uuid.UUID) ([]*types.Subtopic, error)
	SetTopicAvgAccuracy(ctx context.Context, tx *gorm.DB, topicID uuid.UUID, avg float64) error
	SetSubtopicAvgAccuracy(ctx context.Context, tx *gorm.DB, subtopicID uuid.UUID, avg float64) error
	SetSubjectAvgAccuracy(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, avg float64) error
}

type taxonomyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaxonomyRepo(db *gorm.DB, baseLog *logger.Logger) TaxonomyRepo {
	return &taxonomyRepo{db: db, log: baseLog.With("repo", "TaxonomyRepo")}
}

func (r *taxonomyRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// TopicsForExam returns every topic of the exam in a stable order so
// ties in downstream ranking break deterministically.
func (r *taxonomyRepo) TopicsForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Topic, error) {
	var topics []*types.Topic
	if err := r.conn(tx).WithContext(ctx).
		Joins("JOIN subject ON subject.id = topic.subject_id").
		Where("subject.exam_id = ?", examID).
		Order("topic.created_at ASC, topic.id ASC").
		Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *taxonomyRepo) TopicsByIDs(ctx context.Context, tx *gorm.DB, topicIDs []uuid.UUID) ([]*types.Topic, error) {
	var topics []*types.Topic
	if len(topicIDs) == 0 {
		return topics, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("id IN ?", topicIDs).
		Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *taxonomyRepo) SubjectsForExam(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.Subject, error) {
	var subjects []*types.Subject
	if err := r.conn(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("created_at ASC").
		Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *taxonomyRepo) SubtopicsByTopicIDs(ctx context.Context, tx *gorm.DB, topicIDs []uuid.UUID) ([]*types.Subtopic, error) {
	var subtopics []*types.Subtopic
	if len(topicIDs) == 0 {
		return subtopics, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("topic_id IN ?", topicIDs).
		Find(&subtopics).Error; err != nil {
		return nil, err
	}
	return subtopics, nil
}

func (r *taxonomyRepo) SetTopicAvgAccuracy(ctx context.Context, tx *gorm.DB, topicID uuid.UUID, avg float64) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Topic{}).
		Where("id = ?", topicID).
		Update("avg_accuracy_percent", avg).Error
}

func (r *taxonomyRepo) SetSubtopicAvgAccuracy(ctx context.Context, tx *gorm.DB, subtopicID uuid.UUID, avg float64) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Subtopic{}).
		Where("id = ?", subtopicID).
		Update("avg_accuracy_percent", avg).Error
}

func (r *taxonomyRepo) SetSubjectAvgAccuracy(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, avg float64) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Subject{}).
		Where("id = ?", subjectID).
		Update("avg_accuracy_percent", avg).Error
}
