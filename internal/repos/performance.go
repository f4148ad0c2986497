package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

// PerformanceRepo owns every rolling aggregate granularity. Each Apply*
// method is the same routine against a different table: lock or create
// the row, add the delta, recompute the derived fields from the new
// totals. Races between users on a shared dimension are settled by the
// row lock inside the caller's transaction.
type PerformanceRepo interface {
	ApplySubtopicDelta(ctx context.Context, tx *gorm.DB, userID, subtopicID uuid.UUID, delta types.PerformanceDelta) error
	ApplyTopicDelta(ctx context.Context, tx *gorm.DB, userID, topicID uuid.UUID, delta types.PerformanceDelta) error
	ApplyTopicDifficultyDelta(ctx context.Context, tx *gorm.DB, userID, topicID uuid.UUID, difficulty types.Difficulty, delta types.PerformanceDelta) error
	ApplySubjectDelta(ctx context.Context, tx *gorm.DB, userID, subjectID uuid.UUID, delta types.PerformanceDelta) error
	ApplyOverallDelta(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, delta types.PerformanceDelta, testsCompletedInc int) error

	GetOverall(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) (*types.UserOverallPerformance, error)
	TopicPerformanceForExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) ([]*types.TopicPerformance, error)
	TopicDifficultyPerformanceForExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) ([]*types.TopicDifficultyPerformance, error)
	SubjectPerformanceForUser(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) ([]*types.SubjectPerformance, error)
	SubtopicPerformanceForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, subtopicIDs []uuid.UUID) ([]*types.SubtopicPerformance, error)
	WeakestTopicIDs(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]uuid.UUID, error)

	GlobalTopicAvgAccuracy(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) (float64, error)
	GlobalSubtopicAvgAccuracy(ctx context.Context, tx *gorm.DB, subtopicID uuid.UUID) (float64, error)
	GlobalSubjectAvgAccuracy(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) (float64, error)
}

type performanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPerformanceRepo(db *gorm.DB, baseLog *logger.Logger) PerformanceRepo {
	return &performanceRepo{db: db, log: baseLog.With("repo", "PerformanceRepo")}
}

func (r *performanceRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// lockRow fetches dest under FOR UPDATE. Returns gorm.ErrRecordNotFound
// when the row does not exist yet.
func lockRow(ctx context.Context, conn *gorm.DB, dest interface{}, query string, args ...interface{}) error {
	return conn.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(query, args...).
		First(dest).Error
}

func (r *performanceRepo) ApplySubtopicDelta(ctx context.Context, tx *gorm.DB, userID, subtopicID uuid.UUID, delta types.PerformanceDelta) error {
	if delta.IsZero() {
		return nil
	}
	conn := r.conn(tx)
	var row types.SubtopicPerformance
	err := lockRow(ctx, conn, &row, "user_id = ? AND subtopic_id = ?", userID, subtopicID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = types.SubtopicPerformance{UserID: userID, SubtopicID: subtopicID}
		err = nil
	}
	if err != nil {
		return err
	}
	row.Apply(delta)
	return conn.WithContext(ctx).Save(&row).Error
}

func (r *performanceRepo) ApplyTopicDelta(ctx context.Context, tx *gorm.DB, userID, topicID uuid.UUID, delta types.PerformanceDelta) error {
	if delta.IsZero() {
		return nil
	}
	conn := r.conn(tx)
	var row types.TopicPerformance
	err := lockRow(ctx, conn, &row, "user_id = ? AND topic_id = ?", userID, topicID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = types.TopicPerformance{UserID: userID, TopicID: topicID}
		err = nil
	}
	if err != nil {
		return err
	}
	row.Apply(delta)
	return conn.WithContext(ctx).Save(&row).Error
}

func (r *performanceRepo) ApplyTopicDifficultyDelta(ctx context.Context, tx *gorm.DB, userID, topicID uuid.UUID, difficulty types.Difficulty, delta types.PerformanceDelta) error {
	if delta.IsZero() {
		return nil
	}
	conn := r.conn(tx)
	var row types.TopicDifficultyPerformance
	err := lockRow(ctx, conn, &row, "user_id = ? AND topic_id = ? AND difficulty = ?", userID, topicID, difficulty)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = types.TopicDifficultyPerformance{UserID: userID, TopicID: topicID, Difficulty: difficulty}
		err = nil
	}
	if err != nil {
		return err
	}
	row.Apply(delta)
	return conn.WithContext(ctx).Save(&row).Error
}

func (r *performanceRepo) ApplySubjectDelta(ctx context.Context, tx *gorm.DB, userID, subjectID uuid.UUID, delta types.PerformanceDelta) error {
	if delta.IsZero() {
		return nil
	}
	conn := r.conn(tx)
	var row types.SubjectPerformance
	err := lockRow(ctx, conn, &row, "user_id = ? AND subject_id = ?", userID, subjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = types.SubjectPerformance{UserID: userID, SubjectID: subjectID}
		err = nil
	}
	if err != nil {
		return err
	}
	row.Apply(delta)
	return conn.WithContext(ctx).Save(&row).Error
}

func (r *performanceRepo) ApplyOverallDelta(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, delta types.PerformanceDelta, testsCompletedInc int) error {
	conn := r.conn(tx)
	var row types.UserOverallPerformance
	err := lockRow(ctx, conn, &row, "user_id = ? AND exam_id = ?", userID, examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = types.UserOverallPerformance{UserID: userID, ExamID: examID}
		err = nil
	}
	if err != nil {
		return err
	}
	row.Apply(delta)
	row.TestsCompleted += testsCompletedInc
	return conn.WithContext(ctx).Save(&row).Error
}

func (r *performanceRepo) GetOverall(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) (*types.UserOverallPerformance, error) {
	var row types.UserOverallPerformance
	err := r.conn(tx).WithContext(ctx).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *performanceRepo) TopicPerformanceForExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) ([]*types.TopicPerformance, error) {
	var rows []*types.TopicPerformance
	if err := r.conn(tx).WithContext(ctx).
		Joins("JOIN topic ON topic.id = topic_performance.topic_id").
		Joins("JOIN subject ON subject.id = topic.subject_id").
		Where("topic_performance.user_id = ? AND subject.exam_id = ?", userID, examID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *performanceRepo) TopicDifficultyPerformanceForExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) ([]*types.TopicDifficultyPerformance, error) {
	var rows []*types.TopicDifficultyPerformance
	if err := r.conn(tx).WithContext(ctx).
		Joins("JOIN topic ON topic.id = topic_difficulty_performance.topic_id").
		Joins("JOIN subject ON subject.id = topic.subject_id").
		Where("topic_difficulty_performance.user_id = ? AND subject.exam_id = ?", userID, examID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *performanceRepo) SubjectPerformanceForUser(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) ([]*types.SubjectPerformance, error) {
	var rows []*types.SubjectPerformance
	if err := r.conn(tx).WithContext(ctx).
		Joins("JOIN subject ON subject.id = subject_performance.subject_id").
		Where("subject_performance.user_id = ? AND subject.exam_id = ?", userID, examID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *performanceRepo) SubtopicPerformanceForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, subtopicIDs []uuid.UUID) ([]*types.SubtopicPerformance, error) {
	var rows []*types.SubtopicPerformance
	q := r.conn(tx).WithContext(ctx).Where("user_id = ?", userID)
	if len(subtopicIDs) > 0 {
		q = q.Where("subtopic_id IN ?", subtopicIDs)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// WeakestTopicIDs orders by accuracy ascending with created_at as the
// deterministic tie-break.
func (r *performanceRepo) WeakestTopicIDs(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	if err := r.conn(tx).WithContext(ctx).
		Table("topic_performance").
		Select("topic_performance.topic_id").
		Joins("JOIN topic ON topic.id = topic_performance.topic_id").
		Joins("JOIN subject ON subject.id = topic.subject_id").
		Where("topic_performance.user_id = ? AND subject.exam_id = ?", userID, examID).
		Where("topic_performance.total_attempted > 0").
		Order("topic_performance.accuracy_percent ASC, topic_performance.created_at ASC").
		Limit(limit).
		Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *performanceRepo) globalAvg(ctx context.Context, tx *gorm.DB, table, keyCol string, id uuid.UUID) (float64, error) {
	var avg *float64
	if err := r.conn(tx).WithContext(ctx).
		Table(table).
		Select("AVG(accuracy_percent)").
		Where(keyCol+" = ? AND total_attempted > 0 AND deleted_at IS NULL", id).
		Scan(&avg).Error; err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (r *performanceRepo) GlobalTopicAvgAccuracy(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) (float64, error) {
	return r.globalAvg(ctx, tx, "topic_performance", "topic_id", topicID)
}

func (r *performanceRepo) GlobalSubtopicAvgAccuracy(ctx context.Context, tx *gorm.DB, subtopicID uuid.UUID) (float64, error) {
	return r.globalAvg(ctx, tx, "subtopic_performance", "subtopic_id", subtopicID)
}

func (r *performanceRepo) GlobalSubjectAvgAccuracy(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) (float64, error) {
	return r.globalAvg(ctx, tx, "subject_performance", "subject_id", subjectID)
}
