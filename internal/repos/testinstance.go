package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

type TestInstanceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, instance *types.TestInstance) (*types.TestInstance, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, instanceID, userID uuid.UUID) (*types.TestInstance, error)
	CompleteIfOpen(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID, result TestResult) (bool, error)
	CountCompletedByUserExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) (int64, error)
	RecentCompletedByUserExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]*types.TestInstance, error)
}

// TestResult is the one-shot write applied on completion.
type TestResult struct {
	Score          float64
	NumCorrect     int
	NumIncorrect   int
	NumUnattempted int
	TimeTakenSec   int
	CompletedAt    time.Time
}

type testInstanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestInstanceRepo(db *gorm.DB, baseLog *logger.Logger) TestInstanceRepo {
	return &testInstanceRepo{db: db, log: baseLog.With("repo", "TestInstanceRepo")}
}

func (r *testInstanceRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *testInstanceRepo) Create(ctx context.Context, tx *gorm.DB, instance *types.TestInstance) (*types.TestInstance, error) {
	if err := r.conn(tx).WithContext(ctx).Create(instance).Error; err != nil {
		return nil, err
	}
	return instance, nil
}

// GetByIDForUser scopes the lookup to the owner; a foreign instance is
// indistinguishable from a missing one.
func (r *testInstanceRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, instanceID, userID uuid.UUID) (*types.TestInstance, error) {
	var instance types.TestInstance
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", instanceID, userID).
		First(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("test instance %s not found", instanceID)
		}
		return nil, err
	}
	return &instance, nil
}

// CompleteIfOpen writes the result fields with a compare-and-set on
// completed_at IS NULL. Exactly one concurrent submit observes the
// open row; the loser gets ok=false and must report AlreadyCompleted.
func (r *testInstanceRepo) CompleteIfOpen(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID, result TestResult) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&types.TestInstance{}).
		Where("id = ? AND completed_at IS NULL", instanceID).
		Updates(map[string]interface{}{
			"score":           result.Score,
			"num_correct":     result.NumCorrect,
			"num_incorrect":   result.NumIncorrect,
			"num_unattempted": result.NumUnattempted,
			"time_taken_sec":  result.TimeTakenSec,
			"completed_at":    result.CompletedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *testInstanceRepo) CountCompletedByUserExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.TestInstance{}).
		Where("user_id = ? AND exam_id = ? AND completed_at IS NOT NULL", userID, examID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *testInstanceRepo) RecentCompletedByUserExam(ctx context.Context, tx *gorm.DB, userID, examID uuid.UUID, limit int) ([]*types.TestInstance, error) {
	var instances []*types.TestInstance
	q := r.conn(tx).WithContext(ctx).
		Where("user_id = ? AND exam_id = ? AND completed_at IS NOT NULL", userID, examID).
		Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}
