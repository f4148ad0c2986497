package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

type DailyPerformanceRepo interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, day time.Time, attempted, correct, timeSpentSec int) error
	DaysDesc(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]time.Time, error)
}

type dailyPerformanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyPerformanceRepo(db *gorm.DB, baseLog *logger.Logger) DailyPerformanceRepo {
	return &dailyPerformanceRepo{db: db, log: baseLog.With("repo", "DailyPerformanceRepo")}
}

func (r *dailyPerformanceRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ApplyDelta folds one submission into the user's UTC-day snapshot,
// recomputing accuracy from the new day totals.
func (r *dailyPerformanceRepo) ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, day time.Time, attempted, correct, timeSpentSec int) error {
	day = day.UTC().Truncate(24 * time.Hour)
	conn := r.conn(tx)

	var row types.DailyPerformance
	err := conn.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND day = ?", userID, day).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = types.DailyPerformance{UserID: userID, Day: day}
		err = nil
	}
	if err != nil {
		return err
	}

	row.QuestionsAttempted += attempted
	row.QuestionsCorrect += correct
	row.TimeSpentSec += timeSpentSec
	if row.QuestionsAttempted > 0 {
		row.AccuracyPercent = 100 * float64(row.QuestionsCorrect) / float64(row.QuestionsAttempted)
	}
	return conn.WithContext(ctx).Save(&row).Error
}

func (r *dailyPerformanceRepo) DaysDesc(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]time.Time, error) {
	var days []time.Time
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.DailyPerformance{}).
		Where("user_id = ?", userID).
		Order("day DESC").
		Pluck("day", &days).Error; err != nil {
		return nil, err
	}
	return days, nil
}
