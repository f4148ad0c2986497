package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

type ExamRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.Exam, error)
	GetSessionByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.ExamSession, error)
}

type examRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExamRepo(db *gorm.DB, baseLog *logger.Logger) ExamRepo {
	return &examRepo{db: db, log: baseLog.With("repo", "ExamRepo")}
}

func (r *examRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *examRepo) GetByID(ctx context.Context, tx *gorm.DB, examID uuid.UUID) (*types.Exam, error) {
	var exam types.Exam
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", examID).
		First(&exam).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("exam %s not found", examID)
		}
		return nil, err
	}
	return &exam, nil
}

func (r *examRepo) GetSessionByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.ExamSession, error) {
	var session types.ExamSession
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", sessionID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("exam session %s not found", sessionID)
		}
		return nil, err
	}
	return &session, nil
}
