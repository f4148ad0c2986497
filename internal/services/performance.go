package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/repos"
	"github.com/prepwise/prepwise-backend/internal/types"
)

// PerformanceSnapshot is the per-user aggregate view exposed to
// dashboards and recommendation features outside this core.
type PerformanceSnapshot struct {
	Overall    *types.UserOverallPerformance `json:"overall,omitempty"`
	Subjects   []*types.SubjectPerformance   `json:"subjects"`
	Topics     []*types.TopicPerformance     `json:"topics"`
	WeakTopics []types.TopicAccuracy         `json:"weak_topics"`
	StreakDays int                           `json:"streak_days"`
}

type PerformanceService interface {
	Snapshot(ctx context.Context, userID, examID uuid.UUID) (*PerformanceSnapshot, error)
}

type performanceService struct {
	db           *gorm.DB
	log          *logger.Logger
	perfRepo     repos.PerformanceRepo
	taxonomyRepo repos.TaxonomyRepo
	userRepo     repos.UserRepo
}

func NewPerformanceService(db *gorm.DB, baseLog *logger.Logger, perfRepo repos.PerformanceRepo, taxonomyRepo repos.TaxonomyRepo, userRepo repos.UserRepo) PerformanceService {
	return &performanceService{
		db:           db,
		log:          baseLog.With("service", "PerformanceService"),
		perfRepo:     perfRepo,
		taxonomyRepo: taxonomyRepo,
		userRepo:     userRepo,
	}
}

func (s *performanceService) Snapshot(ctx context.Context, userID, examID uuid.UUID) (*PerformanceSnapshot, error) {
	overall, err := s.perfRepo.GetOverall(ctx, nil, userID, examID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.perfRepo.SubjectPerformanceForUser(ctx, nil, userID, examID)
	if err != nil {
		return nil, err
	}
	topics, err := s.perfRepo.TopicPerformanceForExam(ctx, nil, userID, examID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	examTopics, err := s.taxonomyRepo.TopicsForExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	nameByID := make(map[uuid.UUID]*types.Topic, len(examTopics))
	for _, t := range examTopics {
		nameByID[t.ID] = t
	}

	var weak []types.TopicAccuracy
	for _, row := range topics {
		topic := nameByID[row.TopicID]
		if topic == nil || row.TotalAttempted == 0 {
			continue
		}
		weak = append(weak, types.TopicAccuracy{
			TopicID:         row.TopicID,
			TopicName:       topic.Name,
			AccuracyPercent: row.AccuracyPercent,
			TotalAttempted:  row.TotalAttempted,
			ExamWeightage:   topic.ExamWeightage,
		})
	}
	sort.Slice(weak, func(i, j int) bool {
		return weak[i].AccuracyPercent < weak[j].AccuracyPercent
	})
	if len(weak) > profileListCap {
		weak = weak[:profileListCap]
	}

	return &PerformanceSnapshot{
		Overall:    overall,
		Subjects:   subjects,
		Topics:     topics,
		WeakTopics: weak,
		StreakDays: user.StreakDays,
	}, nil
}
