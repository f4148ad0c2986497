package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/repos"
	"github.com/prepwise/prepwise-backend/internal/types"
)

// TouchedDimensions names the dimension rows one submission changed.
type TouchedDimensions struct {
	TopicIDs    []uuid.UUID
	SubtopicIDs []uuid.UUID
	SubjectIDs  []uuid.UUID
}

// PostSubmitUpdate is the fire-and-forget work scheduled after a
// successful submission commit.
type PostSubmitUpdate struct {
	UserID       uuid.UUID
	Kind         types.TestKind
	Touched      TouchedDimensions
	Attempted    int
	Correct      int
	TimeSpentSec int
	Day          time.Time
}

// StatsService owns the best-effort statistics that live outside the
// submission transaction: platform-wide per-dimension averages, the
// daily snapshot, and the streak counter. Nothing here may propagate
// an error back into the request path that triggered it.
type StatsService interface {
	DispatchPostSubmit(update PostSubmitUpdate)
	RecomputeGlobalAverages(ctx context.Context, touched TouchedDimensions) error
	UpdateDailyAndStreak(ctx context.Context, userID uuid.UUID, day time.Time, attempted, correct, timeSpentSec int) error
}

type statsService struct {
	db           *gorm.DB
	log          *logger.Logger
	perfRepo     repos.PerformanceRepo
	taxonomyRepo repos.TaxonomyRepo
	dailyRepo    repos.DailyPerformanceRepo
	userRepo     repos.UserRepo
	timeout      time.Duration
}

func NewStatsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	perfRepo repos.PerformanceRepo,
	taxonomyRepo repos.TaxonomyRepo,
	dailyRepo repos.DailyPerformanceRepo,
	userRepo repos.UserRepo,
) StatsService {
	return &statsService{
		db:           db,
		log:          baseLog.With("service", "StatsService"),
		perfRepo:     perfRepo,
		taxonomyRepo: taxonomyRepo,
		dailyRepo:    dailyRepo,
		userRepo:     userRepo,
		timeout:      2 * time.Minute,
	}
}

// DispatchPostSubmit detaches from the request context: the caller's
// response must not wait on, or fail because of, any of this.
func (s *statsService) DispatchPostSubmit(update PostSubmitUpdate) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.RecomputeGlobalAverages(ctx, update.Touched); err != nil {
			s.log.Warn("Global average recomputation failed", "user_id", update.UserID, "error", err)
		}
		if update.Kind == types.TestKindRevision {
			if err := s.UpdateDailyAndStreak(ctx, update.UserID, update.Day, update.Attempted, update.Correct, update.TimeSpentSec); err != nil {
				s.log.Warn("Daily snapshot/streak update failed", "user_id", update.UserID, "error", err)
			}
		}
	}()
}

// RecomputeGlobalAverages writes the unweighted mean accuracy across
// all users back onto each touched dimension. Safe to run concurrently
// with itself; last write wins on this advisory statistic.
func (s *statsService) RecomputeGlobalAverages(ctx context.Context, touched TouchedDimensions) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, topicID := range touched.TopicIDs {
		g.Go(func() error {
			avg, err := s.perfRepo.GlobalTopicAvgAccuracy(gctx, nil, topicID)
			if err != nil {
				return err
			}
			return s.taxonomyRepo.SetTopicAvgAccuracy(gctx, nil, topicID, avg)
		})
	}
	for _, subtopicID := range touched.SubtopicIDs {
		g.Go(func() error {
			avg, err := s.perfRepo.GlobalSubtopicAvgAccuracy(gctx, nil, subtopicID)
			if err != nil {
				return err
			}
			return s.taxonomyRepo.SetSubtopicAvgAccuracy(gctx, nil, subtopicID, avg)
		})
	}
	for _, subjectID := range touched.SubjectIDs {
		g.Go(func() error {
			avg, err := s.perfRepo.GlobalSubjectAvgAccuracy(gctx, nil, subjectID)
			if err != nil {
				return err
			}
			return s.taxonomyRepo.SetSubjectAvgAccuracy(gctx, nil, subjectID, avg)
		})
	}

	return g.Wait()
}

func (s *statsService) UpdateDailyAndStreak(ctx context.Context, userID uuid.UUID, day time.Time, attempted, correct, timeSpentSec int) error {
	if err := s.dailyRepo.ApplyDelta(ctx, nil, userID, day, attempted, correct, timeSpentSec); err != nil {
		return err
	}

	days, err := s.dailyRepo.DaysDesc(ctx, nil, userID)
	if err != nil {
		return err
	}
	streak := streakFrom(days, day)
	return s.userRepo.SetStreakDays(ctx, nil, userID, streak)
}

// streakFrom counts consecutive UTC days with a snapshot, ending today
// or yesterday. Recomputed from scratch every time so out-of-order or
// backfilled snapshots cannot drift the counter.
func streakFrom(daysDesc []time.Time, now time.Time) int {
	if len(daysDesc) == 0 {
		return 0
	}
	today := now.UTC().Truncate(24 * time.Hour)

	seen := make(map[time.Time]bool, len(daysDesc))
	for _, d := range daysDesc {
		seen[d.UTC().Truncate(24*time.Hour)] = true
	}

	cursor := today
	if !seen[cursor] {
		cursor = today.AddDate(0, 0, -1)
		if !seen[cursor] {
			return 0
		}
	}

	streak := 0
	for seen[cursor] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
