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

const profileListCap = 5

// ProfileService builds the readiness profile the curator hands to the
// ranking oracle.
type ProfileService interface {
	BuildReadinessProfile(ctx context.Context, userID, examID uuid.UUID) (*types.ReadinessProfile, error)
}

type profileService struct {
	db              *gorm.DB
	log             *logger.Logger
	cfg             GenerationConfig
	performanceRepo repos.PerformanceRepo
	taxonomyRepo    repos.TaxonomyRepo
}

func NewProfileService(db *gorm.DB, baseLog *logger.Logger, cfg GenerationConfig, performanceRepo repos.PerformanceRepo, taxonomyRepo repos.TaxonomyRepo) ProfileService {
	return &profileService{
		db:              db,
		log:             baseLog.With("service", "ProfileService"),
		cfg:             cfg,
		performanceRepo: performanceRepo,
		taxonomyRepo:    taxonomyRepo,
	}
}

func tierFor(accuracyPercent float64) types.ProficiencyTier {
	switch {
	case accuracyPercent >= 75:
		return types.TierAdvanced
	case accuracyPercent >= 45:
		return types.TierIntermediate
	default:
		return types.TierBeginner
	}
}

func (s *profileService) BuildReadinessProfile(ctx context.Context, userID, examID uuid.UUID) (*types.ReadinessProfile, error) {
	profile := &types.ReadinessProfile{
		UserID: userID,
		ExamID: examID,
		Tier:   types.TierBeginner,
	}

	overall, err := s.performanceRepo.GetOverall(ctx, nil, userID, examID)
	if err != nil {
		return nil, err
	}
	if overall != nil {
		profile.OverallAccuracy = overall.AccuracyPercent
		profile.TestsCompleted = overall.TestsCompleted
		profile.Tier = tierFor(overall.AccuracyPercent)
	}

	topics, err := s.taxonomyRepo.TopicsForExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	topicByID := make(map[uuid.UUID]*types.Topic, len(topics))
	for _, t := range topics {
		topicByID[t.ID] = t
	}

	topicPerf, err := s.performanceRepo.TopicPerformanceForExam(ctx, nil, userID, examID)
	if err != nil {
		return nil, err
	}
	difficultyPerf, err := s.performanceRepo.TopicDifficultyPerformanceForExam(ctx, nil, userID, examID)
	if err != nil {
		return nil, err
	}

	profile.StrategicWeaknesses = s.strategicWeaknesses(difficultyPerf, topicByID)
	profile.StrongTopics = s.strongTopics(topicPerf, topicByID)
	profile.LaggingTopics = s.laggingTopics(topicPerf, topicByID)
	return profile, nil
}

// strategicWeaknesses picks, per material topic, the weakest
// struggling difficulty: the lowest-accuracy cell with attempts that
// still sits under the weak-accuracy cutoff. Highest-weightage topics
// come first.
func (s *profileService) strategicWeaknesses(cells []*types.TopicDifficultyPerformance, topicByID map[uuid.UUID]*types.Topic) []types.StrategicWeakness {
	weakestByTopic := map[uuid.UUID]*types.TopicDifficultyPerformance{}
	for _, cell := range cells {
		topic := topicByID[cell.TopicID]
		if topic == nil || topic.ExamWeightage <= s.cfg.WeightageMaterialityPct {
			continue
		}
		if cell.TotalAttempted == 0 || cell.AccuracyPercent >= s.cfg.WeakAccuracyCutoffPct {
			continue
		}
		current := weakestByTopic[cell.TopicID]
		if current == nil || cell.AccuracyPercent < current.AccuracyPercent {
			weakestByTopic[cell.TopicID] = cell
		}
	}

	weaknesses := make([]types.StrategicWeakness, 0, len(weakestByTopic))
	for topicID, cell := range weakestByTopic {
		topic := topicByID[topicID]
		weaknesses = append(weaknesses, types.StrategicWeakness{
			TopicID:         topicID,
			TopicName:       topic.Name,
			Difficulty:      cell.Difficulty,
			AccuracyPercent: cell.AccuracyPercent,
			ExamWeightage:   topic.ExamWeightage,
		})
	}
	sort.Slice(weaknesses, func(i, j int) bool {
		if weaknesses[i].ExamWeightage != weaknesses[j].ExamWeightage {
			return weaknesses[i].ExamWeightage > weaknesses[j].ExamWeightage
		}
		return weaknesses[i].AccuracyPercent < weaknesses[j].AccuracyPercent
	})
	if len(weaknesses) > profileListCap {
		weaknesses = weaknesses[:profileListCap]
	}
	return weaknesses
}

func (s *profileService) strongTopics(rows []*types.TopicPerformance, topicByID map[uuid.UUID]*types.Topic) []types.TopicAccuracy {
	var strong []types.TopicAccuracy
	for _, row := range rows {
		topic := topicByID[row.TopicID]
		if topic == nil || row.TotalAttempted == 0 {
			continue
		}
		if row.AccuracyPercent >= s.cfg.StrongAccuracyFloorPct {
			strong = append(strong, types.TopicAccuracy{
				TopicID:         row.TopicID,
				TopicName:       topic.Name,
				AccuracyPercent: row.AccuracyPercent,
				TotalAttempted:  row.TotalAttempted,
				ExamWeightage:   topic.ExamWeightage,
			})
		}
	}
	sort.Slice(strong, func(i, j int) bool {
		return strong[i].AccuracyPercent > strong[j].AccuracyPercent
	})
	if len(strong) > profileListCap {
		strong = strong[:profileListCap]
	}
	return strong
}

// laggingTopics are material topics the user has barely practiced:
// their attempt share runs under half of the topic's weightage share.
func (s *profileService) laggingTopics(rows []*types.TopicPerformance, topicByID map[uuid.UUID]*types.Topic) []types.TopicAccuracy {
	totalAttempted := 0
	attemptedByTopic := map[uuid.UUID]*types.TopicPerformance{}
	for _, row := range rows {
		totalAttempted += row.TotalAttempted
		attemptedByTopic[row.TopicID] = row
	}

	var lagging []types.TopicAccuracy
	for topicID, topic := range topicByID {
		if topic.ExamWeightage <= s.cfg.WeightageMaterialityPct {
			continue
		}
		row := attemptedByTopic[topicID]
		attempted := 0
		accuracy := 0.0
		if row != nil {
			attempted = row.TotalAttempted
			accuracy = row.AccuracyPercent
		}
		attemptShare := 0.0
		if totalAttempted > 0 {
			attemptShare = 100 * float64(attempted) / float64(totalAttempted)
		}
		if attempted == 0 || attemptShare < topic.ExamWeightage/2 {
			lagging = append(lagging, types.TopicAccuracy{
				TopicID:         topicID,
				TopicName:       topic.Name,
				AccuracyPercent: accuracy,
				TotalAttempted:  attempted,
				ExamWeightage:   topic.ExamWeightage,
			})
		}
	}
	sort.Slice(lagging, func(i, j int) bool {
		if lagging[i].ExamWeightage != lagging[j].ExamWeightage {
			return lagging[i].ExamWeightage > lagging[j].ExamWeightage
		}
		return lagging[i].TotalAttempted < lagging[j].TotalAttempted
	})
	if len(lagging) > profileListCap {
		lagging = lagging[:profileListCap]
	}
	return lagging
}
