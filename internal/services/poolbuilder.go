package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/clients/vector"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/repos"
	"github.com/prepwise/prepwise-backend/internal/types"
)

// Candidate source tags, carried into the curator prompt.
const (
	sourceWeightage  = "weightage"
	sourceMistake    = "mistake_bank"
	sourceWeakTopic  = "weak_topic"
	sourceRandom     = "random"
	sourceSemantic   = "semantic"
	sourceCoverage   = "coverage"
	sourceChallenger = "challenger"
	sourceConfidence = "confidence_booster"
)

// PoolBuilderService assembles deduplicated candidate question sets.
// Every strategy tolerates contributing nothing; only the composite
// falling short of the target is an error.
type PoolBuilderService interface {
	BuildWeightage(ctx context.Context, examID uuid.UUID, totalQuestions int) ([]uuid.UUID, error)
	BuildRevision(ctx context.Context, userID, examID uuid.UUID, totalQuestions int) ([]uuid.UUID, error)
	BuildAdaptive(ctx context.Context, profile *types.ReadinessProfile) ([]types.CandidateQuestion, error)
}

type poolBuilderService struct {
	db              *gorm.DB
	log             *logger.Logger
	cfg             GenerationConfig
	questionRepo    repos.QuestionRepo
	testAnswerRepo  repos.TestAnswerRepo
	performanceRepo repos.PerformanceRepo
	taxonomyRepo    repos.TaxonomyRepo
	oracle          OpenAIClient
	vectorStore     vector.Store
}

func NewPoolBuilderService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg GenerationConfig,
	questionRepo repos.QuestionRepo,
	testAnswerRepo repos.TestAnswerRepo,
	performanceRepo repos.PerformanceRepo,
	taxonomyRepo repos.TaxonomyRepo,
	oracle OpenAIClient,
	vectorStore vector.Store,
) PoolBuilderService {
	return &poolBuilderService{
		db:              db,
		log:             baseLog.With("service", "PoolBuilderService"),
		cfg:             cfg,
		questionRepo:    questionRepo,
		testAnswerRepo:  testAnswerRepo,
		performanceRepo: performanceRepo,
		taxonomyRepo:    taxonomyRepo,
		oracle:          oracle,
		vectorStore:     vectorStore,
	}
}

// weightageCounts apportions totalQuestions across topics by exam
// weightage: nearest-integer rounding, with a floor of one question
// for any topic carrying positive weightage. The concatenation may
// land off-target; the caller truncates or pads to the exact total.
func weightageCounts(topics []*types.Topic, totalQuestions int) []int {
	counts := make([]int, len(topics))
	for i, topic := range topics {
		if topic.ExamWeightage <= 0 {
			continue
		}
		n := int(math.Round(float64(totalQuestions) * topic.ExamWeightage / 100))
		if n < 1 {
			n = 1
		}
		counts[i] = n
	}
	return counts
}

func (s *poolBuilderService) BuildWeightage(ctx context.Context, examID uuid.UUID, totalQuestions int) ([]uuid.UUID, error) {
	if totalQuestions <= 0 {
		return nil, apierr.Validation("totalQuestions must be positive")
	}

	topics, err := s.taxonomyRepo.TopicsForExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}

	counts := weightageCounts(topics, totalQuestions)
	chosen := make([]uuid.UUID, 0, totalQuestions)
	seen := map[uuid.UUID]bool{}
	for i, topic := range topics {
		if counts[i] == 0 {
			continue
		}
		questions, err := s.questionRepo.RandomByTopic(ctx, nil, topic.ID, counts[i], chosen)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if !seen[q.ID] {
				seen[q.ID] = true
				chosen = append(chosen, q.ID)
			}
		}
	}

	if len(chosen) > totalQuestions {
		chosen = chosen[:totalQuestions]
	}
	return s.padFromExam(ctx, examID, chosen, totalQuestions)
}

func (s *poolBuilderService) BuildRevision(ctx context.Context, userID, examID uuid.UUID, totalQuestions int) ([]uuid.UUID, error) {
	if totalQuestions <= 0 {
		return nil, apierr.Validation("totalQuestions must be positive")
	}

	mistakeCap := int(math.Round(float64(totalQuestions) * s.cfg.MistakeBankShare))
	chosen, err := s.testAnswerRepo.MistakeQuestionIDs(ctx, nil, userID, examID, mistakeCap)
	if err != nil {
		return nil, err
	}

	if len(chosen) < totalQuestions {
		weakTopicIDs, err := s.performanceRepo.WeakestTopicIDs(ctx, nil, userID, examID, s.cfg.WeakTopicCount)
		if err != nil {
			return nil, err
		}
		fill, err := s.questionRepo.RandomByTopicDifficulties(ctx, nil, weakTopicIDs, nil, totalQuestions-len(chosen), chosen)
		if err != nil {
			return nil, err
		}
		for _, q := range fill {
			chosen = append(chosen, q.ID)
		}
	}

	return s.padFromExam(ctx, examID, chosen, totalQuestions)
}

// padFromExam fills any remaining slots from the exam's whole pool and
// enforces the size guarantee.
func (s *poolBuilderService) padFromExam(ctx context.Context, examID uuid.UUID, chosen []uuid.UUID, totalQuestions int) ([]uuid.UUID, error) {
	if len(chosen) < totalQuestions {
		fill, err := s.questionRepo.RandomByExam(ctx, nil, examID, totalQuestions-len(chosen), chosen)
		if err != nil {
			return nil, err
		}
		for _, q := range fill {
			chosen = append(chosen, q.ID)
		}
	}
	if len(chosen) < totalQuestions {
		return nil, apierr.InsufficientCandidates("exam %s has only %d eligible questions, need %d", examID, len(chosen), totalQuestions)
	}
	return chosen[:totalQuestions], nil
}

// BuildAdaptive gathers the multi-source candidate pool for the
// curator. Oracle or vector failures downgrade the affected source to
// an empty contribution.
func (s *poolBuilderService) BuildAdaptive(ctx context.Context, profile *types.ReadinessProfile) ([]types.CandidateQuestion, error) {
	examID := profile.ExamID

	topics, err := s.taxonomyRepo.TopicsForExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	topicIDs := make([]uuid.UUID, len(topics))
	for i, t := range topics {
		topicIDs[i] = t.ID
	}
	topicNameByID := make(map[uuid.UUID]string, len(topics))
	for _, t := range topics {
		topicNameByID[t.ID] = t.Name
	}
	subtopics, err := s.taxonomyRepo.SubtopicsByTopicIDs(ctx, nil, topicIDs)
	if err != nil {
		return nil, err
	}
	topicBySubtopic := make(map[uuid.UUID]uuid.UUID, len(subtopics))
	for _, st := range subtopics {
		topicBySubtopic[st.ID] = st.TopicID
	}

	pool := newCandidatePool(topicBySubtopic, topicNameByID)

	semanticIDs := s.semanticPool(ctx, profile)
	if len(semanticIDs) > 0 {
		questions, err := s.questionRepo.GetByIDs(ctx, nil, semanticIDs)
		if err != nil {
			return nil, err
		}
		pool.add(questions, sourceSemantic)
	}

	mistakes, err := s.testAnswerRepo.MistakeQuestionIDs(ctx, nil, profile.UserID, examID, s.cfg.SemanticOverfetch/2)
	if err != nil {
		return nil, err
	}
	if len(mistakes) > 0 {
		questions, err := s.questionRepo.GetByIDs(ctx, nil, mistakes)
		if err != nil {
			return nil, err
		}
		pool.add(questions, sourceMistake)
	}

	laggingIDs := make([]uuid.UUID, 0, len(profile.LaggingTopics))
	for _, t := range profile.LaggingTopics {
		laggingIDs = append(laggingIDs, t.TopicID)
	}
	coverage, err := s.questionRepo.RandomByTopicDifficulties(ctx, nil, laggingIDs, nil, s.cfg.CoveragePoolSize, pool.ids())
	if err != nil {
		return nil, err
	}
	pool.add(coverage, sourceCoverage)

	challengers, err := s.questionRepo.RandomByTopicDifficulties(ctx, nil, topicIDs, []types.Difficulty{types.DifficultyElite}, s.cfg.ChallengerPoolSize, pool.ids())
	if err != nil {
		return nil, err
	}
	pool.add(challengers, sourceChallenger)

	strongIDs := make([]uuid.UUID, 0, len(profile.StrongTopics))
	for _, t := range profile.StrongTopics {
		strongIDs = append(strongIDs, t.TopicID)
	}
	boosters, err := s.questionRepo.RandomByTopicDifficulties(ctx, nil, strongIDs, []types.Difficulty{types.DifficultyEasy, types.DifficultyMedium}, s.cfg.ConfidencePoolSize, pool.ids())
	if err != nil {
		return nil, err
	}
	pool.add(boosters, sourceConfidence)

	if pool.len() == 0 {
		return nil, apierr.InsufficientCandidates("no adaptive candidates available for exam %s", examID)
	}
	return pool.candidates, nil
}

// semanticPool embeds the weakness summary and the centroid of recent
// mistake embeddings, then queries the vector index for each. Any
// failure along the way contributes an empty set.
func (s *poolBuilderService) semanticPool(ctx context.Context, profile *types.ReadinessProfile) []uuid.UUID {
	var vectors [][]float32

	if summary := profile.WeaknessSummary(); summary != "" {
		embedded, err := s.oracle.Embed(ctx, []string{summary})
		if err != nil {
			s.log.Warn("Weakness summary embedding failed, skipping source", "error", err)
		} else if len(embedded) == 1 && len(embedded[0]) > 0 {
			vectors = append(vectors, embedded[0])
		}
	}

	mistakes, err := s.testAnswerRepo.MistakeQuestionsWithEmbeddings(ctx, nil, profile.UserID, profile.ExamID, s.cfg.MistakeEmbeddingSample)
	if err != nil {
		s.log.Warn("Mistake embedding load failed, skipping source", "error", err)
	} else {
		embeddings := make([][]float32, 0, len(mistakes))
		for _, q := range mistakes {
			if len(q.Embedding) > 0 {
				embeddings = append(embeddings, q.Embedding)
			}
		}
		if centroid := embeddingCentroid(embeddings); len(centroid) > 0 {
			vectors = append(vectors, centroid)
		}
	}

	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, vec := range vectors {
		neighbors, err := s.vectorStore.NearestQuestions(ctx, vec, s.cfg.SemanticOverfetch, profile.ExamID)
		if err != nil {
			s.log.Warn("Vector query failed, skipping source", "error", err)
			continue
		}
		for _, id := range neighbors {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// embeddingCentroid averages same-dimension vectors; mismatched or
// empty input yields nil.
func embeddingCentroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil
	}
	sum := make([]float64, dim)
	count := 0
	for _, vec := range vectors {
		if len(vec) != dim {
			continue
		}
		for i, v := range vec {
			sum[i] += float64(v)
		}
		count++
	}
	if count == 0 {
		return nil
	}
	centroid := make([]float32, dim)
	for i := range sum {
		centroid[i] = float32(sum[i] / float64(count))
	}
	return centroid
}

// candidatePool deduplicates across sources; first source wins.
type candidatePool struct {
	candidates      []types.CandidateQuestion
	seen            map[uuid.UUID]bool
	topicBySubtopic map[uuid.UUID]uuid.UUID
	topicNameByID   map[uuid.UUID]string
}

func newCandidatePool(topicBySubtopic map[uuid.UUID]uuid.UUID, topicNameByID map[uuid.UUID]string) *candidatePool {
	return &candidatePool{
		seen:            map[uuid.UUID]bool{},
		topicBySubtopic: topicBySubtopic,
		topicNameByID:   topicNameByID,
	}
}

func (p *candidatePool) add(questions []*types.Question, source string) {
	for _, q := range questions {
		if p.seen[q.ID] {
			continue
		}
		p.seen[q.ID] = true
		topicID := p.topicBySubtopic[q.SubtopicID]
		p.candidates = append(p.candidates, types.CandidateQuestion{
			QuestionID: q.ID,
			TopicID:    topicID,
			TopicName:  p.topicNameByID[topicID],
			Difficulty: q.Difficulty,
			Source:     source,
		})
	}
}

func (p *candidatePool) ids() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.candidates))
	for _, c := range p.candidates {
		ids = append(ids, c.QuestionID)
	}
	return ids
}

func (p *candidatePool) len() int { return len(p.candidates) }
