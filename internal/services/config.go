package services

import (
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/utils"
)

// GenerationConfig gathers the generation heuristics. The thresholds
// are tuning constants with no deeper derivation; keep them in env so
// they can move without a deploy of new code.
type GenerationConfig struct {
	// MistakeBankShare caps how much of a revision test is drawn from
	// previously-incorrect questions.
	MistakeBankShare float64
	// WeakTopicCount is how many lowest-accuracy topics feed the
	// weak-topic fill.
	WeakTopicCount int
	// AdaptiveUnlockTests is the completed-test count per exam below
	// which smart-mock generation always takes the diagnostic path.
	AdaptiveUnlockTests int
	// SemanticOverfetch is how many nearest neighbors each similarity
	// query pulls, giving the curator room to choose.
	SemanticOverfetch int
	// WeightageMaterialityPct: topics below this exam weightage are
	// ignored when selecting strategic weaknesses.
	WeightageMaterialityPct float64
	// WeakAccuracyCutoffPct: a topic-difficulty cell only counts as a
	// weakness under this accuracy.
	WeakAccuracyCutoffPct float64
	// StrongAccuracyFloorPct: accuracy at or above this marks a strong
	// topic for confidence boosters.
	StrongAccuracyFloorPct float64

	CoveragePoolSize   int
	ChallengerPoolSize int
	ConfidencePoolSize int
	// MistakeEmbeddingSample: how many recent mistakes feed the
	// centroid query.
	MistakeEmbeddingSample int
}

func LoadGenerationConfig(log *logger.Logger) GenerationConfig {
	return GenerationConfig{
		MistakeBankShare:        utils.GetEnvAsFloat("GEN_MISTAKE_BANK_SHARE", 0.60, log),
		WeakTopicCount:          utils.GetEnvAsInt("GEN_WEAK_TOPIC_COUNT", 5, log),
		AdaptiveUnlockTests:     utils.GetEnvAsInt("GEN_ADAPTIVE_UNLOCK_TESTS", 3, log),
		SemanticOverfetch:       utils.GetEnvAsInt("GEN_SEMANTIC_OVERFETCH", 100, log),
		WeightageMaterialityPct: utils.GetEnvAsFloat("GEN_WEIGHTAGE_MATERIALITY_PCT", 5, log),
		WeakAccuracyCutoffPct:   utils.GetEnvAsFloat("GEN_WEAK_ACCURACY_CUTOFF_PCT", 60, log),
		StrongAccuracyFloorPct:  utils.GetEnvAsFloat("GEN_STRONG_ACCURACY_FLOOR_PCT", 75, log),
		CoveragePoolSize:        utils.GetEnvAsInt("GEN_COVERAGE_POOL_SIZE", 30, log),
		ChallengerPoolSize:      utils.GetEnvAsInt("GEN_CHALLENGER_POOL_SIZE", 15, log),
		ConfidencePoolSize:      utils.GetEnvAsInt("GEN_CONFIDENCE_POOL_SIZE", 15, log),
		MistakeEmbeddingSample:  utils.GetEnvAsInt("GEN_MISTAKE_EMBEDDING_SAMPLE", 20, log),
	}
}
