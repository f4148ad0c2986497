package types

import "github.com/google/uuid"

// ProficiencyTier is a coarse band derived from overall accuracy,
// passed to the ranking oracle as part of the readiness profile.
type ProficiencyTier string

const (
	TierBeginner     ProficiencyTier = "beginner"
	TierIntermediate ProficiencyTier = "intermediate"
	TierAdvanced     ProficiencyTier = "advanced"
)

// StrategicWeakness is a topic worth targeted practice: its exam
// weightage clears the materiality threshold and the user's accuracy
// at the named difficulty sits below the weak-accuracy cutoff.
type StrategicWeakness struct {
	TopicID         uuid.UUID  `json:"topic_id"`
	TopicName       string     `json:"topic_name"`
	Difficulty      Difficulty `json:"difficulty"`
	AccuracyPercent float64    `json:"accuracy_percent"`
	ExamWeightage   float64    `json:"exam_weightage"`
}

// ReadinessProfile is the structured user summary handed to the
// curator for adaptive test generation.
type ReadinessProfile struct {
	UserID              uuid.UUID           `json:"user_id"`
	ExamID              uuid.UUID           `json:"exam_id"`
	Tier                ProficiencyTier     `json:"tier"`
	OverallAccuracy     float64             `json:"overall_accuracy"`
	TestsCompleted      int                 `json:"tests_completed"`
	StrategicWeaknesses []StrategicWeakness `json:"strategic_weaknesses"`
	StrongTopics        []TopicAccuracy     `json:"strong_topics"`
	LaggingTopics       []TopicAccuracy     `json:"lagging_topics"`
}

type TopicAccuracy struct {
	TopicID         uuid.UUID `json:"topic_id"`
	TopicName       string    `json:"topic_name"`
	AccuracyPercent float64   `json:"accuracy_percent"`
	TotalAttempted  int       `json:"total_attempted"`
	ExamWeightage   float64   `json:"exam_weightage"`
}

// WeaknessSummary renders the profile's weak spots as text for the
// embedding oracle.
func (p *ReadinessProfile) WeaknessSummary() string {
	if p == nil || len(p.StrategicWeaknesses) == 0 {
		return ""
	}
	out := "Student struggles with: "
	for i, w := range p.StrategicWeaknesses {
		if i > 0 {
			out += "; "
		}
		out += w.TopicName + " at " + string(w.Difficulty) + " difficulty"
	}
	return out
}

// CandidateQuestion is the metadata slice of a catalog question shown
// to the ranking oracle. Only ids it echoes back are trusted.
type CandidateQuestion struct {
	QuestionID uuid.UUID  `json:"question_id"`
	TopicID    uuid.UUID  `json:"topic_id"`
	TopicName  string     `json:"topic_name"`
	Difficulty Difficulty `json:"difficulty"`
	Source     string     `json:"source"`
}
