package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PerformanceDelta is what one submission contributes to one aggregate
// row. Unattempted questions contribute nothing.
type PerformanceDelta struct {
	Attempted    int
	Correct      int
	Incorrect    int
	TimeTakenSec int
}

func (d PerformanceDelta) IsZero() bool {
	return d.Attempted == 0 && d.Correct == 0 && d.Incorrect == 0 && d.TimeTakenSec == 0
}

func (d *PerformanceDelta) Add(other PerformanceDelta) {
	d.Attempted += other.Attempted
	d.Correct += other.Correct
	d.Incorrect += other.Incorrect
	d.TimeTakenSec += other.TimeTakenSec
}

// PerformanceTotals holds the rolling counters shared by every
// aggregate granularity. The derived fields are always recomputed from
// the new totals after a delta lands, never blended incrementally.
type PerformanceTotals struct {
	TotalAttempted        int     `gorm:"not null;default:0;column:total_attempted" json:"total_attempted"`
	TotalCorrect          int     `gorm:"not null;default:0;column:total_correct" json:"total_correct"`
	TotalIncorrect        int     `gorm:"not null;default:0;column:total_incorrect" json:"total_incorrect"`
	TotalTimeTakenSec     int     `gorm:"not null;default:0;column:total_time_taken_sec" json:"total_time_taken_sec"`
	AccuracyPercent       float64 `gorm:"not null;default:0;column:accuracy_percent" json:"accuracy_percent"`
	AvgTimePerQuestionSec float64 `gorm:"not null;default:0;column:avg_time_per_question_sec" json:"avg_time_per_question_sec"`
}

// Apply adds the delta and recomputes the derived fields from the new
// totals. This is the single aggregation routine every granularity
// shares.
func (t *PerformanceTotals) Apply(d PerformanceDelta) {
	t.TotalAttempted += d.Attempted
	t.TotalCorrect += d.Correct
	t.TotalIncorrect += d.Incorrect
	t.TotalTimeTakenSec += d.TimeTakenSec
	if t.TotalAttempted > 0 {
		t.AccuracyPercent = 100 * float64(t.TotalCorrect) / float64(t.TotalAttempted)
		t.AvgTimePerQuestionSec = float64(t.TotalTimeTakenSec) / float64(t.TotalAttempted)
	} else {
		t.AccuracyPercent = 0
		t.AvgTimePerQuestionSec = 0
	}
}

type SubtopicPerformance struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index:idx_user_subtopic,unique" json:"user_id"`
	SubtopicID        uuid.UUID `gorm:"type:uuid;not null;index:idx_user_subtopic,unique" json:"subtopic_id"`
	PerformanceTotals `json:"totals"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SubtopicPerformance) TableName() string { return "subtopic_performance" }

type TopicPerformance struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index:idx_user_topic,unique" json:"user_id"`
	TopicID           uuid.UUID `gorm:"type:uuid;not null;index:idx_user_topic,unique" json:"topic_id"`
	PerformanceTotals `json:"totals"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TopicPerformance) TableName() string { return "topic_performance" }

type TopicDifficultyPerformance struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_topic_difficulty,unique" json:"user_id"`
	TopicID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_topic_difficulty,unique" json:"topic_id"`
	Difficulty        Difficulty `gorm:"not null;index:idx_user_topic_difficulty,unique;column:difficulty" json:"difficulty"`
	PerformanceTotals `json:"totals"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TopicDifficultyPerformance) TableName() string { return "topic_difficulty_performance" }

type SubjectPerformance struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index:idx_user_subject,unique" json:"user_id"`
	SubjectID         uuid.UUID `gorm:"type:uuid;not null;index:idx_user_subject,unique" json:"subject_id"`
	PerformanceTotals `json:"totals"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SubjectPerformance) TableName() string { return "subject_performance" }

type UserOverallPerformance struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index:idx_user_exam_overall,unique" json:"user_id"`
	ExamID            uuid.UUID `gorm:"type:uuid;not null;index:idx_user_exam_overall,unique" json:"exam_id"`
	TestsCompleted    int       `gorm:"not null;default:0;column:tests_completed" json:"tests_completed"`
	PerformanceTotals `json:"totals"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserOverallPerformance) TableName() string { return "user_overall_performance" }

// DailyPerformance is one UTC-day snapshot feeding the streak counter.
type DailyPerformance struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_day,unique" json:"user_id"`
	Day                time.Time      `gorm:"type:date;not null;index:idx_user_day,unique;column:day" json:"day"`
	QuestionsAttempted int            `gorm:"not null;default:0;column:questions_attempted" json:"questions_attempted"`
	QuestionsCorrect   int            `gorm:"not null;default:0;column:questions_correct" json:"questions_correct"`
	TimeSpentSec       int            `gorm:"not null;default:0;column:time_spent_sec" json:"time_spent_sec"`
	AccuracyPercent    float64        `gorm:"not null;default:0;column:accuracy_percent" json:"accuracy_percent"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DailyPerformance) TableName() string { return "daily_performance" }
