package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestInstance is the unit of an attempt. QuestionIDs is frozen at
// creation; the result fields are written exactly once by the
// submission engine, guarded by completed_at IS NULL.
type TestInstance struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ExamID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"exam_id"`
	Exam            *Exam          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`
	Kind            TestKind       `gorm:"not null;index;column:kind" json:"kind"`
	QuestionIDs     []uuid.UUID    `gorm:"type:jsonb;serializer:json;not null;column:question_ids" json:"question_ids"`
	TotalQuestions  int            `gorm:"not null;column:total_questions" json:"total_questions"`
	TotalMarks      float64        `gorm:"not null;column:total_marks" json:"total_marks"`
	DurationMinutes int            `gorm:"not null;column:duration_minutes" json:"duration_minutes"`
	Score           float64        `gorm:"not null;default:0;column:score" json:"score"`
	NumCorrect      int            `gorm:"not null;default:0;column:num_correct" json:"num_correct"`
	NumIncorrect    int            `gorm:"not null;default:0;column:num_incorrect" json:"num_incorrect"`
	NumUnattempted  int            `gorm:"not null;default:0;column:num_unattempted" json:"num_unattempted"`
	TimeTakenSec    int            `gorm:"not null;default:0;column:time_taken_sec" json:"time_taken_sec"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TestInstance) TableName() string { return "test_instance" }

func (t *TestInstance) Completed() bool { return t.CompletedAt != nil }

// TestAnswer is one scored question of a completed instance.
type TestAnswer struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TestInstanceID uuid.UUID      `gorm:"type:uuid;not null;index" json:"test_instance_id"`
	TestInstance   *TestInstance  `gorm:"constraint:OnDelete:CASCADE;foreignKey:TestInstanceID;references:ID" json:"-"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	QuestionID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	Answer         string         `gorm:"column:answer" json:"answer"`
	IsCorrect      bool           `gorm:"not null;column:is_correct" json:"is_correct"`
	Attempted      bool           `gorm:"not null;column:attempted" json:"attempted"`
	TimeTakenSec   int            `gorm:"not null;default:0;column:time_taken_sec" json:"time_taken_sec"`
	MarksAwarded   float64        `gorm:"not null;default:0;column:marks_awarded" json:"marks_awarded"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TestAnswer) TableName() string { return "test_answer" }
