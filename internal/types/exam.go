package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Exam struct {
	ID                        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name                      string         `gorm:"uniqueIndex;not null;column:name" json:"name"`
	TotalQuestions            int            `gorm:"not null;column:total_questions" json:"total_questions"`
	DurationMinutes           int            `gorm:"not null;column:duration_minutes" json:"duration_minutes"`
	MarksPerCorrect           float64        `gorm:"not null;default:4;column:marks_per_correct" json:"marks_per_correct"`
	NegativeMarksPerIncorrect float64        `gorm:"not null;default:1;column:negative_marks_per_incorrect" json:"negative_marks_per_incorrect"`
	CreatedAt                 time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                 time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt                 gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Exam) TableName() string { return "exam" }

// ExamSession is one historical sitting of an exam; questions tagged
// with a session form that session's past-year paper.
type ExamSession struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExamID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"exam_id"`
	Exam      *Exam          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`
	Label     string         `gorm:"not null;column:label" json:"label"`
	HeldOn    time.Time      `gorm:"column:held_on" json:"held_on"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExamSession) TableName() string { return "exam_session" }
