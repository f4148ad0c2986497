package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is an immutable catalog entry. This service never writes
// questions; authoring happens in a separate ingestion tool.
type Question struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExamID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"exam_id"`
	SubtopicID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"subtopic_id"`
	Subtopic      *Subtopic      `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubtopicID;references:ID" json:"subtopic,omitempty"`
	ExamSessionID *uuid.UUID     `gorm:"type:uuid;index" json:"exam_session_id,omitempty"`
	Text          string         `gorm:"not null;column:text" json:"text"`
	Options       datatypes.JSON `gorm:"type:jsonb;column:options" json:"options"`
	CorrectOption string         `gorm:"not null;column:correct_option" json:"-"`
	Solution      string         `gorm:"column:solution" json:"-"`
	Difficulty    Difficulty     `gorm:"not null;index;column:difficulty" json:"difficulty"`
	Embedding     []float32      `gorm:"type:jsonb;serializer:json;column:embedding" json:"-"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }

// QuestionPath is the resolved dimensional lineage of a question, used
// by the submission engine to address every aggregate it touches.
type QuestionPath struct {
	QuestionID uuid.UUID
	SubtopicID uuid.UUID
	TopicID    uuid.UUID
	SubjectID  uuid.UUID
	Difficulty Difficulty
}
