package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subject struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExamID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"exam_id"`
	Exam               *Exam          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExamID;references:ID" json:"exam,omitempty"`
	Name               string         `gorm:"not null;column:name" json:"name"`
	AvgAccuracyPercent float64        `gorm:"not null;default:0;column:avg_accuracy_percent" json:"avg_accuracy_percent"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Subject) TableName() string { return "subject" }

// Topic carries ExamWeightage, the configured percentage share of the
// exam's question distribution used by weightage sampling.
type Topic struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject            *Subject       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	Name               string         `gorm:"not null;column:name" json:"name"`
	ExamWeightage      float64        `gorm:"not null;default:0;column:exam_weightage" json:"exam_weightage"`
	AvgAccuracyPercent float64        `gorm:"not null;default:0;column:avg_accuracy_percent" json:"avg_accuracy_percent"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Topic) TableName() string { return "topic" }

type Subtopic struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"topic_id"`
	Topic              *Topic         `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`
	Name               string         `gorm:"not null;column:name" json:"name"`
	AvgAccuracyPercent float64        `gorm:"not null;default:0;column:avg_accuracy_percent" json:"avg_accuracy_percent"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Subtopic) TableName() string { return "subtopic" }
