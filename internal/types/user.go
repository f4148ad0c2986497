package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User rows are owned by the identity service; this core only reads
// the id for ownership checks and maintains the derived streak.
type User struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email      string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Name       string         `gorm:"column:name" json:"name"`
	StreakDays int            `gorm:"not null;default:0;column:streak_days" json:"streak_days"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
