package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// PhaseOne is the video-learning stage of the curriculum.
	PhaseOne = "phase_i"
	// PhaseTwo is the research-project stage.
	PhaseTwo = "phase_ii"
)

func ValidPhase(phase string) bool {
	return phase == PhaseOne || phase == PhaseTwo
}

type Student struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name  string    `gorm:"column:name;not null" json:"name"`
	Email string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phase string    `gorm:"column:phase;not null;default:'phase_i';index" json:"phase"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Student) TableName() string { return "student" }
