package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageRoleStudent = "student"
	MessageRoleAgent   = "agent"

	// MessageStatusSent is a delivered student message.
	MessageStatusSent = "sent"
	// MessageStatusDraft is an agent reply awaiting mentor approval.
	MessageStatusDraft = "draft"
	// MessageStatusApproved is an agent reply released to the student.
	MessageStatusApproved = "approved"
)

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`

	Role   string `gorm:"column:role;not null;index" json:"role"`
	Status string `gorm:"column:status;not null;default:'sent';index" json:"status"`

	// Subject is derived from the first content line at write time and kept
	// raw (un-normalized); thread grouping normalizes on read.
	Subject string `gorm:"column:subject;not null;default:''" json:"subject"`
	Content string `gorm:"column:content;type:text;not null;default:''" json:"content"`

	// Metadata carries draft provenance: provider, model, tool trace,
	// iteration count, mentor edit/approval notes.
	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	ApprovedAt *time.Time `gorm:"column:approved_at;index" json:"approved_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Message) TableName() string { return "message" }
