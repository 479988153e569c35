package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProgressStatusNotStarted = "not_started"
	ProgressStatusInProgress = "in_progress"
	ProgressStatusCompleted  = "completed"
)

// VideoModule is one unit of the Phase I video curriculum.
type VideoModule struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Sequence int       `gorm:"column:sequence;not null;uniqueIndex" json:"sequence"`
	Title    string    `gorm:"column:title;not null" json:"title"`
	Summary  string    `gorm:"column:summary;type:text;not null;default:''" json:"summary"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VideoModule) TableName() string { return "video_module" }

type ModuleProgress struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID     uuid.UUID `gorm:"type:uuid;not null;index;index:idx_module_progress_student_module,unique,priority:1" json:"student_id"`
	VideoModuleID uuid.UUID `gorm:"type:uuid;not null;index:idx_module_progress_student_module,unique,priority:2" json:"video_module_id"`

	Status          string `gorm:"column:status;not null;default:'not_started';index" json:"status"`
	PercentComplete int    `gorm:"column:percent_complete;not null;default:0" json:"percent_complete"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ModuleProgress) TableName() string { return "module_progress" }

// ResearchProject is the Phase II work item; one row per student.
type ResearchProject struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`

	Title   string `gorm:"column:title;not null" json:"title"`
	Summary string `gorm:"column:summary;type:text;not null;default:''" json:"summary"`
	Status  string `gorm:"column:status;not null;default:'proposal';index" json:"status"`

	// Milestones is a JSON array of {title, due, done}.
	Milestones datatypes.JSON `gorm:"type:jsonb;column:milestones;not null;default:'[]'" json:"milestones"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ResearchProject) TableName() string { return "research_project" }

const (
	NoteSourceAssistant = "assistant"
	NoteSourceMentor    = "mentor"
)

// MentorNote is a dashboard-visible note; the assistant writes them through
// the save_mentor_note and flag_for_mentor tools.
type MentorNote struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`

	Body    string `gorm:"column:body;type:text;not null" json:"body"`
	Source  string `gorm:"column:source;not null;default:'assistant'" json:"source"`
	Flagged bool   `gorm:"column:flagged;not null;default:false;index" json:"flagged"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (MentorNote) TableName() string { return "mentor_note" }
