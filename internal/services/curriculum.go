package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

// Milestone is one entry of a research project's milestone list.
type Milestone struct {
	Title string `json:"title"`
	Due   string `json:"due,omitempty"`
	Done  bool   `json:"done"`
}

// CurriculumService manages the Phase I module catalog, per-student
// progress, Phase II research projects and mentor notes. These are the
// same records the assistant reads through its tools.
type CurriculumService interface {
	CreateModule(dbc dbctx.Context, sequence int, title, summary string) (*types.VideoModule, error)
	ListModules(dbc dbctx.Context) ([]*types.VideoModule, error)
	RecordProgress(dbc dbctx.Context, studentID uuid.UUID, sequence int, status string, percent int) (*types.ModuleProgress, error)
	UpsertProject(dbc dbctx.Context, studentID uuid.UUID, title, summary, status string, milestones []Milestone) (*types.ResearchProject, error)
	GetProject(dbc dbctx.Context, studentID uuid.UUID) (*types.ResearchProject, error)
	ListNotes(dbc dbctx.Context, studentID uuid.UUID, flaggedOnly bool) ([]*types.MentorNote, error)
	CreateNote(dbc dbctx.Context, studentID uuid.UUID, body string, flagged bool) (*types.MentorNote, error)
}

type curriculumService struct {
	db  *gorm.DB
	log *logger.Logger

	students repos.StudentRepo
	modules  repos.VideoModuleRepo
	progress repos.ModuleProgressRepo
	projects repos.ResearchProjectRepo
	notes    repos.MentorNoteRepo
}

func NewCurriculumService(
	db *gorm.DB,
	baseLog *logger.Logger,
	studentRepo repos.StudentRepo,
	moduleRepo repos.VideoModuleRepo,
	progressRepo repos.ModuleProgressRepo,
	projectRepo repos.ResearchProjectRepo,
	noteRepo repos.MentorNoteRepo,
) CurriculumService {
	return &curriculumService{
		db:       db,
		log:      baseLog.With("service", "CurriculumService"),
		students: studentRepo,
		modules:  moduleRepo,
		progress: progressRepo,
		projects: projectRepo,
		notes:    noteRepo,
	}
}

func (s *curriculumService) CreateModule(dbc dbctx.Context, sequence int, title, summary string) (*types.VideoModule, error) {
	title = strings.TrimSpace(title)
	if sequence <= 0 {
		return nil, fmt.Errorf("sequence must be positive")
	}
	if title == "" {
		return nil, fmt.Errorf("missing title")
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}

	existing, err := s.modules.GetBySequence(repoCtx, sequence)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("sequence %d already taken", sequence)
	}

	now := time.Now().UTC()
	vm := &types.VideoModule{
		ID:        uuid.New(),
		Sequence:  sequence,
		Title:     title,
		Summary:   strings.TrimSpace(summary),
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.modules.Create(repoCtx, []*types.VideoModule{vm})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 || created[0] == nil {
		return nil, fmt.Errorf("failed to create module")
	}
	return created[0], nil
}

func (s *curriculumService) ListModules(dbc dbctx.Context) ([]*types.VideoModule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.modules.ListOrdered(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction})
}

func (s *curriculumService) RecordProgress(dbc dbctx.Context, studentID uuid.UUID, sequence int, status string, percent int) (*types.ModuleProgress, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	status = strings.TrimSpace(status)
	switch status {
	case types.ProgressStatusNotStarted, types.ProgressStatusInProgress, types.ProgressStatusCompleted:
	default:
		return nil, fmt.Errorf("invalid status %q", status)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if status == types.ProgressStatusCompleted {
		percent = 100
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}

	student, err := s.students.GetByID(repoCtx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("student not found")
	}
	vm, err := s.modules.GetBySequence(repoCtx, sequence)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, fmt.Errorf("no module with sequence %d", sequence)
	}

	now := time.Now().UTC()
	row := &types.ModuleProgress{
		ID:              uuid.New(),
		StudentID:       studentID,
		VideoModuleID:   vm.ID,
		Status:          status,
		PercentComplete: percent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	rows, err := s.progress.Upsert(repoCtx, []*types.ModuleProgress{row})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("failed to record progress")
	}
	return rows[0], nil
}

func (s *curriculumService) UpsertProject(dbc dbctx.Context, studentID uuid.UUID, title, summary, status string, milestones []Milestone) (*types.ResearchProject, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("missing title")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "proposal"
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}

	student, err := s.students.GetByID(repoCtx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("student not found")
	}

	if milestones == nil {
		milestones = []Milestone{}
	}
	milestonesJSON, err := json.Marshal(milestones)
	if err != nil {
		return nil, fmt.Errorf("marshal milestones: %w", err)
	}

	now := time.Now().UTC()
	project := &types.ResearchProject{
		ID:         uuid.New(),
		StudentID:  studentID,
		Title:      title,
		Summary:    strings.TrimSpace(summary),
		Status:     status,
		Milestones: datatypes.JSON(milestonesJSON),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rows, err := s.projects.Upsert(repoCtx, []*types.ResearchProject{project})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("failed to upsert project")
	}
	return rows[0], nil
}

func (s *curriculumService) GetProject(dbc dbctx.Context, studentID uuid.UUID) (*types.ResearchProject, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.projects.GetByStudentID(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, studentID)
}

func (s *curriculumService) ListNotes(dbc dbctx.Context, studentID uuid.UUID, flaggedOnly bool) ([]*types.MentorNote, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.notes.ListByStudent(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, studentID, flaggedOnly)
}

func (s *curriculumService) CreateNote(dbc dbctx.Context, studentID uuid.UUID, body string, flagged bool) (*types.MentorNote, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("missing body")
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}

	note := &types.MentorNote{
		ID:        uuid.New(),
		StudentID: studentID,
		Body:      body,
		Source:    types.NoteSourceMentor,
		Flagged:   flagged,
		CreatedAt: time.Now().UTC(),
	}
	rows, err := s.notes.Create(repoCtx, []*types.MentorNote{note})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("failed to create note")
	}
	return rows[0], nil
}
