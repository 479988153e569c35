package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type StudentService interface {
	Create(dbc dbctx.Context, name, email, phase string) (*types.Student, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Student, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Student, error)
	// SetPhase moves a student between curriculum phases, which changes
	// the assistant's prompt and tool set on the next draft.
	SetPhase(dbc dbctx.Context, id uuid.UUID, phase string) (*types.Student, error)
}

type studentService struct {
	db  *gorm.DB
	log *logger.Logger

	students repos.StudentRepo
}

func NewStudentService(db *gorm.DB, baseLog *logger.Logger, studentRepo repos.StudentRepo) StudentService {
	return &studentService{
		db:       db,
		log:      baseLog.With("service", "StudentService"),
		students: studentRepo,
	}
}

func (s *studentService) Create(dbc dbctx.Context, name, email, phase string) (*types.Student, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	phase = strings.TrimSpace(phase)
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email")
	}
	if phase == "" {
		phase = types.PhaseOne
	}
	if !types.ValidPhase(phase) {
		return nil, fmt.Errorf("invalid phase %q", phase)
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}

	existing, err := s.students.GetByEmails(repoCtx, []string{email})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("email already registered")
	}

	now := time.Now().UTC()
	student := &types.Student{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phase:     phase,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.students.Create(repoCtx, []*types.Student{student})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 || created[0] == nil {
		return nil, fmt.Errorf("failed to create student")
	}
	s.log.Info("student created", "student_id", created[0].ID, "phase", phase)
	return created[0], nil
}

func (s *studentService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Student, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	student, err := s.students.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("student not found")
	}
	return student, nil
}

func (s *studentService) List(dbc dbctx.Context, limit, offset int) ([]*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.students.List(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, limit, offset)
}

func (s *studentService) SetPhase(dbc dbctx.Context, id uuid.UUID, phase string) (*types.Student, error) {
	phase = strings.TrimSpace(phase)
	if !types.ValidPhase(phase) {
		return nil, fmt.Errorf("invalid phase %q", phase)
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}

	student, err := s.Get(repoCtx, id)
	if err != nil {
		return nil, err
	}
	if student.Phase == phase {
		return student, nil
	}

	now := time.Now().UTC()
	if err := s.students.UpdateFields(repoCtx, id, map[string]interface{}{
		"phase":      phase,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	student.Phase = phase
	student.UpdatedAt = now
	s.log.Info("student phase changed", "student_id", id, "phase", phase)
	return student, nil
}
