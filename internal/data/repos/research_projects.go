package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type ResearchProjectRepo interface {
	Upsert(dbc dbctx.Context, projects []*types.ResearchProject) ([]*types.ResearchProject, error)
	GetByStudentID(dbc dbctx.Context, studentID uuid.UUID) (*types.ResearchProject, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
}

type researchProjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResearchProjectRepo(db *gorm.DB, baseLog *logger.Logger) ResearchProjectRepo {
	return &researchProjectRepo{
		db:  db,
		log: baseLog.With("repo", "ResearchProjectRepo"),
	}
}

// Upsert inserts projects, replacing title, summary, status and milestones
// when the student already has one. Each student holds at most one project.
func (r *researchProjectRepo) Upsert(dbc dbctx.Context, projects []*types.ResearchProject) ([]*types.ResearchProject, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(projects) == 0 {
		return []*types.ResearchProject{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "status", "milestones", "updated_at"}),
		}).
		Create(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *researchProjectRepo) GetByStudentID(dbc dbctx.Context, studentID uuid.UUID) (*types.ResearchProject, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil {
		return nil, nil
	}
	var p types.ResearchProject
	err := transaction.WithContext(dbc.Ctx).Where("student_id = ?", studentID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *researchProjectRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ResearchProject{}).
		Where("id = ?", id).
		Updates(fields).Error
}
