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

type ModuleProgressRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.ModuleProgress) ([]*types.ModuleProgress, error)
	GetByStudentAndModule(dbc dbctx.Context, studentID, videoModuleID uuid.UUID) (*types.ModuleProgress, error)
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.ModuleProgress, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
}

type moduleProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleProgressRepo(db *gorm.DB, baseLog *logger.Logger) ModuleProgressRepo {
	return &moduleProgressRepo{
		db:  db,
		log: baseLog.With("repo", "ModuleProgressRepo"),
	}
}

// Upsert inserts progress rows, updating status and percent_complete when a
// row for the same (student_id, video_module_id) pair already exists.
func (r *moduleProgressRepo) Upsert(dbc dbctx.Context, rows []*types.ModuleProgress) ([]*types.ModuleProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ModuleProgress{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "video_module_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "percent_complete", "updated_at"}),
		}).
		Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *moduleProgressRepo) GetByStudentAndModule(dbc dbctx.Context, studentID, videoModuleID uuid.UUID) (*types.ModuleProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil || videoModuleID == uuid.Nil {
		return nil, nil
	}
	var p types.ModuleProgress
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ? AND video_module_id = ?", studentID, videoModuleID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *moduleProgressRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.ModuleProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil {
		return []*types.ModuleProgress{}, nil
	}
	var out []*types.ModuleProgress
	if err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleProgressRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
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
		Model(&types.ModuleProgress{}).
		Where("id = ?", id).
		Updates(fields).Error
}
