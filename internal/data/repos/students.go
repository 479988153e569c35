package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type StudentRepo interface {
	Create(dbc dbctx.Context, students []*types.Student) ([]*types.Student, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Student, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Student, error)
	GetByEmails(dbc dbctx.Context, emails []string) ([]*types.Student, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Student, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type studentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return &studentRepo{
		db:  db,
		log: baseLog.With("repo", "StudentRepo"),
	}
}

func (r *studentRepo) Create(dbc dbctx.Context, students []*types.Student) ([]*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(students) == 0 {
		return []*types.Student{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var student types.Student
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Student
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studentRepo) GetByEmails(dbc dbctx.Context, emails []string) ([]*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Student
	if len(emails) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("email IN ?", emails).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studentRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Student, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.Student
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Student{}).
		Where("id = ?", id).
		Updates(updates).Error
}
