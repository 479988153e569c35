package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type VideoModuleRepo interface {
	Create(dbc dbctx.Context, modules []*types.VideoModule) ([]*types.VideoModule, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoModule, error)
	GetBySequence(dbc dbctx.Context, sequence int) (*types.VideoModule, error)
	ListOrdered(dbc dbctx.Context) ([]*types.VideoModule, error)
}

type videoModuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoModuleRepo(db *gorm.DB, baseLog *logger.Logger) VideoModuleRepo {
	return &videoModuleRepo{
		db:  db,
		log: baseLog.With("repo", "VideoModuleRepo"),
	}
}

func (r *videoModuleRepo) Create(dbc dbctx.Context, modules []*types.VideoModule) ([]*types.VideoModule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(modules) == 0 {
		return []*types.VideoModule{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (r *videoModuleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoModule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.VideoModule
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *videoModuleRepo) GetBySequence(dbc dbctx.Context, sequence int) (*types.VideoModule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var m types.VideoModule
	err := transaction.WithContext(dbc.Ctx).Where("sequence = ?", sequence).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *videoModuleRepo) ListOrdered(dbc dbctx.Context) ([]*types.VideoModule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.VideoModule
	if err := transaction.WithContext(dbc.Ctx).
		Order("sequence ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
