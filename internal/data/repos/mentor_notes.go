package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type MentorNoteRepo interface {
	Create(dbc dbctx.Context, notes []*types.MentorNote) ([]*types.MentorNote, error)
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID, flaggedOnly bool) ([]*types.MentorNote, error)
}

type mentorNoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMentorNoteRepo(db *gorm.DB, baseLog *logger.Logger) MentorNoteRepo {
	return &mentorNoteRepo{
		db:  db,
		log: baseLog.With("repo", "MentorNoteRepo"),
	}
}

func (r *mentorNoteRepo) Create(dbc dbctx.Context, notes []*types.MentorNote) ([]*types.MentorNote, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(notes) == 0 {
		return []*types.MentorNote{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *mentorNoteRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID, flaggedOnly bool) ([]*types.MentorNote, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil {
		return []*types.MentorNote{}, nil
	}
	query := transaction.WithContext(dbc.Ctx).Where("student_id = ?", studentID)
	if flaggedOnly {
		query = query.Where("flagged = ?", true)
	}
	var out []*types.MentorNote
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
