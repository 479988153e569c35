package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, messages []*types.Message) ([]*types.Message, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	// ListByStudent returns the flat message list in chronological order,
	// which is the input contract of the thread builder.
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.Message, error)
	// ListRecentByStudent returns the newest limit messages, re-ordered
	// chronologically. Used to window conversation history for the model.
	ListRecentByStudent(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.Message, error)
	// ListDrafts returns agent messages awaiting review, newest first.
	// studentID narrows to one student when non-nil.
	ListDrafts(dbc dbctx.Context, studentID *uuid.UUID, limit int) ([]*types.Message, error)
	LatestByStudentAndRole(dbc dbctx.Context, studentID uuid.UUID, role string) (*types.Message, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{
		db:  db,
		log: baseLog.With("repo", "MessageRepo"),
	}
}

func (r *messageRepo) Create(dbc dbctx.Context, messages []*types.Message) ([]*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(messages) == 0 {
		return []*types.Message{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var msg types.Message
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Message
	if studentID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListRecentByStudent(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Message
	if studentID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 40
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *messageRepo) ListDrafts(dbc dbctx.Context, studentID *uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("role = ? AND status = ?", types.MessageRoleAgent, types.MessageStatusDraft).
		Order("created_at DESC").
		Limit(limit)
	if studentID != nil && *studentID != uuid.Nil {
		q = q.Where("student_id = ?", *studentID)
	}
	var out []*types.Message
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) LatestByStudentAndRole(dbc dbctx.Context, studentID uuid.UUID, role string) (*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil || role == "" {
		return nil, nil
	}
	var msg types.Message
	err := transaction.WithContext(dbc.Ctx).
		Where("student_id = ? AND role = ?", studentID, role).
		Order("created_at DESC").
		Limit(1).
		Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

func (r *messageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *messageRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Message{}).Error
}
