package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/modules/chat"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

const (
	// JobTypeDraftGenerate is the background job that turns a student
	// message into an agent draft.
	JobTypeDraftGenerate = "draft_generate"

	maxMessageRunes = 20000
)

type ChatService interface {
	// SendMessage stores a student message and enqueues draft generation.
	// The returned job is nil when generation is already pending for the
	// student; the stored message is never rejected for that reason.
	SendMessage(dbc dbctx.Context, studentID uuid.UUID, content string) (*types.Message, *types.JobRun, error)
	ListThreads(dbc dbctx.Context, studentID uuid.UUID) ([]*chat.Thread, error)
	ListMessages(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.Message, error)
}

type chatService struct {
	db  *gorm.DB
	log *logger.Logger

	students repos.StudentRepo
	messages repos.MessageRepo
	jobs     JobService
	notify   ChatNotifier
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	studentRepo repos.StudentRepo,
	messageRepo repos.MessageRepo,
	jobService JobService,
	notify ChatNotifier,
) ChatService {
	return &chatService{
		db:       db,
		log:      baseLog.With("service", "ChatService"),
		students: studentRepo,
		messages: messageRepo,
		jobs:     jobService,
		notify:   notify,
	}
}

func (s *chatService) SendMessage(dbc dbctx.Context, studentID uuid.UUID, content string) (*types.Message, *types.JobRun, error) {
	if studentID == uuid.Nil {
		return nil, nil, fmt.Errorf("missing student id")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, fmt.Errorf("missing content")
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return nil, nil, fmt.Errorf("message too large")
	}
	if s.students == nil || s.messages == nil || s.jobs == nil {
		return nil, nil, fmt.Errorf("chat service not fully wired")
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var (
		msg *types.Message
		job *types.JobRun
	)

	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}

		student, err := s.students.GetByID(inner, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return fmt.Errorf("student not found")
		}

		now := time.Now().UTC()
		msg = &types.Message{
			ID:        uuid.New(),
			StudentID: studentID,
			Role:      types.MessageRoleStudent,
			Status:    types.MessageStatusSent,
			Subject:   chat.ExtractSubject(content),
			Content:   content,
			Metadata:  datatypes.JSON([]byte(`{}`)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.messages.Create(inner, []*types.Message{msg}); err != nil {
			return err
		}

		// One runnable generation per student: a queued job will window
		// the whole conversation when it runs, this message included.
		entityID := studentID
		has, err := s.jobs.HasRunnableForEntity(inner, studentID, "student", entityID, JobTypeDraftGenerate)
		if err != nil {
			return err
		}
		if has {
			s.log.Debug("draft generation already pending", "student_id", studentID, "message_id", msg.ID)
			return nil
		}

		job, err = s.jobs.Enqueue(inner, studentID, JobTypeDraftGenerate, "student", &entityID, map[string]any{
			"student_id": studentID.String(),
			"message_id": msg.ID.String(),
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if s.notify != nil {
		s.notify.MessageCreated(studentID, msg)
	}
	if job != nil {
		s.jobs.NotifyCreated(studentID, job)
	}
	return msg, job, nil
}

func (s *chatService) ListThreads(dbc dbctx.Context, studentID uuid.UUID) ([]*chat.Thread, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	if s.messages == nil {
		return nil, fmt.Errorf("message repo not wired")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	rows, err := s.messages.ListByStudent(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, studentID, 0)
	if err != nil {
		return nil, err
	}
	return chat.BuildThreads(rows), nil
}

func (s *chatService) ListMessages(dbc dbctx.Context, studentID uuid.UUID, limit int) ([]*types.Message, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student id")
	}
	if s.messages == nil {
		return nil, fmt.Errorf("message repo not wired")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.messages.ListByStudent(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, studentID, limit)
}
