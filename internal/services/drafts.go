package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/apierr"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

// DraftService is the mentor review surface. Every agent reply starts as
// a draft; nothing reaches the student until Approve.
type DraftService interface {
	ListPending(dbc dbctx.Context, studentID *uuid.UUID, limit int) ([]*types.Message, error)
	Get(dbc dbctx.Context, draftID uuid.UUID) (*types.Message, error)
	// Edit rewrites a pending draft's content. Approved messages are
	// immutable.
	Edit(dbc dbctx.Context, draftID uuid.UUID, content string) (*types.Message, error)
	// Approve releases the draft to the student, optionally with edited
	// content applied in the same transition.
	Approve(dbc dbctx.Context, draftID uuid.UUID, editedContent string) (*types.Message, error)
	// Reject soft-deletes the draft; the student never sees it.
	Reject(dbc dbctx.Context, draftID uuid.UUID, reason string) error
	// Regenerate discards the draft and enqueues a fresh generation from
	// the same trigger message.
	Regenerate(dbc dbctx.Context, draftID uuid.UUID) (*types.JobRun, error)
}

type draftService struct {
	db  *gorm.DB
	log *logger.Logger

	messages repos.MessageRepo
	jobs     JobService
	notify   ChatNotifier
}

func NewDraftService(
	db *gorm.DB,
	baseLog *logger.Logger,
	messageRepo repos.MessageRepo,
	jobService JobService,
	notify ChatNotifier,
) DraftService {
	return &draftService{
		db:       db,
		log:      baseLog.With("service", "DraftService"),
		messages: messageRepo,
		jobs:     jobService,
		notify:   notify,
	}
}

func (s *draftService) ListPending(dbc dbctx.Context, studentID *uuid.UUID, limit int) ([]*types.Message, error) {
	if s.messages == nil {
		return nil, fmt.Errorf("message repo not wired")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.messages.ListDrafts(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, studentID, limit)
}

func (s *draftService) Get(dbc dbctx.Context, draftID uuid.UUID) (*types.Message, error) {
	if draftID == uuid.Nil {
		return nil, fmt.Errorf("missing draft id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	msg, err := s.messages.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, draftID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.Role != types.MessageRoleAgent {
		return nil, apierr.NotFound("draft_not_found")
	}
	return msg, nil
}

func (s *draftService) Edit(dbc dbctx.Context, draftID uuid.UUID, content string) (*types.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("missing content")
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return nil, fmt.Errorf("content too large")
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var updated *types.Message
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		draft, err := s.pendingDraft(inner, draftID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		meta := mergeMetadata(draft.Metadata, map[string]any{"mentor_edited": true})
		if err := s.messages.UpdateFields(inner, draftID, map[string]interface{}{
			"content":    content,
			"metadata":   meta,
			"updated_at": now,
		}); err != nil {
			return err
		}

		draft.Content = content
		draft.Metadata = meta
		draft.UpdatedAt = now
		updated = draft
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *draftService) Approve(dbc dbctx.Context, draftID uuid.UUID, editedContent string) (*types.Message, error) {
	editedContent = strings.TrimSpace(editedContent)
	if editedContent != "" && utf8.RuneCountInString(editedContent) > maxMessageRunes {
		return nil, fmt.Errorf("content too large")
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var approved *types.Message
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		draft, err := s.pendingDraft(inner, draftID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":      types.MessageStatusApproved,
			"approved_at": now,
			"updated_at":  now,
		}
		metaUpdates := map[string]any{"approved_at": now.Format(time.RFC3339)}
		if editedContent != "" && editedContent != draft.Content {
			updates["content"] = editedContent
			metaUpdates["mentor_edited"] = true
			draft.Content = editedContent
		}
		meta := mergeMetadata(draft.Metadata, metaUpdates)
		updates["metadata"] = meta

		if err := s.messages.UpdateFields(inner, draftID, updates); err != nil {
			return err
		}

		draft.Status = types.MessageStatusApproved
		draft.ApprovedAt = &now
		draft.Metadata = meta
		draft.UpdatedAt = now
		approved = draft
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.DraftApproved(approved.StudentID, approved)
	}
	s.log.Info("draft approved", "draft_id", draftID, "student_id", approved.StudentID)
	return approved, nil
}

func (s *draftService) Reject(dbc dbctx.Context, draftID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var studentID uuid.UUID
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		draft, err := s.pendingDraft(inner, draftID)
		if err != nil {
			return err
		}
		studentID = draft.StudentID

		// Soft delete keeps the row for audit; the rejection reason rides
		// along in metadata.
		if reason != "" {
			meta := mergeMetadata(draft.Metadata, map[string]any{"rejected_reason": reason})
			if err := s.messages.UpdateFields(inner, draftID, map[string]interface{}{"metadata": meta}); err != nil {
				return err
			}
		}
		return s.messages.SoftDelete(inner, draftID)
	})
	if err != nil {
		return err
	}

	if s.notify != nil {
		s.notify.DraftRejected(studentID, draftID, reason)
	}
	s.log.Info("draft rejected", "draft_id", draftID, "student_id", studentID)
	return nil
}

func (s *draftService) Regenerate(dbc dbctx.Context, draftID uuid.UUID) (*types.JobRun, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("job service not wired")
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	var (
		job       *types.JobRun
		studentID uuid.UUID
	)
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		draft, err := s.pendingDraft(inner, draftID)
		if err != nil {
			return err
		}
		studentID = draft.StudentID

		entityID := draft.StudentID
		has, err := s.jobs.HasRunnableForEntity(inner, draft.StudentID, "student", entityID, JobTypeDraftGenerate)
		if err != nil {
			return err
		}
		if has {
			return apierr.Conflict("draft_generation_pending", "draft generation already pending")
		}

		triggerID := triggerMessageID(draft.Metadata)
		if triggerID == uuid.Nil {
			latest, err := s.messages.LatestByStudentAndRole(inner, draft.StudentID, types.MessageRoleStudent)
			if err != nil {
				return err
			}
			if latest == nil {
				return fmt.Errorf("no student message to answer")
			}
			triggerID = latest.ID
		}

		if err := s.messages.SoftDelete(inner, draftID); err != nil {
			return err
		}

		job, err = s.jobs.Enqueue(inner, draft.StudentID, JobTypeDraftGenerate, "student", &entityID, map[string]any{
			"student_id": draft.StudentID.String(),
			"message_id": triggerID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.DraftRejected(studentID, draftID, "regenerated")
	}
	if job != nil {
		s.jobs.NotifyCreated(studentID, job)
	}
	return job, nil
}

// pendingDraft loads the message and enforces the review-state contract:
// exists, agent-authored, still a draft.
func (s *draftService) pendingDraft(dbc dbctx.Context, draftID uuid.UUID) (*types.Message, error) {
	if draftID == uuid.Nil {
		return nil, fmt.Errorf("missing draft id")
	}
	msg, err := s.messages.GetByID(dbc, draftID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.Role != types.MessageRoleAgent {
		return nil, apierr.NotFound("draft_not_found")
	}
	if msg.Status != types.MessageStatusDraft {
		return nil, apierr.Conflict("draft_not_pending", "draft already %s", msg.Status)
	}
	return msg, nil
}

func triggerMessageID(raw datatypes.JSON) uuid.UUID {
	if len(raw) == 0 {
		return uuid.Nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(meta["trigger_message_id"])))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func mergeMetadata(raw datatypes.JSON, updates map[string]any) datatypes.JSON {
	meta := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}
	for k, v := range updates {
		meta[k] = v
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return raw
	}
	return datatypes.JSON(b)
}
