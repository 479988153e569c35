package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/realtime"
)

// =========================
// Job notifier
// =========================

type JobNotifier interface {
	JobCreated(studentID uuid.UUID, job *types.JobRun)
	JobProgress(studentID uuid.UUID, job *types.JobRun, stage string, progress int, message string)
	JobFailed(studentID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
	JobDone(studentID uuid.UUID, job *types.JobRun)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) JobCreated(studentID uuid.UUID, job *types.JobRun) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: studentID.String(),
		Event:   realtime.SSEEventJobCreated,
		Data:    map[string]any{"job": job},
	})
}

func (n *jobNotifier) JobProgress(studentID uuid.UUID, job *types.JobRun, stage string, progress int, message string) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: studentID.String(),
		Event:   realtime.SSEEventJobProgress,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"progress": progress,
			"message":  message,
			"job":      job,
		},
	})
}

func (n *jobNotifier) JobFailed(studentID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: studentID.String(),
		Event:   realtime.SSEEventJobFailed,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"error":    errorMessage,
			"job":      job,
		},
	})
}

func (n *jobNotifier) JobDone(studentID uuid.UUID, job *types.JobRun) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: studentID.String(),
		Event:   realtime.SSEEventJobDone,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"job":      job,
		},
	})
}

// =========================
// Chat notifier
// =========================

// ChatNotifier routes conversation events. Drafts stay invisible to the
// student until approval, so draft lifecycle events reach the mentor
// channel only; approval is the moment the student's channel hears about
// the reply.
type ChatNotifier interface {
	MessageCreated(studentID uuid.UUID, msg *types.Message)
	DraftCreated(studentID uuid.UUID, draft *types.Message, job *types.JobRun)
	DraftApproved(studentID uuid.UUID, msg *types.Message)
	DraftRejected(studentID uuid.UUID, draftID uuid.UUID, reason string)
}

type chatNotifier struct {
	emit SSEEmitter
}

func NewChatNotifier(emit SSEEmitter) ChatNotifier {
	return &chatNotifier{emit: emit}
}

func (n *chatNotifier) MessageCreated(studentID uuid.UUID, msg *types.Message) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	data := map[string]any{"message": msg}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: studentID.String(),
		Event:   realtime.SSEEventChatMessageCreated,
		Data:    data,
	})
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.MentorChannel,
		Event:   realtime.SSEEventChatMessageCreated,
		Data:    data,
	})
}

func (n *chatNotifier) DraftCreated(studentID uuid.UUID, draft *types.Message, job *types.JobRun) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.MentorChannel,
		Event:   realtime.SSEEventDraftCreated,
		Data: map[string]any{
			"student_id": studentID,
			"draft":      draft,
			"job_id":     safeJobID(job),
		},
	})
}

func (n *chatNotifier) DraftApproved(studentID uuid.UUID, msg *types.Message) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	data := map[string]any{
		"student_id": studentID,
		"message":    msg,
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: studentID.String(),
		Event:   realtime.SSEEventDraftApproved,
		Data:    data,
	})
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.MentorChannel,
		Event:   realtime.SSEEventDraftApproved,
		Data:    data,
	})
}

func (n *chatNotifier) DraftRejected(studentID uuid.UUID, draftID uuid.UUID, reason string) {
	if n == nil || n.emit == nil || studentID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.MentorChannel,
		Event:   realtime.SSEEventDraftRejected,
		Data: map[string]any{
			"student_id": studentID,
			"draft_id":   draftID,
			"reason":     reason,
		},
	})
}

// =========================
// helpers
// =========================

func safeJobID(job *types.JobRun) uuid.UUID {
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

func safeJobType(job *types.JobRun) string {
	if job == nil {
		return ""
	}
	return job.JobType
}
