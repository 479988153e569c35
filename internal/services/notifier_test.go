package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/realtime"
)

func TestJobNotifierEventsStayOnStudentChannel(t *testing.T) {
	emit := &recordingEmitter{}
	n := NewJobNotifier(emit)
	studentID := uuid.New()
	job := &types.JobRun{ID: uuid.New(), JobType: JobTypeDraftGenerate}

	n.JobCreated(studentID, job)
	n.JobProgress(studentID, job, "draft", 40, "Calling the model")
	n.JobFailed(studentID, job, "run", "model unavailable")
	n.JobDone(studentID, job)

	if len(emit.msgs) != 4 {
		t.Fatalf("emit count: want=4 got=%d", len(emit.msgs))
	}
	wantEvents := []realtime.SSEEvent{
		realtime.SSEEventJobCreated,
		realtime.SSEEventJobProgress,
		realtime.SSEEventJobFailed,
		realtime.SSEEventJobDone,
	}
	for i, msg := range emit.msgs {
		if msg.Channel != studentID.String() {
			t.Fatalf("msg %d channel: want=%q got=%q", i, studentID.String(), msg.Channel)
		}
		if msg.Event != wantEvents[i] {
			t.Fatalf("msg %d event: want=%q got=%q", i, wantEvents[i], msg.Event)
		}
	}
}

func TestJobNotifierProgressPayload(t *testing.T) {
	emit := &recordingEmitter{}
	n := NewJobNotifier(emit)
	studentID := uuid.New()
	job := &types.JobRun{ID: uuid.New(), JobType: JobTypeDraftGenerate}

	n.JobProgress(studentID, job, "draft", 40, "Calling the model")

	if len(emit.msgs) != 1 {
		t.Fatalf("emit count: want=1 got=%d", len(emit.msgs))
	}
	data, ok := emit.msgs[0].Data.(map[string]any)
	if !ok {
		t.Fatalf("data type: got=%T", emit.msgs[0].Data)
	}
	if data["job_id"] != job.ID {
		t.Fatalf("job_id: want=%s got=%v", job.ID, data["job_id"])
	}
	if data["job_type"] != JobTypeDraftGenerate {
		t.Fatalf("job_type: want=%q got=%v", JobTypeDraftGenerate, data["job_type"])
	}
	if data["stage"] != "draft" {
		t.Fatalf("stage: want=%q got=%v", "draft", data["stage"])
	}
	if data["progress"] != 40 {
		t.Fatalf("progress: want=40 got=%v", data["progress"])
	}
}

func TestJobNotifierSkipsWithoutStudentOrEmitter(t *testing.T) {
	emit := &recordingEmitter{}
	n := NewJobNotifier(emit)

	n.JobCreated(uuid.Nil, &types.JobRun{ID: uuid.New()})
	n.JobDone(uuid.Nil, nil)
	if len(emit.msgs) != 0 {
		t.Fatalf("emit count: want=0 got=%d", len(emit.msgs))
	}

	quiet := NewJobNotifier(nil)
	quiet.JobCreated(uuid.New(), &types.JobRun{ID: uuid.New()})
	quiet.JobFailed(uuid.New(), nil, "run", "boom")
}

func TestChatNotifierMessageCreatedFansOutToMentors(t *testing.T) {
	emit := &recordingEmitter{}
	n := NewChatNotifier(emit)
	studentID := uuid.New()
	msg := &types.Message{ID: uuid.New(), StudentID: studentID, Role: types.MessageRoleStudent}

	n.MessageCreated(studentID, msg)

	if len(emit.msgs) != 2 {
		t.Fatalf("emit count: want=2 got=%d", len(emit.msgs))
	}
	if emit.msgs[0].Channel != studentID.String() {
		t.Fatalf("first channel: want=%q got=%q", studentID.String(), emit.msgs[0].Channel)
	}
	if emit.msgs[1].Channel != realtime.MentorChannel {
		t.Fatalf("second channel: want=%q got=%q", realtime.MentorChannel, emit.msgs[1].Channel)
	}
	for i, m := range emit.msgs {
		if m.Event != realtime.SSEEventChatMessageCreated {
			t.Fatalf("msg %d event: want=%q got=%q", i, realtime.SSEEventChatMessageCreated, m.Event)
		}
	}
}

func TestChatNotifierKeepsDraftsOffStudentChannel(t *testing.T) {
	emit := &recordingEmitter{}
	n := NewChatNotifier(emit)
	studentID := uuid.New()
	draft := &types.Message{
		ID:        uuid.New(),
		StudentID: studentID,
		Role:      types.MessageRoleAgent,
		Status:    types.MessageStatusDraft,
	}

	n.DraftCreated(studentID, draft, &types.JobRun{ID: uuid.New()})
	n.DraftRejected(studentID, draft.ID, "tone")

	if len(emit.msgs) != 2 {
		t.Fatalf("emit count: want=2 got=%d", len(emit.msgs))
	}
	for i, m := range emit.msgs {
		if m.Channel != realtime.MentorChannel {
			t.Fatalf("msg %d channel: want=%q got=%q", i, realtime.MentorChannel, m.Channel)
		}
	}
	if emit.msgs[0].Event != realtime.SSEEventDraftCreated {
		t.Fatalf("first event: want=%q got=%q", realtime.SSEEventDraftCreated, emit.msgs[0].Event)
	}
	if emit.msgs[1].Event != realtime.SSEEventDraftRejected {
		t.Fatalf("second event: want=%q got=%q", realtime.SSEEventDraftRejected, emit.msgs[1].Event)
	}
	data, ok := emit.msgs[1].Data.(map[string]any)
	if !ok {
		t.Fatalf("rejected data type: got=%T", emit.msgs[1].Data)
	}
	if data["reason"] != "tone" {
		t.Fatalf("reason: want=%q got=%v", "tone", data["reason"])
	}
}

func TestChatNotifierDraftApprovedReachesStudent(t *testing.T) {
	emit := &recordingEmitter{}
	n := NewChatNotifier(emit)
	studentID := uuid.New()
	msg := &types.Message{
		ID:        uuid.New(),
		StudentID: studentID,
		Role:      types.MessageRoleAgent,
		Status:    types.MessageStatusApproved,
	}

	n.DraftApproved(studentID, msg)

	if len(emit.msgs) != 2 {
		t.Fatalf("emit count: want=2 got=%d", len(emit.msgs))
	}
	if emit.msgs[0].Channel != studentID.String() {
		t.Fatalf("first channel: want=%q got=%q", studentID.String(), emit.msgs[0].Channel)
	}
	if emit.msgs[1].Channel != realtime.MentorChannel {
		t.Fatalf("second channel: want=%q got=%q", realtime.MentorChannel, emit.msgs[1].Channel)
	}
	for i, m := range emit.msgs {
		if m.Event != realtime.SSEEventDraftApproved {
			t.Fatalf("msg %d event: want=%q got=%q", i, realtime.SSEEventDraftApproved, m.Event)
		}
	}
}

type recordingEmitter struct {
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.msgs = append(e.msgs, msg)
}
