package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/llm"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
)

type fakeMessageRepo struct {
	trigger *types.Message
	history []*types.Message
	created []*types.Message
}

func (f *fakeMessageRepo) Create(_ dbctx.Context, messages []*types.Message) ([]*types.Message, error) {
	for _, m := range messages {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		f.created = append(f.created, m)
	}
	return messages, nil
}
func (f *fakeMessageRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Message, error) {
	if f.trigger != nil && f.trigger.ID == id {
		return f.trigger, nil
	}
	return nil, nil
}
func (f *fakeMessageRepo) ListByStudent(dbctx.Context, uuid.UUID, int) ([]*types.Message, error) {
	return f.history, nil
}
func (f *fakeMessageRepo) ListRecentByStudent(dbctx.Context, uuid.UUID, int) ([]*types.Message, error) {
	return f.history, nil
}
func (f *fakeMessageRepo) ListDrafts(dbctx.Context, *uuid.UUID, int) ([]*types.Message, error) {
	return nil, nil
}
func (f *fakeMessageRepo) LatestByStudentAndRole(dbctx.Context, uuid.UUID, string) (*types.Message, error) {
	return nil, nil
}
func (f *fakeMessageRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}
func (f *fakeMessageRepo) SoftDelete(dbctx.Context, uuid.UUID) error { return nil }

func newDraftFixture(t *testing.T, provider llm.Provider) (Usecases, *types.Student, *fakeMessageRepo) {
	t.Helper()
	student := &types.Student{
		ID:        uuid.New(),
		Name:      "Dana",
		Email:     "dana@example.com",
		Phase:     types.PhaseOne,
		CreatedAt: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	m1 := &types.VideoModule{ID: uuid.New(), Sequence: 1, Title: "Vectors", Summary: "Adding vectors."}
	m2 := &types.VideoModule{ID: uuid.New(), Sequence: 2, Title: "Forces", Summary: "Newton's laws."}

	trigger := &types.Message{
		ID:        uuid.New(),
		StudentID: student.ID,
		Role:      types.MessageRoleStudent,
		Status:    types.MessageStatusSent,
		Subject:   "Vectors",
		Content:   "Subject: Vectors\nHow do I add them?",
		CreatedAt: time.Now().Add(-time.Minute),
	}
	messages := &fakeMessageRepo{trigger: trigger, history: []*types.Message{trigger}}

	students := &fakeStudentRepo{student: student}
	modules := &fakeVideoModuleRepo{modules: []*types.VideoModule{m1, m2}}
	progress := &fakeProgressRepo{rows: []*types.ModuleProgress{
		{StudentID: student.ID, VideoModuleID: m1.ID, Status: types.ProgressStatusCompleted, PercentComplete: 100},
	}}
	projects := &fakeProjectRepo{}

	registry := NewRegistry(RegistryDeps{
		Log:      testLogger(t),
		Students: students,
		Modules:  modules,
		Progress: progress,
		Projects: projects,
		Notes:    &fakeNoteRepo{},
	})

	u := New(UsecasesDeps{
		Log:      testLogger(t),
		Provider: provider,
		Registry: registry,
		Students: students,
		Messages: messages,
		Modules:  modules,
		Progress: progress,
		Projects: projects,
	})
	return u, student, messages
}

func TestGenerateDraft_PersistsDraftWithMetadata(t *testing.T) {
	provider := &scriptedProvider{name: "openai", budget: 5, responses: []*llm.Response{
		toolCallResponse("call_1", ToolGetLearningProgress, `{}`),
		textResponse("You have finished Vectors already. Forces builds right on top of it."),
	}}
	u, student, messages := newDraftFixture(t, provider)

	out, err := u.GenerateDraft(context.Background(), GenerateDraftInput{
		StudentID: student.ID,
		MessageID: messages.trigger.ID,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(messages.created) != 1 {
		t.Fatalf("expected one draft persisted, got %d", len(messages.created))
	}
	draft := messages.created[0]
	if draft.Role != types.MessageRoleAgent || draft.Status != types.MessageStatusDraft {
		t.Fatalf("unexpected draft row: role=%q status=%q", draft.Role, draft.Status)
	}
	if draft.Subject != "Vectors" {
		t.Fatalf("expected draft to carry the trigger subject, got %q", draft.Subject)
	}
	if !strings.Contains(draft.Content, "Forces builds") {
		t.Fatalf("unexpected draft content: %q", draft.Content)
	}
	if out.DraftMessageID != draft.ID {
		t.Fatalf("expected output id to match persisted draft")
	}
	if out.Iterations != 2 || out.ToolCalls != 1 || out.UsedFallback {
		t.Fatalf("unexpected output: %+v", out)
	}

	var meta map[string]any
	if err := json.Unmarshal(draft.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["provider"] != "openai" || meta["iterations"] != float64(2) {
		t.Fatalf("unexpected metadata: %v", meta)
	}
	if meta["trigger_message_id"] != messages.trigger.ID.String() {
		t.Fatalf("expected trigger id in metadata, got %v", meta["trigger_message_id"])
	}
	if _, ok := meta["tool_trace"]; !ok {
		t.Fatalf("expected tool trace in metadata")
	}
}

func TestGenerateDraft_SystemPromptCarriesContext(t *testing.T) {
	provider := &scriptedProvider{name: "openai", budget: 5, responses: []*llm.Response{
		textResponse("Short answer."),
	}}
	u, student, messages := newDraftFixture(t, provider)

	if _, err := u.GenerateDraft(context.Background(), GenerateDraftInput{
		StudentID: student.ID,
		MessageID: messages.trigger.ID,
	}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	sys := provider.requests[0].System
	if !strings.Contains(sys, "Dana") {
		t.Fatalf("expected student name in system prompt:\n%s", sys)
	}
	if !strings.Contains(sys, "Vectors") {
		t.Fatalf("expected subject in system prompt:\n%s", sys)
	}
	if !strings.Contains(sys, "Curriculum status: 1 of 2 modules completed") {
		t.Fatalf("expected curriculum context block:\n%s", sys)
	}

	for _, d := range provider.requests[0].Tools {
		if d.Name == ToolGetProjectOverview || d.Name == ToolListProjectMiles {
			t.Fatalf("phase II tool offered to phase I student: %s", d.Name)
		}
	}
	if len(provider.requests[0].Messages) == 0 {
		t.Fatalf("expected conversation history in request")
	}
}

func TestGenerateDraft_UnknownStudent(t *testing.T) {
	provider := &scriptedProvider{name: "openai", budget: 5, responses: []*llm.Response{textResponse("x")}}
	u, _, messages := newDraftFixture(t, provider)

	_, err := u.GenerateDraft(context.Background(), GenerateDraftInput{
		StudentID: uuid.New(),
		MessageID: messages.trigger.ID,
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestGenerateDraft_RequiresIDs(t *testing.T) {
	provider := &scriptedProvider{name: "openai", budget: 5, responses: []*llm.Response{textResponse("x")}}
	u, student, _ := newDraftFixture(t, provider)

	if _, err := u.GenerateDraft(context.Background(), GenerateDraftInput{MessageID: uuid.New()}); err == nil {
		t.Fatalf("expected error for missing student_id")
	}
	if _, err := u.GenerateDraft(context.Background(), GenerateDraftInput{StudentID: student.ID}); err == nil {
		t.Fatalf("expected error for missing message_id")
	}
}

func TestHistoryToMessages_FiltersUnapprovedDrafts(t *testing.T) {
	student := uuid.New()
	rows := []*types.Message{
		{ID: uuid.New(), StudentID: student, Role: types.MessageRoleStudent, Status: types.MessageStatusSent, Content: "q1"},
		{ID: uuid.New(), StudentID: student, Role: types.MessageRoleAgent, Status: types.MessageStatusDraft, Content: "pending draft"},
		{ID: uuid.New(), StudentID: student, Role: types.MessageRoleAgent, Status: types.MessageStatusApproved, Content: "a1"},
		{ID: uuid.New(), StudentID: student, Role: types.MessageRoleStudent, Status: types.MessageStatusSent, Content: "q2"},
	}

	got := historyToMessages(rows, rows[3])
	if len(got) != 3 {
		t.Fatalf("expected 3 turns, got %d: %+v", len(got), got)
	}
	if got[0].Role != llm.RoleUser || got[1].Role != llm.RoleAssistant || got[2].Role != llm.RoleUser {
		t.Fatalf("unexpected roles: %+v", got)
	}
	for _, m := range got {
		if m.Content == "pending draft" {
			t.Fatalf("draft leaked into history")
		}
	}
}

func TestHistoryToMessages_AppendsTriggerWhenOutsideWindow(t *testing.T) {
	trigger := &types.Message{
		ID:      uuid.New(),
		Role:    types.MessageRoleStudent,
		Status:  types.MessageStatusSent,
		Content: "newest question",
	}
	got := historyToMessages(nil, trigger)
	if len(got) != 1 || got[0].Content != "newest question" {
		t.Fatalf("expected trigger appended, got %+v", got)
	}
}

func TestPhaseContext_Summaries(t *testing.T) {
	m1 := &types.VideoModule{ID: uuid.New(), Sequence: 1, Title: "Vectors"}
	m2 := &types.VideoModule{ID: uuid.New(), Sequence: 2, Title: "Forces"}
	progress := []*types.ModuleProgress{
		{VideoModuleID: m1.ID, Status: types.ProgressStatusCompleted, PercentComplete: 100},
		{VideoModuleID: m2.ID, Status: types.ProgressStatusInProgress, PercentComplete: 40},
	}

	got := phaseContext(types.PhaseOne, []*types.VideoModule{m1, m2}, progress, nil)
	if !strings.Contains(got, "1 of 2 modules completed") || !strings.Contains(got, "module 2 (Forces), 40% watched") {
		t.Fatalf("unexpected phase I context: %q", got)
	}

	project := &types.ResearchProject{
		Title:      "Pendulum damping",
		Status:     "in_progress",
		Milestones: datatypes.JSON(`[{"title":"a","done":true},{"title":"b","done":false}]`),
	}
	got = phaseContext(types.PhaseTwo, nil, nil, project)
	if !strings.Contains(got, `"Pendulum damping"`) || !strings.Contains(got, "1 of 2 milestones done") {
		t.Fatalf("unexpected phase II context: %q", got)
	}

	got = phaseContext(types.PhaseTwo, nil, nil, nil)
	if !strings.Contains(got, "no research project") {
		t.Fatalf("unexpected empty-project context: %q", got)
	}
}
