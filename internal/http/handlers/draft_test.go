package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/http/response"
	"github.com/wrenfield/mentorloop-backend/internal/platform/apierr"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/services"
)

func newDraftRouter(svc services.DraftService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDraftHandler(svc)
	r.GET("/api/drafts", h.ListDrafts)
	r.GET("/api/drafts/:id", h.GetDraft)
	r.PATCH("/api/drafts/:id", h.EditDraft)
	r.POST("/api/drafts/:id/approve", h.ApproveDraft)
	r.POST("/api/drafts/:id/reject", h.RejectDraft)
	r.POST("/api/drafts/:id/regenerate", h.RegenerateDraft)
	return r
}

func decodeErrorEnvelope(t *testing.T, body []byte) response.ErrorEnvelope {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode error envelope: %v (body=%s)", err, body)
	}
	return env
}

func TestGetDraftInvalidID(t *testing.T) {
	r := newDraftRouter(&fakeDraftService{})

	req := httptest.NewRequest(http.MethodGet, "/api/drafts/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	env := decodeErrorEnvelope(t, rec.Body.Bytes())
	if env.Error.Code != "invalid_draft_id" {
		t.Fatalf("unexpected code: got=%q want=%q", env.Error.Code, "invalid_draft_id")
	}
}

func TestGetDraftMapsNotFoundStatus(t *testing.T) {
	svc := &fakeDraftService{err: apierr.New(http.StatusNotFound, "draft_not_found", nil)}
	r := newDraftRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/drafts/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	env := decodeErrorEnvelope(t, rec.Body.Bytes())
	if env.Error.Code != "draft_not_found" {
		t.Fatalf("unexpected code: got=%q want=%q", env.Error.Code, "draft_not_found")
	}
}

func TestApproveDraftPassesEditedContent(t *testing.T) {
	draft := &types.Message{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		Role:      types.MessageRoleAgent,
		Status:    types.MessageStatusApproved,
		Content:   "final text",
	}
	svc := &fakeDraftService{draft: draft}
	r := newDraftRouter(svc)

	body := strings.NewReader(`{"content":"final text"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/drafts/"+draft.ID.String()+"/approve", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if svc.lastApproveContent != "final text" {
		t.Fatalf("unexpected approve content: got=%q want=%q", svc.lastApproveContent, "final text")
	}
	var out struct {
		Message *types.Message `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out.Message == nil || out.Message.ID != draft.ID {
		t.Fatalf("expected approved message %s in response, got %#v", draft.ID, out.Message)
	}
}

func TestApproveDraftWithoutBody(t *testing.T) {
	draft := &types.Message{ID: uuid.New(), Role: types.MessageRoleAgent}
	svc := &fakeDraftService{draft: draft}
	r := newDraftRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/drafts/"+draft.ID.String()+"/approve", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if svc.lastApproveContent != "" {
		t.Fatalf("expected empty content without body, got %q", svc.lastApproveContent)
	}
}

func TestRejectDraftPassesReason(t *testing.T) {
	svc := &fakeDraftService{}
	r := newDraftRouter(svc)

	body := strings.NewReader(`{"reason":"tone"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/drafts/"+uuid.New().String()+"/reject", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if svc.lastReason != "tone" {
		t.Fatalf("unexpected reason: got=%q want=%q", svc.lastReason, "tone")
	}
}

func TestRegenerateDraftMapsConflict(t *testing.T) {
	svc := &fakeDraftService{err: apierr.New(http.StatusConflict, "draft_generation_pending", nil)}
	r := newDraftRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/drafts/"+uuid.New().String()+"/regenerate", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusConflict)
	}
	env := decodeErrorEnvelope(t, rec.Body.Bytes())
	if env.Error.Code != "draft_generation_pending" {
		t.Fatalf("unexpected code: got=%q want=%q", env.Error.Code, "draft_generation_pending")
	}
}

func TestListDraftsParsesFilters(t *testing.T) {
	svc := &fakeDraftService{}
	r := newDraftRouter(svc)

	studentID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/drafts?student_id="+studentID.String()+"&limit=5", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if svc.lastStudentID == nil || *svc.lastStudentID != studentID {
		t.Fatalf("expected student filter %s, got %v", studentID, svc.lastStudentID)
	}
	if svc.lastLimit != 5 {
		t.Fatalf("unexpected limit: got=%d want=%d", svc.lastLimit, 5)
	}
}

func TestListDraftsRejectsBadStudentFilter(t *testing.T) {
	r := newDraftRouter(&fakeDraftService{})

	req := httptest.NewRequest(http.MethodGet, "/api/drafts?student_id=nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	env := decodeErrorEnvelope(t, rec.Body.Bytes())
	if env.Error.Code != "invalid_student_id" {
		t.Fatalf("unexpected code: got=%q want=%q", env.Error.Code, "invalid_student_id")
	}
}

type fakeDraftService struct {
	draft *types.Message
	job   *types.JobRun
	err   error

	lastEditContent    string
	lastApproveContent string
	lastReason         string
	lastStudentID      *uuid.UUID
	lastLimit          int
}

func (f *fakeDraftService) ListPending(dbc dbctx.Context, studentID *uuid.UUID, limit int) ([]*types.Message, error) {
	f.lastStudentID = studentID
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if f.draft == nil {
		return []*types.Message{}, nil
	}
	return []*types.Message{f.draft}, nil
}

func (f *fakeDraftService) Get(dbc dbctx.Context, draftID uuid.UUID) (*types.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

func (f *fakeDraftService) Edit(dbc dbctx.Context, draftID uuid.UUID, content string) (*types.Message, error) {
	f.lastEditContent = content
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

func (f *fakeDraftService) Approve(dbc dbctx.Context, draftID uuid.UUID, editedContent string) (*types.Message, error) {
	f.lastApproveContent = editedContent
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

func (f *fakeDraftService) Reject(dbc dbctx.Context, draftID uuid.UUID, reason string) error {
	f.lastReason = reason
	return f.err
}

func (f *fakeDraftService) Regenerate(dbc dbctx.Context, draftID uuid.UUID) (*types.JobRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}
