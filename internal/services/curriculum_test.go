package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

func newCurriculumForValidation(t *testing.T) CurriculumService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewCurriculumService(nil, log, nil, nil, nil, nil, nil)
}

func TestCurriculumServiceCreateModuleValidation(t *testing.T) {
	svc := newCurriculumForValidation(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := svc.CreateModule(dbc, 0, "Vectors", ""); err == nil || err.Error() != "sequence must be positive" {
		t.Fatalf("CreateModule sequence 0: unexpected error: %v", err)
	}
	if _, err := svc.CreateModule(dbc, -3, "Vectors", ""); err == nil || err.Error() != "sequence must be positive" {
		t.Fatalf("CreateModule negative sequence: unexpected error: %v", err)
	}
	if _, err := svc.CreateModule(dbc, 1, "   ", ""); err == nil || err.Error() != "missing title" {
		t.Fatalf("CreateModule blank title: unexpected error: %v", err)
	}
}

func TestCurriculumServiceRecordProgressValidation(t *testing.T) {
	svc := newCurriculumForValidation(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := svc.RecordProgress(dbc, uuid.Nil, 1, "in_progress", 50); err == nil || err.Error() != "missing student id" {
		t.Fatalf("RecordProgress nil student: unexpected error: %v", err)
	}
	if _, err := svc.RecordProgress(dbc, uuid.New(), 1, "done", 50); err == nil || err.Error() != `invalid status "done"` {
		t.Fatalf("RecordProgress bad status: unexpected error: %v", err)
	}
}

func TestCurriculumServiceProjectAndNoteValidation(t *testing.T) {
	svc := newCurriculumForValidation(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := svc.UpsertProject(dbc, uuid.Nil, "Pendulum damping", "", "", nil); err == nil || err.Error() != "missing student id" {
		t.Fatalf("UpsertProject nil student: unexpected error: %v", err)
	}
	if _, err := svc.UpsertProject(dbc, uuid.New(), "   ", "", "", nil); err == nil || err.Error() != "missing title" {
		t.Fatalf("UpsertProject blank title: unexpected error: %v", err)
	}
	if _, err := svc.GetProject(dbc, uuid.Nil); err == nil || err.Error() != "missing student id" {
		t.Fatalf("GetProject nil student: unexpected error: %v", err)
	}
	if _, err := svc.CreateNote(dbc, uuid.Nil, "check in about vectors", false); err == nil || err.Error() != "missing student id" {
		t.Fatalf("CreateNote nil student: unexpected error: %v", err)
	}
	if _, err := svc.CreateNote(dbc, uuid.New(), "   ", false); err == nil || err.Error() != "missing body" {
		t.Fatalf("CreateNote blank body: unexpected error: %v", err)
	}
	if _, err := svc.ListNotes(dbc, uuid.Nil, false); err == nil || err.Error() != "missing student id" {
		t.Fatalf("ListNotes nil student: unexpected error: %v", err)
	}
}
