package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

func TestDraftServiceEditValidation(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	svc := NewDraftService(nil, log, nil, nil, nil)
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := svc.Edit(dbc, uuid.New(), "   \n\t"); err == nil || err.Error() != "missing content" {
		t.Fatalf("Edit blank: unexpected error: %v", err)
	}
	huge := strings.Repeat("x", maxMessageRunes+1)
	if _, err := svc.Edit(dbc, uuid.New(), huge); err == nil || err.Error() != "content too large" {
		t.Fatalf("Edit oversized: unexpected error: %v", err)
	}
}

func TestDraftServiceApproveRejectsOversizedEdit(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	svc := NewDraftService(nil, log, nil, nil, nil)
	dbc := dbctx.Context{Ctx: context.Background()}

	huge := strings.Repeat("x", maxMessageRunes+1)
	if _, err := svc.Approve(dbc, uuid.New(), huge); err == nil || err.Error() != "content too large" {
		t.Fatalf("Approve oversized edit: unexpected error: %v", err)
	}
}

func TestDraftServiceRegenerateRequiresJobService(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	svc := NewDraftService(nil, log, nil, nil, nil)

	_, err = svc.Regenerate(dbctx.Context{Ctx: context.Background()}, uuid.New())
	if err == nil || err.Error() != "job service not wired" {
		t.Fatalf("Regenerate: unexpected error: %v", err)
	}
}

func TestTriggerMessageID(t *testing.T) {
	want := uuid.New()
	meta, err := json.Marshal(map[string]any{"trigger_message_id": want.String(), "provider": "openai"})
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}

	if got := triggerMessageID(datatypes.JSON(meta)); got != want {
		t.Fatalf("trigger id: want=%s got=%s", want, got)
	}
	if got := triggerMessageID(nil); got != uuid.Nil {
		t.Fatalf("nil metadata: want=Nil got=%s", got)
	}
	if got := triggerMessageID(datatypes.JSON(`{"trigger_message_id":"not-a-uuid"}`)); got != uuid.Nil {
		t.Fatalf("bad id: want=Nil got=%s", got)
	}
	if got := triggerMessageID(datatypes.JSON(`{not json`)); got != uuid.Nil {
		t.Fatalf("bad json: want=Nil got=%s", got)
	}
}

func TestMergeMetadataPreservesExistingKeys(t *testing.T) {
	base := datatypes.JSON(`{"provider":"openai","iterations":2}`)

	merged := mergeMetadata(base, map[string]any{"mentor_edited": true})

	var meta map[string]any
	if err := json.Unmarshal(merged, &meta); err != nil {
		t.Fatalf("unmarshal merged: %v", err)
	}
	if meta["provider"] != "openai" {
		t.Fatalf("provider: want=%q got=%v", "openai", meta["provider"])
	}
	if meta["iterations"] != float64(2) {
		t.Fatalf("iterations: want=2 got=%v", meta["iterations"])
	}
	if meta["mentor_edited"] != true {
		t.Fatalf("mentor_edited: want=true got=%v", meta["mentor_edited"])
	}

	fromEmpty := mergeMetadata(nil, map[string]any{"rejected_reason": "tone"})
	meta = map[string]any{}
	if err := json.Unmarshal(fromEmpty, &meta); err != nil {
		t.Fatalf("unmarshal from empty: %v", err)
	}
	if meta["rejected_reason"] != "tone" {
		t.Fatalf("rejected_reason: want=%q got=%v", "tone", meta["rejected_reason"])
	}
}
