package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos/testutil"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
)

func TestMessageRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	student := testutil.SeedStudent(t, ctx, tx, "msg-repo@test.local")
	other := testutil.SeedStudent(t, ctx, tx, "msg-repo-other@test.local")

	now := time.Now().UTC()
	first := &types.Message{
		ID:        uuid.New(),
		StudentID: student.ID,
		Role:      types.MessageRoleStudent,
		Status:    types.MessageStatusSent,
		Subject:   "Stuck on module 3",
		Content:   "Stuck on module 3\nI cannot get the classifier to converge.",
		Metadata:  datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-2 * time.Hour),
		UpdatedAt: now.Add(-2 * time.Hour),
	}
	second := &types.Message{
		ID:        uuid.New(),
		StudentID: student.ID,
		Role:      types.MessageRoleAgent,
		Status:    types.MessageStatusDraft,
		Subject:   "Stuck on module 3",
		Content:   "Have you tried lowering the learning rate?",
		Metadata:  datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-1 * time.Hour),
		UpdatedAt: now.Add(-1 * time.Hour),
	}
	foreign := &types.Message{
		ID:        uuid.New(),
		StudentID: other.ID,
		Role:      types.MessageRoleAgent,
		Status:    types.MessageStatusDraft,
		Subject:   "Another student",
		Content:   "Draft for someone else.",
		Metadata:  datatypes.JSON([]byte("{}")),
		CreatedAt: now.Add(-30 * time.Minute),
		UpdatedAt: now.Add(-30 * time.Minute),
	}

	if _, err := repo.Create(dbc, []*types.Message{first, second, foreign}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Subject != "Stuck on module 3" {
		t.Fatalf("GetByID: unexpected row %+v", got)
	}

	// ListByStudent is chronological, oldest first.
	list, err := repo.ListByStudent(dbc, student.ID, 0)
	if err != nil {
		t.Fatalf("ListByStudent: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByStudent: expected 2, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("ListByStudent: wrong order: %v then %v", list[0].ID, list[1].ID)
	}

	// ListDrafts without a student filter sees both pending drafts, newest first.
	drafts, err := repo.ListDrafts(dbc, nil, 0)
	if err != nil {
		t.Fatalf("ListDrafts: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("ListDrafts: expected 2, got %d", len(drafts))
	}
	if drafts[0].ID != foreign.ID || drafts[1].ID != second.ID {
		t.Fatalf("ListDrafts: wrong order: %v then %v", drafts[0].ID, drafts[1].ID)
	}

	// Scoped to one student.
	drafts, err = repo.ListDrafts(dbc, testutil.PtrUUID(student.ID), 0)
	if err != nil {
		t.Fatalf("ListDrafts (scoped): %v", err)
	}
	if len(drafts) != 1 || drafts[0].ID != second.ID {
		t.Fatalf("ListDrafts (scoped): expected only %v, got %d rows", second.ID, len(drafts))
	}

	latest, err := repo.LatestByStudentAndRole(dbc, student.ID, types.MessageRoleStudent)
	if err != nil {
		t.Fatalf("LatestByStudentAndRole: %v", err)
	}
	if latest == nil || latest.ID != first.ID {
		t.Fatalf("LatestByStudentAndRole: expected %v got %+v", first.ID, latest)
	}

	// Approving a draft flips status and leaves the draft list.
	if err := repo.UpdateFields(dbc, second.ID, map[string]interface{}{
		"status":      types.MessageStatusApproved,
		"approved_at": now,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	drafts, err = repo.ListDrafts(dbc, testutil.PtrUUID(student.ID), 0)
	if err != nil {
		t.Fatalf("ListDrafts (after approve): %v", err)
	}
	if len(drafts) != 0 {
		t.Fatalf("ListDrafts (after approve): expected 0, got %d", len(drafts))
	}

	// Soft delete removes it from reads.
	if err := repo.SoftDelete(dbc, foreign.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	gone, err := repo.GetByID(dbc, foreign.ID)
	if err != nil {
		t.Fatalf("GetByID (deleted): %v", err)
	}
	if gone != nil {
		t.Fatalf("GetByID (deleted): expected nil, got %+v", gone)
	}
}
