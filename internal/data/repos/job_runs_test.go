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

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	studentID := uuid.New()

	queued := &types.JobRun{
		ID:         uuid.New(),
		StudentID:  studentID,
		JobType:    "test_job",
		EntityType: "message",
		EntityID:   testutil.PtrUUID(uuid.New()),
		Status:     "queued",
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
		CreatedAt:  now.Add(-3 * time.Hour),
		UpdatedAt:  now.Add(-3 * time.Hour),
	}
	failed := &types.JobRun{
		ID:          uuid.New(),
		StudentID:   studentID,
		JobType:     "test_job",
		EntityType:  "message",
		EntityID:    testutil.PtrUUID(uuid.New()),
		Status:      "failed",
		Stage:       "failed",
		Attempts:    0,
		LastErrorAt: testutil.PtrTime(now.Add(-2 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
	staleRunning := &types.JobRun{
		ID:          uuid.New(),
		StudentID:   studentID,
		JobType:     "test_job",
		EntityType:  "message",
		EntityID:    testutil.PtrUUID(uuid.New()),
		Status:      "running",
		Stage:       "running",
		Attempts:    0,
		HeartbeatAt: testutil.PtrTime(now.Add(-10 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-1 * time.Hour),
		UpdatedAt:   now.Add(-1 * time.Hour),
	}

	created, err := repo.Create(dbc, []*types.JobRun{queued, failed, staleRunning})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Create: expected 3, got %d", len(created))
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{queued.ID, failed.ID, staleRunning.ID}); err != nil || len(rows) != 3 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	// GetLatestByEntity
	entityID := uuid.New()
	older := &types.JobRun{
		ID:         uuid.New(),
		StudentID:  studentID,
		JobType:    "draft_generate",
		EntityType: "message",
		EntityID:   &entityID,
		Status:     "queued",
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
		CreatedAt:  now.Add(-5 * time.Hour),
		UpdatedAt:  now.Add(-5 * time.Hour),
	}
	newer := &types.JobRun{
		ID:         uuid.New(),
		StudentID:  studentID,
		JobType:    "draft_generate",
		EntityType: "message",
		EntityID:   &entityID,
		Status:     "queued",
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
		CreatedAt:  now.Add(-4 * time.Hour),
		UpdatedAt:  now.Add(-4 * time.Hour),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{older, newer}); err != nil {
		t.Fatalf("seed latest: %v", err)
	}
	latest, err := repo.GetLatestByEntity(dbc, studentID, "message", entityID, "draft_generate")
	if err != nil {
		t.Fatalf("GetLatestByEntity: %v", err)
	}
	if latest == nil || latest.ID != newer.ID {
		t.Fatalf("GetLatestByEntity: expected %v got %v", newer.ID, latest)
	}

	// ClaimNextRunnable should walk the runnable set in created_at ASC order.
	claim1, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #1: %v", err)
	}
	if claim1 == nil || claim1.ID != older.ID {
		t.Fatalf("ClaimNextRunnable #1: expected %v got %v", older.ID, claim1)
	}

	claim2, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #2: %v", err)
	}
	if claim2 == nil || claim2.ID != newer.ID {
		t.Fatalf("ClaimNextRunnable #2: expected %v got %v", newer.ID, claim2)
	}

	claim3, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #3: %v", err)
	}
	if claim3 == nil || claim3.ID != queued.ID {
		t.Fatalf("ClaimNextRunnable #3: expected %v got %v", queued.ID, claim3)
	}

	claim4, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #4: %v", err)
	}
	if claim4 == nil || claim4.ID != failed.ID {
		t.Fatalf("ClaimNextRunnable #4: expected %v got %v", failed.ID, claim4)
	}

	claim5, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #5: %v", err)
	}
	if claim5 == nil || claim5.ID != staleRunning.ID {
		t.Fatalf("ClaimNextRunnable #5: expected %v got %v", staleRunning.ID, claim5)
	}

	claim6, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextRunnable #6: %v", err)
	}
	if claim6 != nil {
		t.Fatalf("ClaimNextRunnable #6: expected nil, got %v", claim6)
	}

	// UpdateFieldsUnlessStatus must not touch canceled jobs.
	if err := repo.UpdateFields(dbc, queued.ID, map[string]interface{}{"status": "canceled", "stage": "canceled"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	ok, err := repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{"canceled"}, map[string]interface{}{"status": "running"})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus: %v", err)
	}
	if ok {
		t.Fatalf("UpdateFieldsUnlessStatus: expected no rows updated for canceled job")
	}

	// Heartbeat only touches running jobs.
	if err := repo.Heartbeat(dbc, staleRunning.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	// HasRunnableForEntity
	rEntityID := uuid.New()
	runnable := &types.JobRun{
		ID:         uuid.New(),
		StudentID:  studentID,
		JobType:    "draft_generate",
		EntityType: "message",
		EntityID:   &rEntityID,
		Status:     "queued",
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{runnable}); err != nil {
		t.Fatalf("seed runnable: %v", err)
	}

	has, err := repo.HasRunnableForEntity(dbc, studentID, "message", rEntityID, "draft_generate")
	if err != nil {
		t.Fatalf("HasRunnableForEntity: %v", err)
	}
	if !has {
		t.Fatalf("HasRunnableForEntity: expected true")
	}

	has, err = repo.HasRunnableForEntity(dbc, studentID, "message", uuid.New(), "draft_generate")
	if err != nil {
		t.Fatalf("HasRunnableForEntity (other entity): %v", err)
	}
	if has {
		t.Fatalf("HasRunnableForEntity (other entity): expected false")
	}
}
