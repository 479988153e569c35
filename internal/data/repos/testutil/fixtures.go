package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedStudent(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.Student {
	tb.Helper()
	s := &types.Student{
		ID:    uuid.New(),
		Name:  "Test Student",
		Email: email,
		Phase: types.PhaseOne,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return s
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID, role, status, content string) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:        uuid.New(),
		StudentID: studentID,
		Role:      role,
		Status:    status,
		Content:   content,
		Metadata:  datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedVideoModule(tb testing.TB, ctx context.Context, tx *gorm.DB, sequence int) *types.VideoModule {
	tb.Helper()
	vm := &types.VideoModule{
		ID:       uuid.New(),
		Sequence: sequence,
		Title:    "module",
	}
	if err := tx.WithContext(ctx).Create(vm).Error; err != nil {
		tb.Fatalf("seed video module: %v", err)
	}
	return vm
}

func SeedModuleProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, videoModuleID uuid.UUID, status string, percent int) *types.ModuleProgress {
	tb.Helper()
	p := &types.ModuleProgress{
		ID:              uuid.New(),
		StudentID:       studentID,
		VideoModuleID:   videoModuleID,
		Status:          status,
		PercentComplete: percent,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed module progress: %v", err)
	}
	return p
}

func SeedResearchProject(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID) *types.ResearchProject {
	tb.Helper()
	p := &types.ResearchProject{
		ID:         uuid.New(),
		StudentID:  studentID,
		Title:      "project",
		Status:     "proposal",
		Milestones: datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed research project: %v", err)
	}
	return p
}

func SeedJobRun(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID, jobType, status string) *types.JobRun {
	tb.Helper()
	j := &types.JobRun{
		ID:        uuid.New(),
		StudentID: studentID,
		JobType:   jobType,
		Status:    status,
		Stage:     "queued",
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job run: %v", err)
	}
	return j
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
