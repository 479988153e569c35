package runtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/ctxutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
)

func TestContextPayloadUUID(t *testing.T) {
	studentID := uuid.New()
	job := &types.JobRun{
		ID:      uuid.New(),
		Payload: datatypes.JSON([]byte(`{"student_id":"` + studentID.String() + `","attempt":1}`)),
	}
	jc := NewContext(context.Background(), nil, job, nil, nil)

	got, ok := jc.PayloadUUID("student_id")
	if !ok || got != studentID {
		t.Fatalf("PayloadUUID: want=%s got=%s ok=%v", studentID, got, ok)
	}
	if _, ok := jc.PayloadUUID("missing"); ok {
		t.Fatalf("PayloadUUID missing key: want miss")
	}
	if _, ok := jc.PayloadUUID("attempt"); ok {
		t.Fatalf("PayloadUUID non-uuid value: want miss")
	}
}

func TestContextPayloadNeverNil(t *testing.T) {
	jc := NewContext(context.Background(), nil, &types.JobRun{ID: uuid.New()}, nil, nil)
	if jc.Payload() == nil {
		t.Fatalf("Payload: want non-nil map")
	}

	bad := &types.JobRun{ID: uuid.New(), Payload: datatypes.JSON([]byte(`{not json`))}
	jc = NewContext(context.Background(), nil, bad, nil, nil)
	if jc.Payload() == nil || len(jc.Payload()) != 0 {
		t.Fatalf("Payload after bad JSON: want empty map, got %v", jc.Payload())
	}
}

func TestContextAppliesTraceData(t *testing.T) {
	job := &types.JobRun{
		ID:      uuid.New(),
		Payload: datatypes.JSON([]byte(`{"trace_id":"trace-123","request_id":"req-456"}`)),
	}
	jc := NewContext(context.Background(), nil, job, nil, nil)

	td := ctxutil.GetTraceData(jc.Ctx)
	if td == nil {
		t.Fatalf("trace data missing from context")
	}
	if td.TraceID != "trace-123" {
		t.Fatalf("trace id: want=%q got=%q", "trace-123", td.TraceID)
	}
	if td.RequestID != "req-456" {
		t.Fatalf("request id: want=%q got=%q", "req-456", td.RequestID)
	}
}

func TestContextProgressGuardedByStatus(t *testing.T) {
	repo := &fakeJobRunRepo{allow: true}
	notify := &recordingJobNotifier{}
	job := &types.JobRun{ID: uuid.New(), StudentID: uuid.New(), Status: "running", JobType: "draft_generate"}

	jc := NewContext(context.Background(), nil, job, repo, notify)
	jc.Progress("draft", 40, "Calling the model")

	if repo.updateCalls != 1 {
		t.Fatalf("update calls: want=1 got=%d", repo.updateCalls)
	}
	if job.Stage != "draft" || job.Progress != 40 || job.Message != "Calling the model" {
		t.Fatalf("in-memory job not updated: %+v", job)
	}
	if notify.progressCalls != 1 {
		t.Fatalf("progress notifications: want=1 got=%d", notify.progressCalls)
	}

	// A rejected update (canceled row) must not touch memory or notify.
	repo.allow = false
	jc.Progress("draft", 80, "Still working")
	if job.Progress != 40 {
		t.Fatalf("canceled job mutated: progress=%d", job.Progress)
	}
	if notify.progressCalls != 1 {
		t.Fatalf("canceled job notified: calls=%d", notify.progressCalls)
	}
}

func TestContextFailRecordsError(t *testing.T) {
	repo := &fakeJobRunRepo{allow: true}
	notify := &recordingJobNotifier{}
	job := &types.JobRun{ID: uuid.New(), StudentID: uuid.New(), Status: "running"}

	jc := NewContext(context.Background(), nil, job, repo, notify)
	jc.Fail("draft", fmt.Errorf("model unavailable"))

	if job.Status != "failed" {
		t.Fatalf("status: want=%q got=%q", "failed", job.Status)
	}
	if job.Stage != "draft" || job.Error != "model unavailable" {
		t.Fatalf("fail did not record stage/error: %+v", job)
	}
	if job.LockedAt != nil {
		t.Fatalf("locked_at not cleared")
	}
	if job.LastErrorAt == nil {
		t.Fatalf("last_error_at not set")
	}
	if notify.failedCalls != 1 {
		t.Fatalf("failed notifications: want=1 got=%d", notify.failedCalls)
	}
}

func TestContextSucceedStoresResult(t *testing.T) {
	repo := &fakeJobRunRepo{allow: true}
	notify := &recordingJobNotifier{}
	job := &types.JobRun{ID: uuid.New(), StudentID: uuid.New(), Status: "running"}

	jc := NewContext(context.Background(), nil, job, repo, notify)
	jc.Succeed("done", map[string]any{"draft_message_id": uuid.New().String()})

	if job.Status != "succeeded" {
		t.Fatalf("status: want=%q got=%q", "succeeded", job.Status)
	}
	if job.Stage != "done" || job.Progress != 100 {
		t.Fatalf("succeed did not finalize stage/progress: %+v", job)
	}
	if len(job.Result) == 0 {
		t.Fatalf("result not stored")
	}
	if job.LockedAt != nil {
		t.Fatalf("locked_at not cleared")
	}
	if notify.doneCalls != 1 {
		t.Fatalf("done notifications: want=1 got=%d", notify.doneCalls)
	}
}

type fakeJobRunRepo struct {
	allow       bool
	updateCalls int
	lastUpdates map[string]interface{}
}

func (f *fakeJobRunRepo) Create(dbctx.Context, []*types.JobRun) ([]*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) GetByIDs(dbctx.Context, []uuid.UUID) ([]*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) GetLatestByEntity(dbctx.Context, uuid.UUID, string, uuid.UUID, string) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) ClaimNextRunnable(dbctx.Context, int, time.Duration, time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}

func (f *fakeJobRunRepo) UpdateFieldsUnlessStatus(_ dbctx.Context, _ uuid.UUID, _ []string, updates map[string]interface{}) (bool, error) {
	f.updateCalls++
	f.lastUpdates = updates
	return f.allow, nil
}

func (f *fakeJobRunRepo) Heartbeat(dbctx.Context, uuid.UUID) error { return nil }

func (f *fakeJobRunRepo) HasRunnableForEntity(dbctx.Context, uuid.UUID, string, uuid.UUID, string) (bool, error) {
	return false, nil
}

type recordingJobNotifier struct {
	createdCalls  int
	progressCalls int
	failedCalls   int
	doneCalls     int
}

func (n *recordingJobNotifier) JobCreated(uuid.UUID, *types.JobRun) { n.createdCalls++ }

func (n *recordingJobNotifier) JobProgress(uuid.UUID, *types.JobRun, string, int, string) {
	n.progressCalls++
}

func (n *recordingJobNotifier) JobFailed(uuid.UUID, *types.JobRun, string, string) {
	n.failedCalls++
}

func (n *recordingJobNotifier) JobDone(uuid.UUID, *types.JobRun) { n.doneCalls++ }
