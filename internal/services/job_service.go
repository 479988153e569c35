package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/apierr"
	"github.com/wrenfield/mentorloop-backend/internal/platform/ctxutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

// JobService enqueues background work as job_run rows. Workers poll and
// claim queued rows, so enqueueing inside a transaction is safe: the job
// only becomes claimable when the transaction commits.
type JobService interface {
	Enqueue(dbc dbctx.Context, studentID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	// NotifyCreated emits the JobCreated event. Callers that enqueue
	// inside a transaction fire it after commit, so clients never see
	// an event for a row that is not readable yet.
	NotifyCreated(studentID uuid.UUID, job *types.JobRun)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetLatestForEntity(dbc dbctx.Context, studentID uuid.UUID, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error)
	HasRunnableForEntity(dbc dbctx.Context, studentID uuid.UUID, entityType string, entityID uuid.UUID, jobType string) (bool, error)
	// Cancel marks a job canceled unless it already reached a terminal
	// status. A running handler observes this on its next guarded update.
	Cancel(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, notify JobNotifier) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		repo:   repo,
		notify: notify,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, studentID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if studentID == uuid.Nil {
		return nil, fmt.Errorf("missing student_id")
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:         uuid.New(),
		StudentID:  studentID,
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     types.JobStatusQueued,
		Stage:      "queued",
		Progress:   0,
		Attempts:   0,
		Message:    "Queued",
		Payload:    datatypes.JSON(b),
		Result:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.log.Info("job enqueued", "job_id", job.ID, "job_type", jobType, "student_id", studentID)
	return job, nil
}

func (s *jobService) NotifyCreated(studentID uuid.UUID, job *types.JobRun) {
	if s.notify == nil || job == nil {
		return
	}
	s.notify.JobCreated(studentID, job)
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	rows, err := s.repo.GetByIDs(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, fmt.Errorf("job not found")
	}
	return rows[0], nil
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, studentID uuid.UUID, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
	if studentID == uuid.Nil || entityType == "" || entityID == uuid.Nil || jobType == "" {
		return nil, fmt.Errorf("missing entity/job info")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.repo.GetLatestByEntity(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, studentID, entityType, entityID, jobType)
}

func (s *jobService) HasRunnableForEntity(dbc dbctx.Context, studentID uuid.UUID, entityType string, entityID uuid.UUID, jobType string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	return s.repo.HasRunnableForEntity(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, studentID, entityType, entityID, jobType)
}

func (s *jobService) Cancel(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}

	job, err := s.GetByID(repoCtx, jobID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ok, err := s.repo.UpdateFieldsUnlessStatus(repoCtx, jobID, []string{
		types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusCanceled,
	}, map[string]interface{}{
		"status":     types.JobStatusCanceled,
		"message":    "Canceled",
		"locked_at":  nil,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Conflict("job_not_cancelable", "job already %s", job.Status)
	}

	job.Status = types.JobStatusCanceled
	job.Message = "Canceled"
	job.LockedAt = nil
	job.UpdatedAt = now
	s.log.Info("job canceled", "job_id", jobID, "job_type", job.JobType)
	return job, nil
}
