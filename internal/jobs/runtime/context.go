package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/ctxutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/services"
)

/*
The execution contract between the job system and all business code.
runtime.Context is a capability-scoped execution handle for a single job run.
It wraps:
	- The database handle,
	- The mutable job_run row,
	- The notification side-effects,
	- And the only sanctioned ways to report progress or terminate execution
Struct:
	- Ctx: request-scoped context.Context (timeouts, cancellation)
	- DB: DB handle (used by pipelines/usecases)
	- Job: the JobRun row in memory
	- Notify: side-channel notifier (SSE)
	- payload: decoded job input
*Pipelines never touch job_run directly. They must go through this object.*
*/

type Context struct {
	Ctx         context.Context
	DB          *gorm.DB
	Job         *types.JobRun
	Repo        repos.JobRunRepo
	Notify      services.JobNotifier
	LastMessage string // Convenience: pipeline can write human messages without deciding event type
	payload     map[string]any
}

/*
NewContext constructs a runtime.Context for a claimed job execution.
It eagerly decodes the job payload JSON so handlers can access inputs via Payload()/PayloadUUID().
Any payload decode failure is treated as non-fatal here; handlers typically validate required fields.
*/
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

/*
decodePayload parses Job.Payload JSON into a map for access.
Invariants / behavior:
	- If Job is nil: no-op
	- If payload is empty: sets payload to empty map
	- On unmarshal error: sets payload to empty map and returns the error,
	  allowing callers to decide whether malformed payload should fail the job.
*/
func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	payload := c.Payload()
	traceID := payloadString(payload, "trace_id")
	reqID := payloadString(payload, "request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

/*
Payload returns the decoded payload map for this job execution.
Guarantees:
	- Never returns nil (returns an empty map if payload is unset/unparseable)
	- The map represents the JSON object stored on Job.Payload, not Job.Result
*/
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

/*
PayloadUUID reads a payload field by key and attempts to parse it as a UUID.
Returns:
	- (uuid, true) if key exists and parses cleanly as a non-empty UUID string
	- (uuid.Nil, false) if missing, nil, or not parseable
This keeps UUID validation logic out of pipelines and makes payload parsing uniform.
*/
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	s := fmt.Sprint(v)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

/*
Update applies arbitrary field updates to the underlying job_run row in storage,
guarded by "UnlessStatus(canceled)".
Intended use:
	- low-level state writes not covered by Progress/Fail/Succeed
Prefer Progress/Fail/Succeed for lifecycle transitions so invariants remain centralized.
*/
func (c *Context) Update(updates map[string]any) error {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	_, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, []string{"canceled"}, toIfaceMap(updates))
	return err
}

/*
Progress publishes a non-terminal status update for this job run.
What it does:
	- Persists stage/progress/message + heartbeat timestamps into job_run,
	  guarded so canceled jobs are not overwritten.
	- Updates the in-memory c.Job fields to match.
	- Emits a notifier event so clients can update UI promptly.
*/
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID, []string{"canceled"}, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
		// status remains whatever it is in DB ("running" after claim)
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(c.Job.StudentID, c.Job, stage, pct, msg)
	}
}

/*
Fail marks this job run as terminally failed and records an error message.
What it does:
	- Sets status=failed, stage=<stage>, error=<err>, last_error_at=now
	- Clears locked_at so other workers won't treat it as in-progress
	- Updates the in-memory job object
	- Emits a 'failed' notification
Guarding:
	- Uses UpdateFieldsUnlessStatus(..., ["canceled"]) so a canceled job is not overwritten
	- If the update is rejected, exits without emitting notifications
*/
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID, []string{"canceled"}, map[string]interface{}{
			"status":        "failed",
			"stage":         stage,
			"message":       "",
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = "failed"
		c.Job.Stage = stage
		c.Job.Message = ""
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job.StudentID, c.Job, stage, msg)
	}
}

/*
Succeed marks this job run as terminally succeeded and persists a result payload.
What it does:
	- Sets status=succeeded, stage=<finalStage>, progress=100
	- Clears error/message, clears locked_at, updates heartbeat
	- Serializes 'result' as JSON and stores it in job_run.result
	- Updates the in-memory job object
	- Emits a 'done' notification
Guarding:
	- Uses UpdateFieldsUnlessStatus(..., ["canceled"]) so a canceled job is not overwritten
	- If the update is rejected, exits without emitting notifications
*/
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Job.ID, []string{"canceled"}, map[string]interface{}{
			"status":       "succeeded",
			"stage":        finalStage,
			"progress":     100,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = "succeeded"
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Message = ""
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}

	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job.StudentID, c.Job)
	}
}

/*
toIfaceMap converts a map[string]any into map[string]interface{}.
Some repository APIs take map[string]interface{} for DB updates, but callers
usually build map[string]any. This keeps the conversion centralized.
*/
func toIfaceMap(in map[string]any) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
