package draft_generate

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/wrenfield/mentorloop-backend/internal/jobs/runtime"
	"github.com/wrenfield/mentorloop-backend/internal/modules/assistant"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
)

// Run generates one agent draft for the student message named in the
// payload, then hands it to the mentor channel for review. The job
// succeeds once the draft is persisted; approval is a separate, human
// step.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	studentID, ok := jc.PayloadUUID("student_id")
	if !ok || studentID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing student_id"))
		return nil
	}
	messageID, ok := jc.PayloadUUID("message_id")
	if !ok || messageID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing message_id"))
		return nil
	}

	jc.Progress("draft", 10, "Drafting a reply")
	out, err := p.assistant.GenerateDraft(jc.Ctx, assistant.GenerateDraftInput{
		StudentID: studentID,
		MessageID: messageID,
	})
	if err != nil {
		jc.Fail("draft", err)
		return nil
	}

	jc.Progress("review", 90, "Draft ready for mentor review")
	draft, err := p.messages.GetByID(dbctx.Context{Ctx: jc.Ctx}, out.DraftMessageID)
	if err != nil {
		jc.Fail("review", err)
		return nil
	}
	if p.notify != nil && draft != nil {
		p.notify.DraftCreated(studentID, draft, jc.Job)
	}

	jc.Succeed("done", map[string]any{
		"draft_message_id": out.DraftMessageID.String(),
		"model":            out.Model,
		"iterations":       out.Iterations,
		"tool_calls":       out.ToolCalls,
		"used_fallback":    out.UsedFallback,
	})
	return nil
}
