package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/llm"
	"github.com/wrenfield/mentorloop-backend/internal/modules/chat"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/envutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

const historyWindowEnv = "ASSISTANT_HISTORY_LIMIT"

const (
	draftTemperature = 0.7
	draftMaxTokens   = 1024
)

type UsecasesDeps struct {
	Log *logger.Logger

	Provider llm.Provider
	Registry *Registry

	Students repos.StudentRepo
	Messages repos.MessageRepo
	Modules  repos.VideoModuleRepo
	Progress repos.ModuleProgressRepo
	Projects repos.ResearchProjectRepo
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type GenerateDraftInput struct {
	StudentID uuid.UUID
	// MessageID is the student message the draft answers.
	MessageID uuid.UUID
}

type GenerateDraftOutput struct {
	DraftMessageID uuid.UUID
	Model          string
	Iterations     int
	ToolCalls      int
	StopReason     string
	UsedFallback   bool
}

// GenerateDraft produces one agent reply for a student message and
// persists it with status draft, where it waits for mentor review. The
// student never sees it until a mentor approves.
func (u Usecases) GenerateDraft(ctx context.Context, in GenerateDraftInput) (GenerateDraftOutput, error) {
	if in.StudentID == uuid.Nil {
		return GenerateDraftOutput{}, fmt.Errorf("missing student_id")
	}
	if in.MessageID == uuid.Nil {
		return GenerateDraftOutput{}, fmt.Errorf("missing message_id")
	}
	if u.deps.Provider == nil || u.deps.Registry == nil {
		return GenerateDraftOutput{}, fmt.Errorf("assistant not configured")
	}

	var (
		student  *types.Student
		trigger  *types.Message
		history  []*types.Message
		modules  []*types.VideoModule
		progress []*types.ModuleProgress
		project  *types.ResearchProject
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		student, err = u.deps.Students.GetByID(dbctx.Context{Ctx: gctx}, in.StudentID)
		return err
	})
	g.Go(func() error {
		var err error
		trigger, err = u.deps.Messages.GetByID(dbctx.Context{Ctx: gctx}, in.MessageID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = u.deps.Messages.ListRecentByStudent(dbctx.Context{Ctx: gctx}, in.StudentID, envutil.Int(historyWindowEnv, 40))
		return err
	})
	g.Go(func() error {
		var err error
		modules, err = u.deps.Modules.ListOrdered(dbctx.Context{Ctx: gctx})
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = u.deps.Progress.ListByStudent(dbctx.Context{Ctx: gctx}, in.StudentID)
		return err
	})
	g.Go(func() error {
		var err error
		project, err = u.deps.Projects.GetByStudentID(dbctx.Context{Ctx: gctx}, in.StudentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return GenerateDraftOutput{}, fmt.Errorf("load draft context: %w", err)
	}

	if student == nil {
		return GenerateDraftOutput{}, fmt.Errorf("student %s not found", in.StudentID)
	}
	if trigger == nil || trigger.StudentID != in.StudentID {
		return GenerateDraftOutput{}, fmt.Errorf("message %s not found for student", in.MessageID)
	}

	cfg := PhaseConfigFor(u.deps.Log, student.Phase)
	subject := strings.TrimSpace(trigger.Subject)
	if subject == "" {
		subject = chat.ExtractSubject(trigger.Content)
	}

	system, err := cfg.RenderSystem(PromptInput{
		StudentName: student.Name,
		PhaseLabel:  cfg.Label,
		Subject:     subject,
	})
	if err != nil {
		return GenerateDraftOutput{}, err
	}
	if block := phaseContext(student.Phase, modules, progress, project); block != "" {
		system += "\n\n" + block
	}

	loop := NewLoop(u.deps.Log, u.deps.Provider, u.deps.Registry)
	res, err := loop.Run(ctx, LoopInput{
		System:      system,
		History:     historyToMessages(history, trigger),
		Tools:       filterToolDefs(u.deps.Registry.Defs(student.Phase), cfg),
		ToolCtx:     ToolContext{StudentID: student.ID, Phase: student.Phase},
		Temperature: draftTemperature,
		MaxTokens:   draftMaxTokens,
	})
	if err != nil {
		return GenerateDraftOutput{}, fmt.Errorf("generate draft: %w", err)
	}

	metadata := map[string]any{
		"provider":           u.deps.Provider.Name(),
		"model":              res.Model,
		"iterations":         res.Iterations,
		"tool_calls":         res.ToolCalls,
		"stop_reason":        res.StopReason,
		"used_fallback":      res.UsedFallback,
		"trigger_message_id": in.MessageID.String(),
		"usage": map[string]any{
			"input_tokens":  res.Usage.InputTokens,
			"output_tokens": res.Usage.OutputTokens,
		},
	}
	if len(res.Trace) > 0 {
		metadata["tool_trace"] = res.Trace
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return GenerateDraftOutput{}, fmt.Errorf("marshal draft metadata: %w", err)
	}

	draft := &types.Message{
		StudentID: student.ID,
		Role:      types.MessageRoleAgent,
		Status:    types.MessageStatusDraft,
		Subject:   subject,
		Content:   res.Content,
		Metadata:  datatypes.JSON(metaJSON),
	}
	created, err := u.deps.Messages.Create(dbctx.Context{Ctx: ctx}, []*types.Message{draft})
	if err != nil {
		return GenerateDraftOutput{}, fmt.Errorf("persist draft: %w", err)
	}

	u.deps.Log.Info("draft generated",
		"student_id", student.ID,
		"draft_id", created[0].ID,
		"iterations", res.Iterations,
		"tool_calls", res.ToolCalls,
		"used_fallback", res.UsedFallback)

	return GenerateDraftOutput{
		DraftMessageID: created[0].ID,
		Model:          res.Model,
		Iterations:     res.Iterations,
		ToolCalls:      res.ToolCalls,
		StopReason:     res.StopReason,
		UsedFallback:   res.UsedFallback,
	}, nil
}

// historyToMessages maps message rows onto model turns. Only what the
// student has actually seen goes in: their own messages and approved
// replies. Pending and rejected drafts stay out.
func historyToMessages(rows []*types.Message, trigger *types.Message) []llm.Message {
	out := make([]llm.Message, 0, len(rows)+1)
	seenTrigger := false
	for _, m := range rows {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch {
		case m.Role == types.MessageRoleStudent:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case m.Role == types.MessageRoleAgent && m.Status == types.MessageStatusApproved:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		default:
			continue
		}
		if trigger != nil && m.ID == trigger.ID {
			seenTrigger = true
		}
	}
	if !seenTrigger && trigger != nil && strings.TrimSpace(trigger.Content) != "" {
		out = append(out, llm.Message{Role: llm.RoleUser, Content: trigger.Content})
	}
	return out
}

// phaseContext renders a compact status block appended to the system
// prompt, so routine questions resolve without a tool round-trip.
func phaseContext(phase string, modules []*types.VideoModule, progress []*types.ModuleProgress, project *types.ResearchProject) string {
	if phase == types.PhaseTwo {
		if project == nil {
			return "Project status: no research project on file yet."
		}
		milestones := decodeMilestones(project.Milestones)
		done := 0
		for _, m := range milestones {
			if b, ok := m["done"].(bool); ok && b {
				done++
			}
		}
		return fmt.Sprintf("Project status: %q (%s), %d of %d milestones done.",
			project.Title, project.Status, done, len(milestones))
	}

	if len(modules) == 0 {
		return ""
	}
	byModule := make(map[uuid.UUID]*types.ModuleProgress, len(progress))
	for _, row := range progress {
		byModule[row.VideoModuleID] = row
	}
	completed := 0
	current := ""
	for _, vm := range modules {
		row := byModule[vm.ID]
		if row != nil && row.Status == types.ProgressStatusCompleted {
			completed++
			continue
		}
		if current != "" {
			continue
		}
		if row != nil && row.Status == types.ProgressStatusInProgress {
			current = fmt.Sprintf("module %d (%s), %d%% watched", vm.Sequence, vm.Title, row.PercentComplete)
		} else {
			current = fmt.Sprintf("module %d (%s)", vm.Sequence, vm.Title)
		}
	}
	line := fmt.Sprintf("Curriculum status: %d of %d modules completed", completed, len(modules))
	if current != "" {
		line += "; currently on " + current
	}
	return line + "."
}

func filterToolDefs(defs []llm.ToolDef, cfg *PhaseConfig) []llm.ToolDef {
	if cfg == nil || len(cfg.Tools) == 0 {
		return defs
	}
	out := make([]llm.ToolDef, 0, len(defs))
	for _, d := range defs {
		if cfg.AllowsTool(d.Name) {
			out = append(out, d)
		}
	}
	return out
}
