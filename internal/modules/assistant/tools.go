package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/llm"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

const (
	ToolGetStudentProfile   = "get_student_profile"
	ToolGetLearningProgress = "get_learning_progress"
	ToolGetVideoModule      = "get_video_module"
	ToolGetProjectOverview  = "get_project_overview"
	ToolListProjectMiles    = "list_project_milestones"
	ToolSaveMentorNote      = "save_mentor_note"
	ToolFlagForMentor       = "flag_for_mentor"
)

// ToolContext scopes every tool call to one student and their phase.
type ToolContext struct {
	StudentID uuid.UUID
	Phase     string
}

// ToolHandler runs one tool call. The returned value is JSON-serialized
// into the tool-result turn.
type ToolHandler func(ctx context.Context, tc ToolContext, args map[string]any) (any, error)

type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON-schema object describing the arguments.
	Parameters map[string]any
	// Phases lists the phases the tool is exposed to; empty means both.
	Phases  []string
	Handler ToolHandler
}

type RegistryDeps struct {
	Log *logger.Logger

	Students repos.StudentRepo
	Modules  repos.VideoModuleRepo
	Progress repos.ModuleProgressRepo
	Projects repos.ResearchProjectRepo
	Notes    repos.MentorNoteRepo
}

// Registry holds the tools the assistant may call. Tool reads and note
// writes run outside the job transaction on the root DB handle.
type Registry struct {
	log   *logger.Logger
	deps  RegistryDeps
	tools map[string]Tool
	order []string
}

func NewRegistry(deps RegistryDeps) *Registry {
	r := &Registry{
		log:   deps.Log.With("service", "ToolRegistry"),
		deps:  deps,
		tools: map[string]Tool{},
	}

	r.register(Tool{
		Name:        ToolGetStudentProfile,
		Description: "Look up the student's name, email, program phase, and enrollment date.",
		Parameters:  schemaNoArgs(),
		Handler:     r.getStudentProfile,
	})
	r.register(Tool{
		Name:        ToolGetLearningProgress,
		Description: "List every module in the video curriculum with this student's completion status and percent complete.",
		Parameters:  schemaNoArgs(),
		Phases:      []string{types.PhaseOne},
		Handler:     r.getLearningProgress,
	})
	r.register(Tool{
		Name:        ToolGetVideoModule,
		Description: "Fetch one video module's title and summary by its sequence number in the curriculum.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sequence": map[string]any{
					"type":        "integer",
					"description": "1-based position of the module in the curriculum",
				},
			},
			"required": []string{"sequence"},
		},
		Phases:  []string{types.PhaseOne},
		Handler: r.getVideoModule,
	})
	r.register(Tool{
		Name:        ToolGetProjectOverview,
		Description: "Fetch the student's research project: title, summary, and current status.",
		Parameters:  schemaNoArgs(),
		Phases:      []string{types.PhaseTwo},
		Handler:     r.getProjectOverview,
	})
	r.register(Tool{
		Name:        ToolListProjectMiles,
		Description: "List the milestones on the student's research project with due dates and completion flags.",
		Parameters:  schemaNoArgs(),
		Phases:      []string{types.PhaseTwo},
		Handler:     r.listProjectMilestones,
	})
	r.register(Tool{
		Name:        ToolSaveMentorNote,
		Description: "Save a note about this conversation to the mentor dashboard. Use for observations the mentor should see alongside the draft.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"note": map[string]any{
					"type":        "string",
					"description": "The note body",
				},
			},
			"required": []string{"note"},
		},
		Handler: r.saveMentorNote,
	})
	r.register(Tool{
		Name:        ToolFlagForMentor,
		Description: "Flag this conversation for urgent mentor attention. Use when the student seems stuck, distressed, or asks for something outside your scope.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{
					"type":        "string",
					"description": "Why the mentor should look at this conversation",
				},
			},
			"required": []string{"reason"},
		},
		Handler: r.flagForMentor,
	})

	return r
}

func (r *Registry) register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Defs returns the tool definitions exposed to the given phase, in
// registration order.
func (r *Registry) Defs(phase string) []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		if !toolAllowsPhase(t, phase) {
			continue
		}
		defs = append(defs, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}

// Execute runs one tool call by name and returns the serialized result.
// Unknown tools and handler failures come back as inline {"error": ...}
// payloads so one bad call never aborts the exchange.
func (r *Registry) Execute(ctx context.Context, name string, tc ToolContext, args map[string]any) json.RawMessage {
	tool, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		r.log.Warn("unknown tool requested", "tool", name)
		return toolErrorJSON(fmt.Sprintf("Unknown tool: %s", name))
	}
	if !toolAllowsPhase(tool, tc.Phase) {
		return toolErrorJSON(fmt.Sprintf("Tool %s is not available in phase %s", name, tc.Phase))
	}
	out, err := tool.Handler(ctx, tc, args)
	if err != nil {
		r.log.Warn("tool execution failed", "tool", name, "student_id", tc.StudentID, "error", err)
		return toolErrorJSON(err.Error())
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return toolErrorJSON(fmt.Sprintf("serialize result: %v", err))
	}
	return raw
}

func toolAllowsPhase(t Tool, phase string) bool {
	if len(t.Phases) == 0 {
		return true
	}
	for _, p := range t.Phases {
		if p == phase {
			return true
		}
	}
	return false
}

func toolErrorJSON(msg string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return raw
}

func schemaNoArgs() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (r *Registry) getStudentProfile(ctx context.Context, tc ToolContext, _ map[string]any) (any, error) {
	student, err := r.deps.Students.GetByID(dbctx.Context{Ctx: ctx}, tc.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student not found")
	}
	return map[string]any{
		"name":        student.Name,
		"email":       student.Email,
		"phase":       student.Phase,
		"phase_label": PhaseLabel(student.Phase),
		"enrolled_at": student.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (r *Registry) getLearningProgress(ctx context.Context, tc ToolContext, _ map[string]any) (any, error) {
	dbc := dbctx.Context{Ctx: ctx}
	modules, err := r.deps.Modules.ListOrdered(dbc)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	rows, err := r.deps.Progress.ListByStudent(dbc, tc.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	byModule := make(map[uuid.UUID]*types.ModuleProgress, len(rows))
	for _, row := range rows {
		byModule[row.VideoModuleID] = row
	}

	completed := 0
	out := make([]map[string]any, 0, len(modules))
	for _, vm := range modules {
		entry := map[string]any{
			"sequence":         vm.Sequence,
			"title":            vm.Title,
			"status":           types.ProgressStatusNotStarted,
			"percent_complete": 0,
		}
		if row := byModule[vm.ID]; row != nil {
			entry["status"] = row.Status
			entry["percent_complete"] = row.PercentComplete
			if row.Status == types.ProgressStatusCompleted {
				completed++
			}
		}
		out = append(out, entry)
	}
	return map[string]any{
		"modules":   out,
		"completed": completed,
		"total":     len(modules),
	}, nil
}

func (r *Registry) getVideoModule(ctx context.Context, tc ToolContext, args map[string]any) (any, error) {
	seq, ok := intArg(args, "sequence")
	if !ok {
		return nil, fmt.Errorf("sequence is required")
	}
	vm, err := r.deps.Modules.GetBySequence(dbctx.Context{Ctx: ctx}, seq)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	if vm == nil {
		return nil, fmt.Errorf("no module with sequence %d", seq)
	}
	return map[string]any{
		"sequence": vm.Sequence,
		"title":    vm.Title,
		"summary":  vm.Summary,
	}, nil
}

func (r *Registry) getProjectOverview(ctx context.Context, tc ToolContext, _ map[string]any) (any, error) {
	project, err := r.deps.Projects.GetByStudentID(dbctx.Context{Ctx: ctx}, tc.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return map[string]any{
			"exists": false,
			"note":   "no research project on file for this student yet",
		}, nil
	}
	return map[string]any{
		"exists":     true,
		"title":      project.Title,
		"summary":    project.Summary,
		"status":     project.Status,
		"milestones": len(decodeMilestones(project.Milestones)),
	}, nil
}

func (r *Registry) listProjectMilestones(ctx context.Context, tc ToolContext, _ map[string]any) (any, error) {
	project, err := r.deps.Projects.GetByStudentID(dbctx.Context{Ctx: ctx}, tc.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return map[string]any{
			"exists":     false,
			"milestones": []any{},
		}, nil
	}
	return map[string]any{
		"exists":     true,
		"title":      project.Title,
		"milestones": decodeMilestones(project.Milestones),
	}, nil
}

func (r *Registry) saveMentorNote(ctx context.Context, tc ToolContext, args map[string]any) (any, error) {
	body := strings.TrimSpace(stringArg(args, "note"))
	if body == "" {
		return nil, fmt.Errorf("note is required")
	}
	note := &types.MentorNote{
		StudentID: tc.StudentID,
		Body:      body,
		Source:    types.NoteSourceAssistant,
	}
	created, err := r.deps.Notes.Create(dbctx.Context{Ctx: ctx}, []*types.MentorNote{note})
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	return map[string]any{
		"saved":   true,
		"note_id": created[0].ID.String(),
	}, nil
}

func (r *Registry) flagForMentor(ctx context.Context, tc ToolContext, args map[string]any) (any, error) {
	reason := strings.TrimSpace(stringArg(args, "reason"))
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	note := &types.MentorNote{
		StudentID: tc.StudentID,
		Body:      reason,
		Source:    types.NoteSourceAssistant,
		Flagged:   true,
	}
	created, err := r.deps.Notes.Create(dbctx.Context{Ctx: ctx}, []*types.MentorNote{note})
	if err != nil {
		return nil, fmt.Errorf("save flag: %w", err)
	}
	return map[string]any{
		"flagged": true,
		"note_id": created[0].ID.String(),
	}, nil
}

func decodeMilestones(raw []byte) []map[string]any {
	out := []map[string]any{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func intArg(args map[string]any, key string) (int, bool) {
	if args == nil {
		return 0, false
	}
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
