package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/wrenfield/mentorloop-backend/internal/llm"
	"github.com/wrenfield/mentorloop-backend/internal/platform/envutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

const maxToolIterationsEnv = "ASSISTANT_MAX_TOOL_ITERATIONS"

// fallbackDraft stands in when the model runs out of tool budget or never
// produces text. Mentors see it like any other draft and rewrite it.
const fallbackDraft = "Let me think about this one a bit more and get back to you."

// stopReasonBudget marks drafts whose loop hit the iteration cap.
const stopReasonBudget = "max_iterations"

// ToolTraceEntry captures one executed tool call for draft metadata.
type ToolTraceEntry struct {
	Tool   string          `json:"tool"`
	Args   map[string]any  `json:"args,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type LoopInput struct {
	System      string
	History     []llm.Message
	Tools       []llm.ToolDef
	ToolCtx     ToolContext
	Temperature float64
	MaxTokens   int
}

type LoopResult struct {
	Content      string
	Iterations   int
	ToolCalls    int
	Trace        []ToolTraceEntry
	StopReason   string
	Model        string
	Usage        llm.Usage
	UsedFallback bool
}

// Loop drives the generate, execute tools, regenerate cycle against one
// provider, bounded by the provider's iteration budget.
type Loop struct {
	log      *logger.Logger
	provider llm.Provider
	registry *Registry
}

func NewLoop(log *logger.Logger, provider llm.Provider, registry *Registry) *Loop {
	return &Loop{
		log:      log.With("service", "AssistantLoop"),
		provider: provider,
		registry: registry,
	}
}

// Run sends the conversation to the model and keeps answering its tool
// calls until it stops asking, or the budget runs out. Budget exhaustion
// and empty output both yield the fallback draft; neither is an error.
// Every requested call gets a tool-result turn, including unknown names,
// so the transcript the model sees stays well-formed.
func (l *Loop) Run(ctx context.Context, in LoopInput) (*LoopResult, error) {
	budget := l.iterationBudget()
	messages := append([]llm.Message{}, in.History...)
	out := &LoopResult{}

	for iter := 0; iter < budget; iter++ {
		resp, err := l.provider.Generate(ctx, llm.Request{
			System:      in.System,
			Messages:    messages,
			Tools:       in.Tools,
			Temperature: in.Temperature,
			MaxTokens:   in.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		out.Iterations++
		out.StopReason = resp.StopReason
		out.Model = resp.Model
		out.Usage.InputTokens += resp.Usage.InputTokens
		out.Usage.OutputTokens += resp.Usage.OutputTokens

		if len(resp.ToolCalls) == 0 {
			out.Content = strings.TrimSpace(resp.Content)
			if out.Content == "" {
				out.Content = fallbackDraft
				out.UsedFallback = true
			}
			return out, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			args := decodeToolArgs(call.Arguments)
			result := l.registry.Execute(ctx, call.Name, in.ToolCtx, args)
			out.ToolCalls++
			out.Trace = append(out.Trace, ToolTraceEntry{
				Tool:   call.Name,
				Args:   args,
				Result: result,
			})
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    string(result),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	l.log.Warn("tool budget exhausted; returning fallback draft",
		"provider", l.provider.Name(),
		"iterations", out.Iterations,
		"tool_calls", out.ToolCalls)
	out.Content = fallbackDraft
	out.UsedFallback = true
	out.StopReason = stopReasonBudget
	return out, nil
}

// iterationBudget is the provider's cap, overridable by env, clamped to
// [1,10].
func (l *Loop) iterationBudget() int {
	n := l.provider.MaxToolIterations()
	if v := envutil.Int(maxToolIterationsEnv, 0); v > 0 {
		n = v
	}
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	return n
}

func decodeToolArgs(raw json.RawMessage) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
