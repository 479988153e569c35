// Package llm abstracts the chat-completion providers behind one neutral
// request/response surface so the assistant loop does not care which vendor
// is configured. Each provider adapter translates the neutral types to its
// SDK and normalizes stop reasons and errors back.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Normalized stop reasons across providers.
const (
	StopReasonStop      = "stop"
	StopReasonToolCalls = "tool_calls"
	StopReasonLength    = "length"
)

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one conversation turn. Assistant turns may carry ToolCalls;
// tool turns carry the serialized result in Content plus the call they
// answer in ToolCallID/ToolName.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolDef declares a callable function. Parameters is a JSON schema object
// ({"type":"object","properties":{...},"required":[...]}).
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Request struct {
	// Model overrides the provider's configured default when non-empty.
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolDef
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Model      string
	Usage      Usage
}

// Provider is a configured vendor client. MaxToolIterations is the vendor's
// default budget for the assistant tool loop; the loop may tighten it.
type Provider interface {
	Name() string
	MaxToolIterations() int
	Generate(ctx context.Context, req Request) (*Response, error)
}

// APIError is a normalized provider HTTP failure. It satisfies
// httpx.HTTPStatusCoder so the retry helper can classify it.
type APIError struct {
	Provider string
	Status   int
	Msg      string

	// RetryAfter is the server-requested delay when the provider exposes a
	// Retry-After header, zero otherwise.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status=%d %s", e.Provider, e.Status, e.Msg)
}

func (e *APIError) HTTPStatusCode() int { return e.Status }
