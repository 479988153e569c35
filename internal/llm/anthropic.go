package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wrenfield/mentorloop-backend/internal/platform/envutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

const anthropicDefaultMaxTokens = 1024

type AnthropicProvider struct {
	log        *logger.Logger
	client     anthropic.Client
	model      string
	maxRetries int
}

func NewAnthropicProvider(log *logger.Logger) (*AnthropicProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}
	model := envutil.String("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")

	return &AnthropicProvider{
		log:        log.With("service", "AnthropicProvider"),
		client:     anthropic.NewClient(aoption.WithAPIKey(apiKey)),
		model:      model,
		maxRetries: maxRetriesFromEnv(),
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) MaxToolIterations() int { return 10 }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  buildAnthropicMessages(req.Messages),
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = buildAnthropicTools(req.Tools)
	}

	return withRetry(ctx, p.log, p.maxRetries, func() (*Response, error) {
		msg, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return nil, wrapAnthropicError(err)
		}
		return fromAnthropicMessage(msg), nil
	})
}

func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: json.RawMessage(tc.Arguments),
					},
				})
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			block := anthropic.NewToolResultBlock(m.ToolCallID)
			block.OfToolResult.Content = []anthropic.ToolResultBlockParamContentUnion{
				{OfText: &anthropic.TextBlockParam{Text: m.Content}},
			}
			out = append(out, anthropic.NewUserMessage(block))
		default:
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

func buildAnthropicTools(defs []ToolDef) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: def.Parameters["properties"],
				Required:   requiredFromSchema(def.Parameters),
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

func requiredFromSchema(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func fromAnthropicMessage(msg *anthropic.Message) *Response {
	out := &Response{
		StopReason: StopReasonStop,
		Model:      string(msg.Model),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: json.RawMessage(variant.Input),
			})
		}
	}
	out.Content = text.String()

	switch msg.StopReason {
	case anthropic.StopReasonToolUse:
		out.StopReason = StopReasonToolCalls
	case anthropic.StopReasonMaxTokens:
		out.StopReason = StopReasonLength
	}
	if len(out.ToolCalls) > 0 {
		out.StopReason = StopReasonToolCalls
	}
	return out
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		wrapped := &APIError{
			Provider: "anthropic",
			Status:   apiErr.StatusCode,
			Msg:      apiErr.Error(),
		}
		if apiErr.Response != nil {
			if ra := strings.TrimSpace(apiErr.Response.Header.Get("Retry-After")); ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					wrapped.RetryAfter = time.Duration(secs) * time.Second
				}
			}
		}
		return wrapped
	}
	return err
}
