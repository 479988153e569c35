package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wrenfield/mentorloop-backend/internal/platform/envutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type OpenAIProvider struct {
	log        *logger.Logger
	client     *openai.Client
	model      string
	maxRetries int
}

func NewOpenAIProvider(log *logger.Logger) (*OpenAIProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	model := envutil.String("OPENAI_MODEL", "gpt-4o-mini")

	return &OpenAIProvider{
		log:        log.With("service", "OpenAIProvider"),
		client:     openai.NewClient(apiKey),
		model:      model,
		maxRetries: maxRetriesFromEnv(),
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) MaxToolIterations() int { return 5 }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	oaReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    buildOpenAIMessages(req),
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		oaReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		oaReq.Tools = buildOpenAITools(req.Tools)
	}

	return withRetry(ctx, p.log, p.maxRetries, func() (*Response, error) {
		resp, err := p.client.CreateChatCompletion(ctx, oaReq)
		if err != nil {
			return nil, wrapOpenAIError(err)
		}
		return fromOpenAIResponse(resp)
	})
}

func buildOpenAIMessages(req Request) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			oaMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, tc := range m.ToolCalls {
				oaMsg.ToolCalls = append(oaMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			out = append(out, oaMsg)
		case RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.ToolName,
				ToolCallID: m.ToolCallID,
			})
		default:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			})
		}
	}
	return out
}

func buildOpenAITools(defs []ToolDef) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIResponse(resp openai.ChatCompletionResponse) (*Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}
	choice := resp.Choices[0]

	out := &Response{
		Content:    choice.Message.Content,
		StopReason: StopReasonStop,
		Model:      resp.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	switch choice.FinishReason {
	case openai.FinishReasonToolCalls:
		out.StopReason = StopReasonToolCalls
	case openai.FinishReasonLength:
		out.StopReason = StopReasonLength
	}
	if len(out.ToolCalls) > 0 {
		out.StopReason = StopReasonToolCalls
	}
	return out, nil
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider: "openai",
			Status:   apiErr.HTTPStatusCode,
			Msg:      apiErr.Message,
		}
	}
	return err
}
