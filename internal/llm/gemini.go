package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/wrenfield/mentorloop-backend/internal/platform/envutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type GeminiProvider struct {
	log        *logger.Logger
	client     *genai.Client
	model      string
	maxRetries int
}

func NewGeminiProvider(log *logger.Logger) (*GeminiProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	model := envutil.String("GEMINI_MODEL", "gemini-2.5-flash")

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiProvider{
		log:        log.With("service", "GeminiProvider"),
		client:     client,
		model:      model,
		maxRetries: maxRetriesFromEnv(),
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) MaxToolIterations() int { return 8 }

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	config := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = ptrFloat32(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = buildGeminiTools(req.Tools)
	}

	contents := buildGeminiContents(req.Messages)

	return withRetry(ctx, p.log, p.maxRetries, func() (*Response, error) {
		resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return nil, wrapGeminiError(err)
		}
		return fromGeminiResponse(resp, model)
	})
}

func buildGeminiTools(defs []ToolDef) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  toGeminiSchema(def.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGeminiSchema converts a JSON schema object into the typed genai schema.
// Only the subset the tool registry emits is handled (object, scalar types,
// arrays, enums, descriptions, required lists).
func toGeminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		out.Type = geminiType(t)
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if rawEnum, ok := schema["enum"].([]any); ok {
		for _, item := range rawEnum {
			if s, ok := item.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	} else if strEnum, ok := schema["enum"].([]string); ok {
		out.Enum = append(out.Enum, strEnum...)
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}
	out.Required = requiredFromSchema(schema)
	return out
}

func geminiType(t string) genai.Type {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// buildGeminiContents maps neutral turns onto genai contents. Consecutive
// tool results collapse into one user content so each model turn gets a
// single function-response message back.
func buildGeminiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	var pendingResponses []*genai.Part

	flush := func() {
		if len(pendingResponses) == 0 {
			return
		}
		out = append(out, &genai.Content{Role: genai.RoleUser, Parts: pendingResponses})
		pendingResponses = nil
	}

	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			flush()
			content := &genai.Content{Role: genai.RoleModel}
			if strings.TrimSpace(m.Content) != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					_ = json.Unmarshal(tc.Arguments, &args)
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			if len(content.Parts) == 0 {
				continue
			}
			out = append(out, content)
		case RoleTool:
			pendingResponses = append(pendingResponses, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     m.ToolName,
					Response: geminiResponseMap(m.Content),
				},
			})
		default:
			flush()
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	flush()
	return out
}

func geminiResponseMap(content string) map[string]any {
	obj := map[string]any{}
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		return obj
	}
	return map[string]any{"result": content}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse, model string) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: empty candidates")
	}
	candidate := resp.Candidates[0]

	out := &Response{
		StopReason: StopReasonStop,
		Model:      model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	var text strings.Builder
	for i, part := range candidate.Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			callID := part.FunctionCall.ID
			if callID == "" {
				callID = fmt.Sprintf("call_%d", i)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        callID,
				Name:      part.FunctionCall.Name,
				Arguments: json.RawMessage(args),
			})
		}
	}
	out.Content = text.String()

	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		out.StopReason = StopReasonLength
	}
	if len(out.ToolCalls) > 0 {
		out.StopReason = StopReasonToolCalls
	}
	return out, nil
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider: "gemini",
			Status:   apiErr.Code,
			Msg:      apiErr.Message,
		}
	}
	return err
}

func ptrFloat32(f float32) *float32 { return &f }
