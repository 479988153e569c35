package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

// FromEnv builds the provider named by LLM_PROVIDER. OpenAI is the default
// when the variable is unset.
func FromEnv(log *logger.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	switch name {
	case "", "openai":
		return NewOpenAIProvider(log)
	case "anthropic":
		return NewAnthropicProvider(log)
	case "gemini":
		return NewGeminiProvider(log)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", name)
	}
}
