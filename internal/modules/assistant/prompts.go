package assistant

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

const assistantPromptsEnv = "ASSISTANT_PROMPTS_YAML"

//go:embed prompts.yaml
var promptSpecFS embed.FS

// PromptInput carries the placeholder values a phase template may use.
type PromptInput struct {
	StudentName string
	PhaseLabel  string
	Subject     string
}

// PhaseConfig is one phase's prompt setup: display label, system prompt
// template, and the tool names the model may call (empty allows all of
// the phase's registered tools).
type PhaseConfig struct {
	Phase  string
	Label  string
	Tools  []string
	system *template.Template
}

// RenderSystem fills the phase's system prompt template.
func (c *PhaseConfig) RenderSystem(in PromptInput) (string, error) {
	if strings.TrimSpace(in.PhaseLabel) == "" {
		in.PhaseLabel = c.Label
	}
	var buf strings.Builder
	if err := c.system.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// AllowsTool reports whether the config's allowlist admits a tool name.
func (c *PhaseConfig) AllowsTool(name string) bool {
	if len(c.Tools) == 0 {
		return true
	}
	for _, t := range c.Tools {
		if t == name {
			return true
		}
	}
	return false
}

type yamlPromptSpec struct {
	Version int                      `yaml:"version"`
	Phases  map[string]yamlPhaseSpec `yaml:"phases"`
}

type yamlPhaseSpec struct {
	Label  string   `yaml:"label"`
	Tools  []string `yaml:"tools"`
	System string   `yaml:"system"`
}

var promptsOnce sync.Once
var promptsCache map[string]*PhaseConfig
var promptsErr error

// PhaseConfigFor resolves the prompt config for a phase. Unknown phases
// fall back to Phase I; a broken config file falls back to the built-in
// defaults.
func PhaseConfigFor(log *logger.Logger, phase string) *PhaseConfig {
	configs := loadedPromptConfigs(log)
	if configs == nil {
		configs = builtinPhaseConfigs()
	}
	if cfg, ok := configs[strings.TrimSpace(phase)]; ok {
		return cfg
	}
	return configs[types.PhaseOne]
}

// PhaseLabel returns the display label for a phase.
func PhaseLabel(phase string) string {
	return PhaseConfigFor(nil, phase).Label
}

func loadedPromptConfigs(log *logger.Logger) map[string]*PhaseConfig {
	promptsOnce.Do(func() {
		promptsCache, promptsErr = loadPromptConfigs()
	})
	if promptsErr != nil {
		if log != nil {
			log.Warn("assistant: prompt config load failed; using built-ins", "error", promptsErr)
		}
		return nil
	}
	return promptsCache
}

func loadPromptConfigs() (map[string]*PhaseConfig, error) {
	data, err := readPromptSpec()
	if err != nil {
		return nil, err
	}
	var spec yamlPromptSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return buildPhaseConfigs(&spec)
}

func readPromptSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(assistantPromptsEnv)); path != "" {
		return os.ReadFile(path)
	}
	return promptSpecFS.ReadFile("prompts.yaml")
}

func buildPhaseConfigs(spec *yamlPromptSpec) (map[string]*PhaseConfig, error) {
	if spec == nil || len(spec.Phases) == 0 {
		return nil, errors.New("no phases defined")
	}
	out := make(map[string]*PhaseConfig, len(spec.Phases))
	for phase, ps := range spec.Phases {
		phase = strings.TrimSpace(phase)
		if !types.ValidPhase(phase) {
			return nil, fmt.Errorf("unknown phase: %s", phase)
		}
		if strings.TrimSpace(ps.Label) == "" {
			return nil, fmt.Errorf("phase %s: label is required", phase)
		}
		if strings.TrimSpace(ps.System) == "" {
			return nil, fmt.Errorf("phase %s: system prompt is required", phase)
		}
		tmpl, err := template.New(phase).Parse(ps.System)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", phase, err)
		}
		out[phase] = &PhaseConfig{
			Phase:  phase,
			Label:  strings.TrimSpace(ps.Label),
			Tools:  dedupeToolNames(ps.Tools),
			system: tmpl,
		}
	}
	if _, ok := out[types.PhaseOne]; !ok {
		return nil, errors.New("phase_i config is required")
	}
	return out, nil
}

func dedupeToolNames(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Trimmed-down prompts used only when the configured file cannot load.
const builtinSystemPhaseOne = `You are a teaching assistant drafting a reply to {{.StudentName}}, a student working through the {{.PhaseLabel}}. A human mentor reviews every reply before the student sees it. The student's latest message is about: {{.Subject}}. Use the tools to check the student's progress before referencing it, keep the reply short and encouraging, and call flag_for_mentor for anything a mentor must handle.`

const builtinSystemPhaseTwo = `You are a research assistant drafting a reply to {{.StudentName}}, a student running their own {{.PhaseLabel}}. A human mentor reviews every reply before the student sees it. The student's latest message is about: {{.Subject}}. Use the tools to check the project's state before commenting on it, keep the reply short, and call flag_for_mentor for scope or deadline decisions.`

var builtinOnce sync.Once
var builtinCache map[string]*PhaseConfig

func builtinPhaseConfigs() map[string]*PhaseConfig {
	builtinOnce.Do(func() {
		builtinCache = map[string]*PhaseConfig{
			types.PhaseOne: {
				Phase:  types.PhaseOne,
				Label:  "Phase I video curriculum",
				system: template.Must(template.New(types.PhaseOne).Parse(builtinSystemPhaseOne)),
			},
			types.PhaseTwo: {
				Phase:  types.PhaseTwo,
				Label:  "Phase II research project",
				system: template.Must(template.New(types.PhaseTwo).Parse(builtinSystemPhaseTwo)),
			},
		}
	})
	return builtinCache
}
