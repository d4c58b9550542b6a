package stages

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/agentcore/guardcore/pkg/config"
	"github.com/agentcore/guardcore/pkg/guard"
)

// InputValidationOrder is the fixed pipeline position for this stage (§4.5).
const InputValidationOrder = 2

const (
	defaultMinChars             = 1
	defaultMaxChars             = 10000
	defaultSystemPromptMaxChars = 20000
)

// InputValidation rejects requests whose text (or, if present, system
// prompt) falls outside the configured length bounds (§4.5).
type InputValidation struct {
	minChars             int
	maxChars             int
	systemPromptMaxChars int
}

// NewInputValidation builds the stage from guard configuration.
func NewInputValidation(cfg config.GuardConfig) *InputValidation {
	minChars := cfg.InputMinChars
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	maxChars := cfg.InputMaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	systemPromptMax := cfg.SystemPromptMaxChars
	if systemPromptMax <= 0 {
		systemPromptMax = defaultSystemPromptMaxChars
	}
	return &InputValidation{minChars: minChars, maxChars: maxChars, systemPromptMaxChars: systemPromptMax}
}

func (s *InputValidation) Name() string  { return "input-validation" }
func (s *InputValidation) Order() int    { return InputValidationOrder }
func (s *InputValidation) Enabled() bool { return true }

func (s *InputValidation) Check(_ context.Context, cmd guard.Command) guard.Result {
	n := utf8.RuneCountInString(cmd.Text)
	if n < s.minChars {
		return guard.Rejected(fmt.Sprintf("input is %d characters, below the minimum of %d", n, s.minChars), guard.CategoryInvalidInput)
	}
	if n > s.maxChars {
		return guard.Rejected(fmt.Sprintf("input is %d characters, exceeding the maximum of %d", n, s.maxChars), guard.CategoryInvalidInput)
	}

	if systemPrompt, ok := cmd.Metadata["systemPrompt"].(string); ok && systemPrompt != "" {
		spLen := utf8.RuneCountInString(systemPrompt)
		if spLen > s.systemPromptMaxChars {
			return guard.Rejected(fmt.Sprintf("system prompt is %d characters, exceeding the maximum of %d", spLen, s.systemPromptMaxChars), guard.CategoryInvalidInput)
		}
	}

	return guard.Allowed()
}
