package stages

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentcore/guardcore/pkg/config"
	"github.com/agentcore/guardcore/pkg/guard"
)

func TestInputValidation_RejectsEmptyInput(t *testing.T) {
	s := NewInputValidation(config.GuardConfig{})
	result := s.Check(context.Background(), guard.Command{Text: ""})
	assert.Equal(t, guard.ResultRejected, result.Kind)
	assert.Equal(t, guard.CategoryInvalidInput, result.Category)
}

func TestInputValidation_RejectsOverMax(t *testing.T) {
	s := NewInputValidation(config.GuardConfig{InputMaxChars: 10})
	result := s.Check(context.Background(), guard.Command{Text: strings.Repeat("a", 11)})
	assert.Equal(t, guard.ResultRejected, result.Kind)
}

func TestInputValidation_AllowsWithinBounds(t *testing.T) {
	s := NewInputValidation(config.GuardConfig{InputMinChars: 1, InputMaxChars: 100})
	result := s.Check(context.Background(), guard.Command{Text: "a reasonable question"})
	assert.Equal(t, guard.ResultAllowed, result.Kind)
}

func TestInputValidation_RejectsOversizedSystemPrompt(t *testing.T) {
	s := NewInputValidation(config.GuardConfig{SystemPromptMaxChars: 10})
	cmd := guard.Command{Text: "hi", Metadata: map[string]any{"systemPrompt": strings.Repeat("x", 11)}}
	result := s.Check(context.Background(), cmd)
	assert.Equal(t, guard.ResultRejected, result.Kind)
}
