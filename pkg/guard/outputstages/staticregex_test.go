package outputstages

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/guardcore/pkg/guard"
)

func TestStaticRegex_RejectsMatchingPattern(t *testing.T) {
	s := NewStaticRegex([]StaticPattern{
		{Name: "internal-hostname", Regex: regexp.MustCompile(`\.internal\.corp\b`), Message: "leaked internal hostname"},
	})

	result := s.Check(context.Background(), "connect to db01.internal.corp for details")
	require.Equal(t, guard.OutputRejected, result.Kind)
	assert.Equal(t, "leaked internal hostname", result.Reason)
}

func TestStaticRegex_DefaultMessageWhenNoneConfigured(t *testing.T) {
	s := NewStaticRegex([]StaticPattern{
		{Name: "forbidden-word", Regex: regexp.MustCompile(`forbidden`)},
	})

	result := s.Check(context.Background(), "this is forbidden territory")
	require.Equal(t, guard.OutputRejected, result.Kind)
	assert.Contains(t, result.Reason, "forbidden-word")
}

func TestStaticRegex_AllowsNonMatchingContent(t *testing.T) {
	s := NewStaticRegex([]StaticPattern{
		{Name: "internal-hostname", Regex: regexp.MustCompile(`\.internal\.corp\b`)},
	})

	result := s.Check(context.Background(), "nothing sensitive here")
	assert.Equal(t, guard.OutputAllowed, result.Kind)
}

func TestStaticRegex_DisabledWithNoPatterns(t *testing.T) {
	s := NewStaticRegex(nil)
	assert.False(t, s.Enabled())
}
