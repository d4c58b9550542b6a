package outputstages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentcore/guardcore/pkg/guard"
	"github.com/agentcore/guardcore/pkg/masking"
)

func TestPIIMasking_ModifiesContentContainingSecrets(t *testing.T) {
	s := NewPIIMasking(masking.NewService(), "security")
	result := s.Check(context.Background(), "my email is jane@example.com, reach me there")
	assert.Equal(t, guard.OutputModified, result.Kind)
	assert.NotContains(t, result.Content, "jane@example.com")
}

func TestPIIMasking_AllowsCleanContent(t *testing.T) {
	s := NewPIIMasking(masking.NewService(), "security")
	result := s.Check(context.Background(), "the weather today is sunny")
	assert.Equal(t, guard.OutputAllowed, result.Kind)
}

func TestPIIMasking_DisabledWithNilService(t *testing.T) {
	s := NewPIIMasking(nil)
	assert.False(t, s.Enabled())
}
