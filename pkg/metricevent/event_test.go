package metricevent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	short := "short message"
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("x", 600)
	truncated := Truncate(long)
	assert.Len(t, []rune(truncated), MaxErrorMessageLen)
}

func TestEventKinds(t *testing.T) {
	var events = []MetricEvent{
		AgentExecutionEvent{},
		ToolCallEvent{},
		TokenUsageEvent{},
		GuardEvent{},
		QuotaEvent{},
		HitlEvent{},
		McpHealthEvent{},
	}
	kinds := map[EventKind]bool{}
	for _, e := range events {
		kinds[e.Kind()] = true
	}
	assert.Len(t, kinds, 7, "every variant must have a distinct Kind")
}
