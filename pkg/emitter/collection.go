// Package emitter implements the hook-driven metric emitters described in
// §4.8: AfterAgentComplete/AfterToolCall hooks that translate lifecycle
// callbacks into typed events published onto the shared ring buffer.
// Both emitters are fail-open — metric loss is preferred to request
// failure — and rethrow cancellation rather than swallowing it.
package emitter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore/guardcore/pkg/health"
	"github.com/agentcore/guardcore/pkg/hook"
	"github.com/agentcore/guardcore/pkg/llmerr"
	"github.com/agentcore/guardcore/pkg/metricevent"
	"github.com/agentcore/guardcore/pkg/ring"
)

// MetricCollectionOrder is the fixed AfterAgentComplete/AfterToolCall
// order for this hook (§4.8).
const MetricCollectionOrder = 200

// MetricCollectionHook synthesizes AgentExecutionEvent and ToolCallEvent
// from the hook.Context metadata an orchestrator populates as a run
// progresses.
type MetricCollectionHook struct {
	buffer *ring.Buffer
	health *health.Monitor
}

// NewMetricCollectionHook creates the hook, publishing to buffer and
// recording drops on health.
func NewMetricCollectionHook(buffer *ring.Buffer, monitor *health.Monitor) *MetricCollectionHook {
	return &MetricCollectionHook{buffer: buffer, health: monitor}
}

func (h *MetricCollectionHook) Name() string     { return "metric-collection" }
func (h *MetricCollectionHook) Order() int       { return MetricCollectionOrder }
func (h *MetricCollectionHook) Enabled() bool    { return true }
func (h *MetricCollectionHook) FailOnError() bool { return false }

// AfterAgentComplete implements hook.AfterAgentCompleteHook.
func (h *MetricCollectionHook) AfterAgentComplete(ctx context.Context, agentCtx *hook.Context, response hook.AgentResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var errorCode string
	if !response.Success {
		errorCode = agentCtx.MetadataString("errorCode")
	}

	event := metricevent.AgentExecutionEvent{
		Meta: metricevent.Meta{
			EventID:   uuid.NewString(),
			TenantID:  agentCtx.MetadataString("tenantId"),
			Timestamp: time.Now(),
		},
		RunID:          agentCtx.RunID,
		UserID:         agentCtx.UserID,
		SessionID:      agentCtx.MetadataString("sessionId"),
		Success:        response.Success,
		ToolCount:      len(agentCtx.ToolsUsed()),
		DurationMs:     response.DurationMs,
		LLMDurationMs:  metadataInt64(agentCtx, "llmDurationMs"),
		ToolDurationMs: metadataInt64(agentCtx, "toolDurationMs"),
		GuardDuration:  metadataInt64(agentCtx, "guardDurationMs"),
		QueueWaitMs:    metadataInt64(agentCtx, "queueWaitMs"),
		ErrorCode:      errorCode,
		IntentCategory: response.IntentCategory,
	}

	h.publish(event)
	return nil
}

// AfterToolCall implements hook.AfterToolCallHook.
func (h *MetricCollectionHook) AfterToolCall(ctx context.Context, toolCtx *hook.ToolCallContext, result hook.ToolCallResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	toolSource := metricevent.ToolSourceLocal
	if src, ok := metaString(toolCtx.AgentContext, "toolSource_"+toolCtx.ToolName); ok && src == string(metricevent.ToolSourceMCP) {
		toolSource = metricevent.ToolSourceMCP
	}
	mcpServerName, _ := metaString(toolCtx.AgentContext, "mcpServer_"+toolCtx.ToolName)

	var errorClass string
	errorMessage := result.ErrorMessage
	if !result.Success && errorMessage != "" {
		errorClass = string(llmerr.Classify(errorMessage))
		errorMessage = metricevent.Truncate(errorMessage)
	}

	event := metricevent.ToolCallEvent{
		Meta: metricevent.Meta{
			EventID:   uuid.NewString(),
			TenantID:  toolCtx.AgentContext.MetadataString("tenantId"),
			Timestamp: time.Now(),
		},
		RunID:         toolCtx.AgentContext.RunID,
		ToolName:      toolCtx.ToolName,
		ToolSource:    toolSource,
		McpServerName: mcpServerName,
		CallIndex:     toolCtx.CallIndex,
		Success:       result.Success,
		DurationMs:    result.DurationMs,
		ErrorClass:    errorClass,
		ErrorMessage:  errorMessage,
	}

	h.publish(event)
	return nil
}

func (h *MetricCollectionHook) publish(event metricevent.MetricEvent) {
	if h.buffer.Publish(event) {
		return
	}
	if h.health != nil {
		h.health.RecordDrop(1)
	}
}

func metadataInt64(c *hook.Context, key string) int64 {
	s, ok := metaString(c, key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func metaString(c *hook.Context, key string) (string, bool) {
	v, ok := c.Metadata(key)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprintf("%v", s), true
	}
}
