package emitter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore/guardcore/pkg/health"
	"github.com/agentcore/guardcore/pkg/hook"
	"github.com/agentcore/guardcore/pkg/metricevent"
	"github.com/agentcore/guardcore/pkg/ring"
)

// HitlEventOrder is the fixed AfterToolCall order for this hook (§4.8).
const HitlEventOrder = 201

// HitlEventHook reads the human-in-the-loop approval metadata an
// approval gate leaves behind for each tool call and emits one HitlEvent
// per call that actually went through approval. A call with no
// hitlWaitMs key (indexed or legacy) never went through HITL and is
// skipped silently.
type HitlEventHook struct {
	buffer *ring.Buffer
	health *health.Monitor
}

// NewHitlEventHook creates the hook, publishing to buffer and recording
// drops on health.
func NewHitlEventHook(buffer *ring.Buffer, monitor *health.Monitor) *HitlEventHook {
	return &HitlEventHook{buffer: buffer, health: monitor}
}

func (h *HitlEventHook) Name() string      { return "hitl-event" }
func (h *HitlEventHook) Order() int        { return HitlEventOrder }
func (h *HitlEventHook) Enabled() bool     { return true }
func (h *HitlEventHook) FailOnError() bool { return false }

// AfterToolCall implements hook.AfterToolCallHook.
func (h *HitlEventHook) AfterToolCall(ctx context.Context, toolCtx *hook.ToolCallContext, _ hook.ToolCallResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agentCtx := toolCtx.AgentContext
	tool := toolCtx.ToolName
	indexedSuffix := fmt.Sprintf("%s_%d", tool, toolCtx.CallIndex)
	legacySuffix := tool

	waitStr, ok := hitlMeta(agentCtx, "hitlWaitMs_", indexedSuffix, legacySuffix)
	if !ok {
		return nil
	}
	waitMs, err := strconv.ParseInt(waitStr, 10, 64)
	if err != nil {
		return nil
	}

	approved := false
	if approvedStr, ok := hitlMeta(agentCtx, "hitlApproved_", indexedSuffix, legacySuffix); ok {
		approved, _ = strconv.ParseBool(approvedStr)
	}

	reason, _ := hitlMeta(agentCtx, "hitlRejectionReason_", indexedSuffix, legacySuffix)

	event := metricevent.HitlEvent{
		Meta: metricevent.Meta{
			EventID:   uuid.NewString(),
			TenantID:  agentCtx.MetadataString("tenantId"),
			Timestamp: time.Now(),
		},
		RunID:           agentCtx.RunID,
		ToolName:        tool,
		Approved:        approved,
		WaitMs:          waitMs,
		RejectionReason: reason,
	}

	if !h.buffer.Publish(event) && h.health != nil {
		h.health.RecordDrop(1)
	}
	return nil
}

// hitlMeta looks up prefix+indexedSuffix first, falling back to
// prefix+legacySuffix (the non-indexed key predates per-call-index
// tracking) — indexed always wins when both are present.
func hitlMeta(c *hook.Context, prefix, indexedSuffix, legacySuffix string) (string, bool) {
	if v, ok := metaString(c, prefix+indexedSuffix); ok {
		return v, true
	}
	return metaString(c, prefix+legacySuffix)
}
