// Package metricevent defines the typed metric events synthesized by the
// hook-based emitters and carried through the ring buffer to the writer.
//
// The source design uses a sealed class hierarchy for these variants; Go has
// no sealed types, so this package expresses the same "one of N, exhaustive
// at every switch" intent with a closed interface (MetricEvent) implemented
// only by the structs in this file, plus an EventKind discriminator that
// callers switch on. Adding a new variant means adding a new EventKind
// constant and a new struct — every type switch in the codebase that lacks
// a case for it should be caught in review, mirroring a compile-time
// exhaustiveness check as closely as plain Go allows.
package metricevent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decimal is the exact-arithmetic decimal type used for cost fields,
// avoiding the float drift that would otherwise accumulate across millions
// of per-token cost calculations.
type Decimal = decimal.Decimal

// EventKind discriminates the MetricEvent union.
type EventKind string

const (
	KindAgentExecution EventKind = "agent_execution"
	KindToolCall       EventKind = "tool_call"
	KindTokenUsage     EventKind = "token_usage"
	KindGuard          EventKind = "guard"
	KindQuota          EventKind = "quota"
	KindHitl           EventKind = "hitl"
	KindMcpHealth      EventKind = "mcp_health"
)

// MetricEvent is implemented by every event variant. EventMeta returns the
// fields common to all variants (§3); Kind returns the discriminator used
// by the writer, the store schema, and admin ingest handlers.
type MetricEvent interface {
	EventMeta() Meta
	Kind() EventKind
}

// Meta holds the fields shared by every MetricEvent variant.
type Meta struct {
	EventID   string
	TenantID  string
	Timestamp time.Time // authoring time, not persist time (§3 invariant)
}

// MaxErrorMessageLen is the truncation length applied to free-text error
// fields on ToolCallEvent and GuardEvent (§3, §8 boundary behavior).
const MaxErrorMessageLen = 500

// Truncate clips s to MaxErrorMessageLen runes, the way §8 requires:
// "Error messages longer than 500 chars are truncated to exactly 500."
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxErrorMessageLen {
		return s
	}
	return string(r[:MaxErrorMessageLen])
}

// AgentExecutionEvent records the outcome of one full agent run (§3).
type AgentExecutionEvent struct {
	Meta
	RunID          string
	UserID         string
	SessionID      string // optional, empty when absent
	Success        bool
	ToolCount      int
	DurationMs     int64
	LLMDurationMs  int64
	ToolDurationMs int64
	GuardDuration  int64 // guardDurationMs
	QueueWaitMs    int64
	ErrorCode      string // optional, empty when absent/success
	PersonaID      string // optional
	IntentCategory string // optional
}

func (e AgentExecutionEvent) EventMeta() Meta   { return e.Meta }
func (e AgentExecutionEvent) Kind() EventKind   { return KindAgentExecution }

// ToolSource identifies where a tool call was served from.
type ToolSource string

const (
	ToolSourceLocal ToolSource = "local"
	ToolSourceMCP   ToolSource = "mcp"
)

// ToolCallEvent records one tool invocation within a run (§3).
type ToolCallEvent struct {
	Meta
	RunID         string
	ToolName      string
	ToolSource    ToolSource
	McpServerName string // optional, only set when ToolSource == mcp
	CallIndex     int
	Success       bool
	DurationMs    int64
	ErrorClass    string // optional: timeout|connection_error|permission_denied|not_found|unknown
	ErrorMessage  string // optional, truncated to MaxErrorMessageLen
}

func (e ToolCallEvent) EventMeta() Meta { return e.Meta }
func (e ToolCallEvent) Kind() EventKind { return KindToolCall }

// TokenUsageEvent records LLM token consumption and its estimated cost (§3).
//
// Invariant: TotalTokens == PromptTokens + CompletionTokens.
// Invariant: EstimatedCostUsd >= 0.
type TokenUsageEvent struct {
	Meta
	RunID            string
	Model            string
	Provider         string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	EstimatedCostUsd Decimal
}

func (e TokenUsageEvent) EventMeta() Meta { return e.Meta }
func (e TokenUsageEvent) Kind() EventKind { return KindTokenUsage }

// GuardEvent records one guard-stage decision, input or output side (§3).
type GuardEvent struct {
	Meta
	Stage         string
	Category      string
	ReasonDetail  string // optional, truncated to MaxErrorMessageLen
	IsOutputGuard bool
	Action        string // optional: e.g. "masked", "rejected", "modified"
}

func (e GuardEvent) EventMeta() Meta { return e.Meta }
func (e GuardEvent) Kind() EventKind { return KindGuard }

// QuotaAction enumerates QuotaEvent.Action values (§4.7).
type QuotaAction string

const (
	QuotaActionRejectedRequests  QuotaAction = "rejected_requests"
	QuotaActionRejectedTokens    QuotaAction = "rejected_tokens"
	QuotaActionRejectedSuspended QuotaAction = "rejected_suspended"
	QuotaActionWarning          QuotaAction = "warning"
)

// QuotaEvent records a quota decision (§3, §4.7).
type QuotaEvent struct {
	Meta
	Action          QuotaAction
	CurrentRequests int64
	CurrentTokens   int64
	QuotaRequests   int64
	QuotaTokens     int64
	UsagePercent    float64
}

func (e QuotaEvent) EventMeta() Meta { return e.Meta }
func (e QuotaEvent) Kind() EventKind { return KindQuota }

// HitlEvent records a human-in-the-loop approval outcome (§3, §4.8).
type HitlEvent struct {
	Meta
	RunID            string
	ToolName         string
	Approved         bool
	WaitMs           int64
	RejectionReason  string // optional
}

func (e HitlEvent) EventMeta() Meta { return e.Meta }
func (e HitlEvent) Kind() EventKind { return KindHitl }

// McpHealthEvent records one MCP server health probe result (§3).
type McpHealthEvent struct {
	Meta
	ServerName     string
	Status         string
	ResponseTimeMs int64
	ToolCount      int
	ErrorClass     string // optional
	ErrorMessage   string // optional, truncated
}

func (e McpHealthEvent) EventMeta() Meta { return e.Meta }
func (e McpHealthEvent) Kind() EventKind { return KindMcpHealth }

// Decode unmarshals payload into the concrete variant named by kind. Both
// the event store (reading persisted JSONB back) and the admin ingest
// handlers (reading an operator-submitted event body) share this so the
// set of known kinds lives in exactly one place.
func Decode(kind EventKind, payload []byte) (MetricEvent, error) {
	switch kind {
	case KindAgentExecution:
		var e AgentExecutionEvent
		return e, json.Unmarshal(payload, &e)
	case KindToolCall:
		var e ToolCallEvent
		return e, json.Unmarshal(payload, &e)
	case KindTokenUsage:
		var e TokenUsageEvent
		return e, json.Unmarshal(payload, &e)
	case KindGuard:
		var e GuardEvent
		return e, json.Unmarshal(payload, &e)
	case KindQuota:
		var e QuotaEvent
		return e, json.Unmarshal(payload, &e)
	case KindHitl:
		var e HitlEvent
		return e, json.Unmarshal(payload, &e)
	case KindMcpHealth:
		var e McpHealthEvent
		return e, json.Unmarshal(payload, &e)
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}

// ApplyDefaults fills in an externally-submitted event's EventID and
// Timestamp when left zero, and its TenantID when empty — the admin
// ingest endpoints (§6.2) accept events from producers that may not set
// every Meta field themselves.
func ApplyDefaults(e MetricEvent, tenantID string) MetricEvent {
	meta := e.EventMeta()
	if meta.EventID == "" {
		meta.EventID = uuid.NewString()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.TenantID == "" {
		meta.TenantID = tenantID
	}

	switch v := e.(type) {
	case AgentExecutionEvent:
		v.Meta = meta
		return v
	case ToolCallEvent:
		v.Meta = meta
		return v
	case TokenUsageEvent:
		v.Meta = meta
		return v
	case GuardEvent:
		v.Meta = meta
		return v
	case QuotaEvent:
		v.Meta = meta
		return v
	case HitlEvent:
		v.Meta = meta
		return v
	case McpHealthEvent:
		v.Meta = meta
		return v
	default:
		return e
	}
}
