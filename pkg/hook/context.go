// Package hook implements the four-lifecycle-point extension framework
// (§4.6): BeforeAgentStart, BeforeToolCall, AfterToolCall, and
// AfterAgentComplete. Handlers are ordered and filtered by enablement at
// construction; before-hooks short-circuit the pipeline on the first
// non-Continue result, after-hooks are fail-open observers.
package hook

import (
	"regexp"
	"sync"
	"time"
)

// Context carries per-request state shared by every hook invoked while
// handling one agent run. toolsUsed and metadata are safe for concurrent
// mutation since tool branches execute concurrently (§5).
type Context struct {
	RunID      string
	UserID     string
	UserEmail  string // optional
	UserPrompt string
	Channel    string // optional
	StartedAt  time.Time

	toolsUsedMu sync.Mutex
	toolsUsed   []string

	metadata sync.Map // string -> any
}

// NewContext creates a Context for a new agent run.
func NewContext(runID, userID, userPrompt string) *Context {
	return &Context{
		RunID:      runID,
		UserID:     userID,
		UserPrompt: userPrompt,
		StartedAt:  time.Now(),
	}
}

// AddToolUsed appends name to the run's tool-usage log. Safe for
// concurrent use across parallel tool branches.
func (c *Context) AddToolUsed(name string) {
	c.toolsUsedMu.Lock()
	defer c.toolsUsedMu.Unlock()
	c.toolsUsed = append(c.toolsUsed, name)
}

// ToolsUsed returns a snapshot of the tools invoked so far.
func (c *Context) ToolsUsed() []string {
	c.toolsUsedMu.Lock()
	defer c.toolsUsedMu.Unlock()
	out := make([]string, len(c.toolsUsed))
	copy(out, c.toolsUsed)
	return out
}

// SetMetadata stores a value under key, visible to every hook sharing
// this Context — including across goroutines, so resolvers (e.g. the
// tenant resolver) never need a thread-local.
func (c *Context) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// Metadata retrieves a previously stored value.
func (c *Context) Metadata(key string) (any, bool) {
	return c.metadata.Load(key)
}

// MetadataString retrieves a string value, returning "" if absent or of
// the wrong type.
func (c *Context) MetadataString(key string) string {
	v, ok := c.metadata.Load(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ToolCallContext wraps the agent-level Context with per-call data for
// one tool invocation.
type ToolCallContext struct {
	AgentContext *Context
	ToolName     string
	ToolParams   map[string]any
	CallIndex    int
}

var sensitiveKeyPattern = regexp.MustCompile(`(?i)password|token|secret|key|credential|apikey`)

// MaskedParams returns a copy of ToolParams with any key matching the
// sensitive-key pattern redacted, for safe inclusion in logs and audit
// records.
func (t *ToolCallContext) MaskedParams() map[string]any {
	masked := make(map[string]any, len(t.ToolParams))
	for k, v := range t.ToolParams {
		if sensitiveKeyPattern.MatchString(k) {
			masked[k] = "***REDACTED***"
			continue
		}
		masked[k] = v
	}
	return masked
}
