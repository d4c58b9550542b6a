package hook

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// BeforeAgentStartHook runs before an agent run begins. Returning
// anything other than Continue short-circuits the pipeline.
type BeforeAgentStartHook interface {
	Name() string
	Order() int
	Enabled() bool
	BeforeAgentStart(ctx context.Context, agentCtx *Context) (Result, error)
}

// BeforeToolCallHook runs before one tool invocation.
type BeforeToolCallHook interface {
	Name() string
	Order() int
	Enabled() bool
	BeforeToolCall(ctx context.Context, toolCtx *ToolCallContext) (Result, error)
}

// AfterToolCallHook observes the outcome of one tool invocation.
// FailOnError controls whether an error from this hook should propagate
// (true) or be logged and swallowed (false, the default fail-open mode).
type AfterToolCallHook interface {
	Name() string
	Order() int
	Enabled() bool
	FailOnError() bool
	AfterToolCall(ctx context.Context, toolCtx *ToolCallContext, result ToolCallResult) error
}

// AfterAgentCompleteHook observes the outcome of a full agent run.
type AfterAgentCompleteHook interface {
	Name() string
	Order() int
	Enabled() bool
	FailOnError() bool
	AfterAgentComplete(ctx context.Context, agentCtx *Context, response AgentResponse) error
}

// ToolCallResult is the outcome passed to AfterToolCall hooks.
type ToolCallResult struct {
	Success      bool
	DurationMs   int64
	ErrorMessage string
}

// AgentResponse is the outcome passed to AfterAgentComplete hooks.
type AgentResponse struct {
	Success        bool
	DurationMs     int64
	ErrorCode      string
	IntentCategory string
}

// Registry holds the registered hooks for all four lifecycle points and
// dispatches them in order.
type Registry struct {
	mu sync.RWMutex

	beforeStart []BeforeAgentStartHook
	beforeTool  []BeforeToolCallHook
	afterTool   []AfterToolCallHook
	afterAgent  []AfterAgentCompleteHook
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterBeforeAgentStart adds a handler and re-sorts the point by order.
func (r *Registry) RegisterBeforeAgentStart(h BeforeAgentStartHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeStart = append(r.beforeStart, h)
	sort.SliceStable(r.beforeStart, func(i, j int) bool { return r.beforeStart[i].Order() < r.beforeStart[j].Order() })
}

// RegisterBeforeToolCall adds a handler and re-sorts the point by order.
func (r *Registry) RegisterBeforeToolCall(h BeforeToolCallHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeTool = append(r.beforeTool, h)
	sort.SliceStable(r.beforeTool, func(i, j int) bool { return r.beforeTool[i].Order() < r.beforeTool[j].Order() })
}

// RegisterAfterToolCall adds a handler and re-sorts the point by order.
func (r *Registry) RegisterAfterToolCall(h AfterToolCallHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterTool = append(r.afterTool, h)
	sort.SliceStable(r.afterTool, func(i, j int) bool { return r.afterTool[i].Order() < r.afterTool[j].Order() })
}

// RegisterAfterAgentComplete adds a handler and re-sorts the point by order.
func (r *Registry) RegisterAfterAgentComplete(h AfterAgentCompleteHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterAgent = append(r.afterAgent, h)
	sort.SliceStable(r.afterAgent, func(i, j int) bool { return r.afterAgent[i].Order() < r.afterAgent[j].Order() })
}

// RunBeforeAgentStart dispatches enabled handlers in order, stopping at
// the first non-Continue result.
func (r *Registry) RunBeforeAgentStart(ctx context.Context, agentCtx *Context) (Result, error) {
	r.mu.RLock()
	handlers := append([]BeforeAgentStartHook(nil), r.beforeStart...)
	r.mu.RUnlock()

	for _, h := range handlers {
		if !h.Enabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result, err := h.BeforeAgentStart(ctx, agentCtx)
		if err != nil {
			return Result{}, err
		}
		if !result.IsContinue() {
			return result, nil
		}
	}
	return Continue(), nil
}

// RunBeforeToolCall dispatches enabled handlers in order, stopping at the
// first non-Continue result.
func (r *Registry) RunBeforeToolCall(ctx context.Context, toolCtx *ToolCallContext) (Result, error) {
	r.mu.RLock()
	handlers := append([]BeforeToolCallHook(nil), r.beforeTool...)
	r.mu.RUnlock()

	for _, h := range handlers {
		if !h.Enabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result, err := h.BeforeToolCall(ctx, toolCtx)
		if err != nil {
			return Result{}, err
		}
		if !result.IsContinue() {
			return result, nil
		}
	}
	return Continue(), nil
}

// RunAfterToolCall runs every enabled handler. A handler's error is
// logged and swallowed unless it declares FailOnError, in which case it
// propagates immediately. Context cancellation always propagates.
func (r *Registry) RunAfterToolCall(ctx context.Context, toolCtx *ToolCallContext, result ToolCallResult) error {
	r.mu.RLock()
	handlers := append([]AfterToolCallHook(nil), r.afterTool...)
	r.mu.RUnlock()

	for _, h := range handlers {
		if !h.Enabled() {
			continue
		}
		err := h.AfterToolCall(ctx, toolCtx, result)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if h.FailOnError() {
			return err
		}
		slog.Warn("after-tool-call hook failed", "hook", h.Name(), "error", err)
	}
	return nil
}

// RunAfterAgentComplete runs every enabled handler, always, even when the
// run itself failed — callers invoke this from a finally/defer block.
func (r *Registry) RunAfterAgentComplete(ctx context.Context, agentCtx *Context, response AgentResponse) error {
	r.mu.RLock()
	handlers := append([]AfterAgentCompleteHook(nil), r.afterAgent...)
	r.mu.RUnlock()

	for _, h := range handlers {
		if !h.Enabled() {
			continue
		}
		err := h.AfterAgentComplete(ctx, agentCtx, response)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if h.FailOnError() {
			return err
		}
		slog.Warn("after-agent-complete hook failed", "hook", h.Name(), "error", err)
	}
	return nil
}
