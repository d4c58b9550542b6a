// Package orchestrator composes the tenant resolver, hook framework, and
// guard pipelines around one external collaborator — the agent core
// (§1's "out of scope... ReAct loop itself") — wiring the full request
// lifecycle described in §2's data-flow diagram:
//
//	request -> tenant resolver -> BeforeStart hooks -> guard pipeline
//	       -> agent core (external)
//	          \-> per tool: BeforeTool hook -> tool call -> AfterTool hook
//	       -> output guard pipeline
//	       -> AfterComplete hooks (emit events to ring buffer)
package orchestrator

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	coreerrors "github.com/agentcore/guardcore/pkg/errors"
	"github.com/agentcore/guardcore/pkg/guard"
	"github.com/agentcore/guardcore/pkg/hook"
	"github.com/agentcore/guardcore/pkg/llmerr"
	"github.com/agentcore/guardcore/pkg/metricevent"
	"github.com/agentcore/guardcore/pkg/ring"
	"github.com/agentcore/guardcore/pkg/tenant"
)

const defaultRequestTimeout = 30 * time.Second
const afterCompleteGrace = 5 * time.Second

// TokenUsage summarizes one LLM call's token consumption, as reported by
// the agent core.
type TokenUsage struct {
	Provider         string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// AgentOutput is what the external agent core returns for one run.
type AgentOutput struct {
	Text           string
	LLMDurationMs  int64
	ToolDurationMs int64
	TokenUsage     *TokenUsage
}

// AgentCore is the external collaborator that actually runs the model's
// ReAct loop; this package only wraps it with guard/hook/metric plumbing.
type AgentCore interface {
	Execute(ctx context.Context, agentCtx *hook.Context, text string) (AgentOutput, error)
}

// httpStatusError lets an AgentCore error opt into carrying an HTTP
// status code, so retry classification can use it alongside keyword
// matching (§6.3).
type httpStatusError interface {
	HTTPStatus() int
}

// Result is what HandleRequest returns to the caller.
type Result struct {
	Success   bool
	Text      string
	ErrorCode coreerrors.Code
	Stage     string
}

// Orchestrator composes the tenant resolver, hook registry, and both
// guard pipelines around an AgentCore.
type Orchestrator struct {
	resolver *tenant.Resolver
	hooks    *hook.Registry
	input    *guard.Pipeline
	output   *guard.OutputPipeline
	core     AgentCore
	buffer   *ring.Buffer

	requestTimeout time.Duration
	retryAttempts  int
	retryInitial   time.Duration
	retryMult      float64
	retryMaxDelay  time.Duration
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

// WithRequestTimeout overrides the default 30s wall-clock deadline (§5).
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.requestTimeout = d }
}

// WithRetryPolicy configures the agent-core call's retry behavior (§5, §6.5).
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration, multiplier float64, maxDelay time.Duration) Option {
	return func(o *Orchestrator) {
		o.retryAttempts = maxAttempts
		o.retryInitial = initialDelay
		o.retryMult = multiplier
		o.retryMaxDelay = maxDelay
	}
}

// New creates an Orchestrator. hooks must already have the quota
// enforcer and metric emitters registered; input/output are the built
// guard pipelines.
func New(resolver *tenant.Resolver, hooks *hook.Registry, input *guard.Pipeline, output *guard.OutputPipeline, core AgentCore, buffer *ring.Buffer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:       resolver,
		hooks:          hooks,
		input:          input,
		output:         output,
		core:           core,
		buffer:         buffer,
		requestTimeout: defaultRequestTimeout,
		retryAttempts:  1,
		retryInitial:   500 * time.Millisecond,
		retryMult:      2,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleRequest runs one request through the full lifecycle: tenant
// resolution, BeforeStart hooks, the input guard, the agent core (with
// retry), the output guard, and AfterComplete hooks — which always run,
// even on rejection or deadline expiry (§8 invariant 3).
func (o *Orchestrator) HandleRequest(ctx context.Context, cmd guard.Command, userEmail, tenantHeader string) (Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	tenantID := o.resolver.Resolve(cmd.TenantID())
	if tenantHeader != "" {
		tenantID = tenantHeader
	}
	if cmd.Metadata == nil {
		cmd.Metadata = map[string]any{}
	}
	cmd.Metadata["tenantId"] = tenantID

	runID := uuid.NewString()
	agentCtx := hook.NewContext(runID, cmd.NormalizeUserID(), cmd.Text)
	agentCtx.UserEmail = userEmail
	agentCtx.Channel = cmd.Channel
	for k, v := range cmd.Metadata {
		agentCtx.SetMetadata(k, v)
	}

	start := time.Now()

	beforeResult, err := o.hooks.RunBeforeAgentStart(reqCtx, agentCtx)
	if err != nil {
		if reqCtx.Err() != nil {
			return o.finalize(ctx, agentCtx, start, false, coreerrors.Timeout, ""), nil
		}
		return o.finalize(ctx, agentCtx, start, false, coreerrors.Unknown, ""), nil
	}
	switch beforeResult.Kind {
	case hook.ResultReject:
		return o.finalize(ctx, agentCtx, start, false, coreerrors.HookRejected, ""), nil
	case hook.ResultPendingApproval:
		return o.finalize(ctx, agentCtx, start, false, coreerrors.HookRejected, ""), nil
	case hook.ResultModify:
		if beforeResult.ModifiedPrompt != "" {
			cmd = cmd.WithText(beforeResult.ModifiedPrompt)
		}
		for k, v := range beforeResult.ModifiedMetadata {
			agentCtx.SetMetadata(k, v)
			cmd.Metadata[k] = v
		}
	}

	guardOutcome := o.input.Run(reqCtx, cmd)
	agentCtx.SetMetadata("guardDurationMs", guardOutcome.TotalMs)
	if guardOutcome.Result.Kind == guard.ResultRejected {
		o.emitGuard(agentCtx, guardOutcome.Result.Stage, string(guardOutcome.Result.Category), guardOutcome.Result.Reason, false, "rejected")
		return o.finalizeStage(ctx, agentCtx, start, coreerrors.GuardRejected, guardOutcome.Result.Stage), nil
	}

	output, err := o.callWithRetry(reqCtx, agentCtx, guardOutcome.FinalText)
	if err != nil {
		if reqCtx.Err() != nil {
			return o.finalize(ctx, agentCtx, start, false, coreerrors.Timeout, ""), nil
		}
		return o.finalize(ctx, agentCtx, start, false, classifyAgentError(err), ""), nil
	}
	agentCtx.SetMetadata("llmDurationMs", output.LLMDurationMs)
	agentCtx.SetMetadata("toolDurationMs", output.ToolDurationMs)

	outputOutcome := o.output.Run(reqCtx, output.Text)
	if outputOutcome.Rejected {
		o.emitGuard(agentCtx, outputOutcome.Stage, string(outputOutcome.Category), outputOutcome.Reason, true, "rejected")
		return o.finalizeStage(ctx, agentCtx, start, coreerrors.GuardRejected, outputOutcome.Stage), nil
	}
	if outputOutcome.FinalContent != output.Text {
		o.emitGuard(agentCtx, "", "", "", true, "modified")
	}

	if output.TokenUsage != nil {
		o.emitTokenUsage(agentCtx, *output.TokenUsage)
	}

	result := o.finalize(ctx, agentCtx, start, true, "", "")
	result.Text = outputOutcome.FinalContent
	return result, nil
}

// InvokeTool wraps one tool invocation with BeforeToolCall/AfterToolCall
// hooks (§5 tool-call parallelism: the agent core calls this once per
// concurrent branch, each with its own ToolCallContext).
func (o *Orchestrator) InvokeTool(ctx context.Context, toolCtx *hook.ToolCallContext, call func(ctx context.Context, params map[string]any) (any, error)) (any, error) {
	beforeResult, err := o.hooks.RunBeforeToolCall(ctx, toolCtx)
	if err != nil {
		return nil, err
	}
	switch beforeResult.Kind {
	case hook.ResultReject:
		_ = o.hooks.RunAfterToolCall(ctx, toolCtx, hook.ToolCallResult{Success: false, ErrorMessage: beforeResult.Reason})
		return nil, coreerrors.NewStage(coreerrors.HookRejected, beforeResult.Reason, "before-tool-call")
	case hook.ResultModify:
		if beforeResult.ModifiedParams != nil {
			toolCtx.ToolParams = beforeResult.ModifiedParams
		}
	}

	toolCtx.AgentContext.AddToolUsed(toolCtx.ToolName)

	callStart := time.Now()
	out, callErr := call(ctx, toolCtx.ToolParams)
	result := hook.ToolCallResult{Success: callErr == nil, DurationMs: time.Since(callStart).Milliseconds()}
	if callErr != nil {
		result.ErrorMessage = callErr.Error()
	}

	if err := o.hooks.RunAfterToolCall(ctx, toolCtx, result); err != nil {
		return out, err
	}
	return out, callErr
}

func (o *Orchestrator) callWithRetry(ctx context.Context, agentCtx *hook.Context, text string) (AgentOutput, error) {
	attempts := o.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := o.retryInitial

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return AgentOutput{}, err
		}

		output, err := o.core.Execute(ctx, agentCtx, text)
		if err == nil {
			return output, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return AgentOutput{}, ctx.Err()
		}
		if attempt == attempts-1 || !o.retryable(err) {
			return AgentOutput{}, lastErr
		}

		select {
		case <-ctx.Done():
			return AgentOutput{}, ctx.Err()
		case <-time.After(jitter(delay)):
		}

		delay = time.Duration(float64(delay) * o.retryMult)
		if o.retryMaxDelay > 0 && delay > o.retryMaxDelay {
			delay = o.retryMaxDelay
		}
	}
	return AgentOutput{}, lastErr
}

func (o *Orchestrator) retryable(err error) bool {
	httpStatus := 0
	if hs, ok := err.(httpStatusError); ok {
		httpStatus = hs.HTTPStatus()
	}
	return llmerr.Retryable(err.Error(), httpStatus)
}

// jitter applies ±25% jitter to d (§5 retry policy).
func jitter(d time.Duration) time.Duration {
	factor := 1 + (rand.Float64()*2-1)*0.25
	return time.Duration(float64(d) * factor)
}

func classifyAgentError(err error) coreerrors.Code {
	switch llmerr.Classify(err.Error()) {
	case llmerr.ClassTimeout:
		return coreerrors.Timeout
	default:
		return coreerrors.Unknown
	}
}

// finalize always runs AfterComplete hooks, even past the request
// deadline — it derives a grace-window context from parent that keeps
// parent's values but not its cancellation (§5: "AfterAgentComplete
// still runs in a finally block with a short grace window").
func (o *Orchestrator) finalize(parent context.Context, agentCtx *hook.Context, start time.Time, success bool, errCode coreerrors.Code, stage string) Result {
	graceCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), afterCompleteGrace)
	defer cancel()

	if errCode != "" {
		agentCtx.SetMetadata("errorCode", string(errCode))
	}
	response := hook.AgentResponse{
		Success:    success,
		DurationMs: time.Since(start).Milliseconds(),
		ErrorCode:  string(errCode),
	}
	_ = o.hooks.RunAfterAgentComplete(graceCtx, agentCtx, response)

	return Result{Success: success, ErrorCode: errCode, Stage: stage}
}

func (o *Orchestrator) finalizeStage(parent context.Context, agentCtx *hook.Context, start time.Time, errCode coreerrors.Code, stage string) Result {
	return o.finalize(parent, agentCtx, start, false, errCode, stage)
}

func (o *Orchestrator) emitGuard(agentCtx *hook.Context, stage, category, reasonDetail string, isOutput bool, action string) {
	event := metricevent.GuardEvent{
		Meta: metricevent.Meta{
			EventID:   uuid.NewString(),
			TenantID:  agentCtx.MetadataString("tenantId"),
			Timestamp: time.Now(),
		},
		Stage:         stage,
		Category:      category,
		ReasonDetail:  metricevent.Truncate(reasonDetail),
		IsOutputGuard: isOutput,
		Action:        action,
	}
	o.buffer.Publish(event)
}

func (o *Orchestrator) emitTokenUsage(agentCtx *hook.Context, usage TokenUsage) {
	event := metricevent.TokenUsageEvent{
		Meta: metricevent.Meta{
			EventID:   uuid.NewString(),
			TenantID:  agentCtx.MetadataString("tenantId"),
			Timestamp: time.Now(),
		},
		RunID:            agentCtx.RunID,
		Model:            usage.Model,
		Provider:         usage.Provider,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.PromptTokens + usage.CompletionTokens,
	}
	o.buffer.Publish(event)
}
