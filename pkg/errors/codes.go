// Package errors defines the fixed error-code taxonomy shared across the
// guard pipeline, hook framework, quota enforcer, and orchestrator (§7),
// plus the pluggable user-message resolver that turns a code and an
// original message into localized, user-facing text.
package errors

// Code is one of the fixed, closed set of error codes surfaced to callers
// of the orchestrator.
type Code string

const (
	RateLimited        Code = "RATE_LIMITED"
	Timeout            Code = "TIMEOUT"
	ContextTooLong     Code = "CONTEXT_TOO_LONG"
	ToolError          Code = "TOOL_ERROR"
	GuardRejected      Code = "GUARD_REJECTED"
	HookRejected       Code = "HOOK_REJECTED"
	QuotaExceeded      Code = "QUOTA_EXCEEDED"
	CircuitBreakerOpen Code = "CIRCUIT_BREAKER_OPEN"
	Unknown            Code = "UNKNOWN"
)

// CoreError wraps a Code with the originating detail, and optionally the
// guard/hook name responsible for the rejection.
type CoreError struct {
	Code            Code
	OriginalMessage string
	Stage           string // set for GUARD_REJECTED
}

func (e *CoreError) Error() string {
	if e.Stage != "" {
		return string(e.Code) + " at " + e.Stage + ": " + e.OriginalMessage
	}
	if e.OriginalMessage != "" {
		return string(e.Code) + ": " + e.OriginalMessage
	}
	return string(e.Code)
}

// New constructs a CoreError.
func New(code Code, originalMessage string) *CoreError {
	return &CoreError{Code: code, OriginalMessage: originalMessage}
}

// NewStage constructs a CoreError carrying the stage/hook name
// responsible for a rejection (GUARD_REJECTED, HOOK_REJECTED).
func NewStage(code Code, originalMessage, stage string) *CoreError {
	return &CoreError{Code: code, OriginalMessage: originalMessage, Stage: stage}
}
