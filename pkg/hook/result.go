package hook

// ResultKind discriminates the HookResult union (§3).
type ResultKind string

const (
	ResultContinue         ResultKind = "continue"
	ResultReject           ResultKind = "reject"
	ResultModify           ResultKind = "modify"
	ResultPendingApproval  ResultKind = "pending_approval"
)

// Result is returned by BeforeAgentStart and BeforeToolCall handlers. The
// zero value is Continue.
type Result struct {
	Kind ResultKind

	// Reject
	Reason string

	// Modify
	ModifiedPrompt   string
	ModifiedMetadata map[string]any
	ModifiedParams   map[string]any

	// PendingApproval
	ApprovalID string
	Message    string
}

// Continue lets the pipeline proceed unmodified.
func Continue() Result { return Result{Kind: ResultContinue} }

// Reject stops the request with reason.
func Reject(reason string) Result { return Result{Kind: ResultReject, Reason: reason} }

// ModifyPrompt replaces the agent-level userPrompt/metadata.
func ModifyPrompt(prompt string, metadata map[string]any) Result {
	return Result{Kind: ResultModify, ModifiedPrompt: prompt, ModifiedMetadata: metadata}
}

// ModifyParams replaces a tool call's parameters.
func ModifyParams(params map[string]any) Result {
	return Result{Kind: ResultModify, ModifiedParams: params}
}

// PendingApproval parks the request pending out-of-band approval.
func PendingApproval(approvalID, message string) Result {
	return Result{Kind: ResultPendingApproval, ApprovalID: approvalID, Message: message}
}

// IsContinue reports whether this result lets the pipeline proceed.
func (r Result) IsContinue() bool { return r.Kind == ResultContinue }
