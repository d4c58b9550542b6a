// Package guard implements the input and output guard pipelines (§4.5):
// an ordered chain of stages that either allow, modify, or reject a
// request, with fail-close semantics — a stage that panics or errors
// rejects the request rather than silently letting it through.
package guard

// ConversationTurn is one entry in a GuardCommand's conversation history.
type ConversationTurn struct {
	Role    string
	Content string
}

// Command is the input to the guard pipeline (§3 GuardCommand).
type Command struct {
	UserID   string
	Text     string
	Channel  string
	Metadata map[string]any
}

// TenantID reads the tenantId carried in Metadata, defaulting to "".
func (c Command) TenantID() string {
	return stringMeta(c.Metadata, "tenantId")
}

// SessionID reads the sessionId carried in Metadata.
func (c Command) SessionID() string {
	return stringMeta(c.Metadata, "sessionId")
}

// PromptTemplateID reads the promptTemplateId carried in Metadata.
func (c Command) PromptTemplateID() string {
	return stringMeta(c.Metadata, "promptTemplateId")
}

// ConversationHistory reads the conversationHistory carried in Metadata,
// if present and of the expected shape.
func (c Command) ConversationHistory() []ConversationTurn {
	v, ok := c.Metadata["conversationHistory"]
	if !ok {
		return nil
	}
	turns, _ := v.([]ConversationTurn)
	return turns
}

// WithText returns a copy of c with Text replaced — used when a stage's
// Allowed hint carries a "normalized:<text>" replacement (§4.5).
func (c Command) WithText(text string) Command {
	c.Text = text
	return c
}

// NormalizeUserID defaults an empty UserID to "anonymous" (§3).
func (c Command) NormalizeUserID() string {
	if c.UserID == "" {
		return "anonymous"
	}
	return c.UserID
}

func stringMeta(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Category enumerates GuardResult.Rejected categories (§3).
type Category string

const (
	CategoryRateLimited     Category = "RATE_LIMITED"
	CategoryInvalidInput    Category = "INVALID_INPUT"
	CategoryPromptInjection Category = "PROMPT_INJECTION"
	CategoryOffTopic        Category = "OFF_TOPIC"
	CategoryUnauthorized    Category = "UNAUTHORIZED"
	CategorySystemError     Category = "SYSTEM_ERROR"
)

// ResultKind discriminates the GuardResult union.
type ResultKind string

const (
	ResultAllowed  ResultKind = "allowed"
	ResultRejected ResultKind = "rejected"
)

// Result is the tagged union returned by each guard stage and by the
// pipeline as a whole (§3 GuardResult).
type Result struct {
	Kind ResultKind

	// Allowed
	Hints []string

	// Rejected
	Reason   string
	Category Category
	Stage    string
}

// Allowed constructs an Allowed result, optionally carrying hints.
func Allowed(hints ...string) Result {
	return Result{Kind: ResultAllowed, Hints: hints}
}

// Rejected constructs a Rejected result. Stage is filled in by the
// pipeline if left empty.
func Rejected(reason string, category Category) Result {
	return Result{Kind: ResultRejected, Reason: reason, Category: category}
}

// NormalizedText extracts the replacement text from a "normalized:<text>"
// hint, if present.
func (r Result) NormalizedText() (string, bool) {
	const prefix = "normalized:"
	for _, h := range r.Hints {
		if len(h) >= len(prefix) && h[:len(prefix)] == prefix {
			return h[len(prefix):], true
		}
	}
	return "", false
}
