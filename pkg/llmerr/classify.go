// Package llmerr classifies free-text error messages from tools and LLM
// providers into a small set of keyword-derived buckets. It's shared by
// the metric emitter (ToolCallEvent.errorClass, §4.8), the guard
// pipeline's SYSTEM_ERROR path, and the orchestrator's retry policy,
// which all need the same "what kind of failure was this" judgment call
// from nothing but an error string.
package llmerr

import "strings"

// Class is one of the fixed error classes used for ToolCallEvent and
// McpHealthEvent (§3).
type Class string

const (
	ClassTimeout          Class = "timeout"
	ClassConnectionError  Class = "connection_error"
	ClassPermissionDenied Class = "permission_denied"
	ClassNotFound         Class = "not_found"
	ClassUnknown          Class = "unknown"
)

type rule struct {
	class    Class
	keywords []string
}

// Ordered so the first matching rule wins; more specific buckets are
// checked before generic ones.
var rules = []rule{
	{ClassTimeout, []string{"timeout", "timed out", "deadline exceeded", "context deadline"}},
	{ClassPermissionDenied, []string{"permission denied", "forbidden", "unauthorized", "access denied", "401", "403"}},
	{ClassNotFound, []string{"not found", "404", "no such"}},
	{ClassConnectionError, []string{"connection refused", "connection reset", "no route to host", "econnrefused", "broken pipe", "eof", "network is unreachable"}},
}

// Classify inspects message for known failure keywords and returns the
// matching Class, or ClassUnknown if nothing matches.
func Classify(message string) Class {
	lower := strings.ToLower(message)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.class
			}
		}
	}
	return ClassUnknown
}

// Retryable returns (httpStatus or keyword)-based decisions on whether a
// provider error should be retried: HTTP 429/5xx or a timeout keyword.
func Retryable(message string, httpStatus int) bool {
	if httpStatus == 429 || httpStatus >= 500 {
		return true
	}
	class := Classify(message)
	return class == ClassTimeout || class == ClassConnectionError
}
