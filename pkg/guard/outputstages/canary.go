package outputstages

import (
	"context"
	"strings"
	"sync"

	"github.com/agentcore/guardcore/pkg/guard"
)

// CanaryTokenOrder is the fixed output-pipeline position for this stage.
const CanaryTokenOrder = 1

// CanaryTokenDetection rejects a response that echoes back a canary
// token previously planted in a system prompt or tool result — a strong
// signal that the model leaked context it should have kept confidential
// (§4.5 output guard).
type CanaryTokenDetection struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewCanaryTokenDetection builds the stage with an initially empty token
// set; tokens are registered per-run via Plant as they are minted.
func NewCanaryTokenDetection() *CanaryTokenDetection {
	return &CanaryTokenDetection{tokens: make(map[string]struct{})}
}

// Plant registers a canary token so a later Check call can detect its
// leakage. Safe for concurrent use.
func (s *CanaryTokenDetection) Plant(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
}

// Forget removes a token once its run has completed, bounding the set's
// size to in-flight requests rather than growing unboundedly.
func (s *CanaryTokenDetection) Forget(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func (s *CanaryTokenDetection) Name() string  { return "canary-token-detection" }
func (s *CanaryTokenDetection) Order() int    { return CanaryTokenOrder }
func (s *CanaryTokenDetection) Enabled() bool { return true }

func (s *CanaryTokenDetection) Check(_ context.Context, content string) guard.OutputResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for token := range s.tokens {
		if strings.Contains(content, token) {
			return guard.OutputRejectedResult("response leaked a planted canary token", guard.CategorySystemError)
		}
	}
	return guard.OutputAllowedResult()
}
