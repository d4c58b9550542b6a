// Package outputstages holds the built-in output-guard stages that run
// once over a completed LLM response before it is delivered (§4.5).
package outputstages

import (
	"context"

	"github.com/agentcore/guardcore/pkg/guard"
	"github.com/agentcore/guardcore/pkg/masking"
)

// PIIMaskingOrder is the fixed output-pipeline position for this stage.
const PIIMaskingOrder = 0

// PIIMasking redacts secrets and personal data from response content
// using the shared masking.Service (§4.5 output guard).
type PIIMasking struct {
	service *masking.Service
	groups  []string
}

// NewPIIMasking builds the stage, masking with the given pattern groups
// (defaulting to "security" when none are supplied).
func NewPIIMasking(service *masking.Service, groups ...string) *PIIMasking {
	return &PIIMasking{service: service, groups: groups}
}

func (s *PIIMasking) Name() string  { return "pii-masking" }
func (s *PIIMasking) Order() int    { return PIIMaskingOrder }
func (s *PIIMasking) Enabled() bool { return s.service != nil }

func (s *PIIMasking) Check(_ context.Context, content string) guard.OutputResult {
	masked := s.service.Mask(content, s.groups...)
	if masked == content {
		return guard.OutputAllowedResult()
	}
	return guard.OutputModifiedResult(masked, "response contained maskable secrets or PII")
}
