package outputstages

import (
	"context"
	"regexp"

	"github.com/agentcore/guardcore/pkg/guard"
)

// StaticRegexOrder is the fixed output-pipeline position for this stage.
const StaticRegexOrder = 3

// StaticPattern is one fixed, operator-configured output-blocking rule —
// distinct from the dynamic, store-backed rules.Rule set in that it's
// baked into deployment config rather than editable at runtime.
type StaticPattern struct {
	Name    string
	Regex   *regexp.Regexp
	Message string
}

// StaticRegex rejects responses matching any configured fixed pattern
// (§4.5). Useful for compliance-mandated blocks that must not depend on
// the dynamic rule store being reachable.
type StaticRegex struct {
	patterns []StaticPattern
}

// NewStaticRegex builds the stage from a fixed pattern list.
func NewStaticRegex(patterns []StaticPattern) *StaticRegex {
	return &StaticRegex{patterns: patterns}
}

func (s *StaticRegex) Name() string  { return "static-regex" }
func (s *StaticRegex) Order() int    { return StaticRegexOrder }
func (s *StaticRegex) Enabled() bool { return len(s.patterns) > 0 }

func (s *StaticRegex) Check(_ context.Context, content string) guard.OutputResult {
	for _, p := range s.patterns {
		if p.Regex.MatchString(content) {
			message := p.Message
			if message == "" {
				message = "matched static output pattern: " + p.Name
			}
			return guard.OutputRejectedResult(message, guard.CategoryOffTopic)
		}
	}
	return guard.OutputAllowedResult()
}
