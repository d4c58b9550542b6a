package outputstages

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/agentcore/guardcore/pkg/guard"
	"github.com/agentcore/guardcore/pkg/rules"
)

// RuleEvaluationOrder is the fixed output-pipeline position for this stage.
const RuleEvaluationOrder = 2

// RuleEvaluation evaluates the dynamic, operator-editable rule set
// (§4.9) against response content. Rules with a "block" action reject
// the response; rules with a "flag" action are logged but do not block.
// Compiled regexes are cached per rule ID so a hot cache.Rules() call
// doesn't recompile on every response.
type RuleEvaluation struct {
	cache *rules.Cache

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// NewRuleEvaluation builds the stage over a shared rules.Cache.
func NewRuleEvaluation(cache *rules.Cache) *RuleEvaluation {
	return &RuleEvaluation{cache: cache, compiled: make(map[string]*regexp.Regexp)}
}

func (s *RuleEvaluation) Name() string  { return "rule-evaluation" }
func (s *RuleEvaluation) Order() int    { return RuleEvaluationOrder }
func (s *RuleEvaluation) Enabled() bool { return s.cache != nil }

func (s *RuleEvaluation) Check(ctx context.Context, content string) guard.OutputResult {
	ruleSet, err := s.cache.Rules(ctx)
	if err != nil {
		slog.Warn("rule store unavailable, failing open", "error", err)
		return guard.OutputAllowedResult()
	}

	for _, r := range ruleSet {
		re, ok := s.compiledFor(r)
		if !ok {
			continue
		}
		if !re.MatchString(content) {
			continue
		}
		switch strings.ToLower(r.Action) {
		case "block":
			return guard.OutputRejectedResult("matched dynamic rule: "+r.Name, guard.CategoryOffTopic)
		default:
			slog.Info("output matched a non-blocking dynamic rule", "rule", r.Name, "action", r.Action)
		}
	}

	return guard.OutputAllowedResult()
}

// compiledFor caches a compiled regex keyed by ID+pattern, so editing a
// rule's pattern (same ID, new text) recompiles instead of reusing a
// stale regex.
func (s *RuleEvaluation) compiledFor(r rules.Rule) (*regexp.Regexp, bool) {
	key := r.ID + "\x00" + r.Pattern

	s.mu.Lock()
	defer s.mu.Unlock()

	if re, ok := s.compiled[key]; ok {
		return re, true
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		slog.Error("dynamic rule has invalid pattern, skipping", "rule", r.Name, "error", err)
		return nil, false
	}
	s.compiled[key] = re
	return re, true
}
