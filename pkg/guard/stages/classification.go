package stages

import (
	"context"
	"log/slog"
	"strings"

	"github.com/agentcore/guardcore/pkg/guard"
)

// ClassificationOrder is the fixed pipeline position for this stage
// (§4.5). It is opt-in via config.GuardConfig.EnableClassification.
const ClassificationOrder = 4

// Classifier is an LLM-backed off-topic/intent classifier. Implementations
// call out to a model; a timeout or error is treated as fail-open, since
// classification is advisory rather than a hard security boundary.
type Classifier interface {
	Classify(ctx context.Context, text string) (category string, blocked bool, err error)
}

// Classification runs a rule-based keyword blocklist (always enforced)
// and, if a Classifier is configured, an LLM-based classification pass
// that fails open on error (§4.5).
type Classification struct {
	blockedKeywords []string
	classifier      Classifier
}

// NewClassification builds the stage. classifier may be nil, in which
// case only the rule-based keyword check runs.
func NewClassification(blockedKeywords []string, classifier Classifier) *Classification {
	lowered := make([]string, len(blockedKeywords))
	for i, k := range blockedKeywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Classification{blockedKeywords: lowered, classifier: classifier}
}

func (s *Classification) Name() string  { return "classification" }
func (s *Classification) Order() int    { return ClassificationOrder }
func (s *Classification) Enabled() bool { return true }

func (s *Classification) Check(ctx context.Context, cmd guard.Command) guard.Result {
	lower := strings.ToLower(cmd.Text)
	for _, kw := range s.blockedKeywords {
		if strings.Contains(lower, kw) {
			return guard.Rejected("blocked by keyword classification rule", guard.CategoryOffTopic)
		}
	}

	if s.classifier == nil {
		return guard.Allowed()
	}

	category, blocked, err := s.classifier.Classify(ctx, cmd.Text)
	if err != nil {
		slog.Warn("llm classification failed, failing open", "error", err)
		return guard.Allowed()
	}
	if blocked {
		return guard.Rejected("blocked by classification: "+category, guard.CategoryOffTopic)
	}
	return guard.Allowed()
}
