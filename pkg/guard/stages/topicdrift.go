package stages

import (
	"context"
	"strings"

	"github.com/agentcore/guardcore/pkg/config"
	"github.com/agentcore/guardcore/pkg/guard"
)

// TopicDriftOrder is the fixed pipeline position for this stage (§4.5).
// It is opt-in via config.GuardConfig.EnableTopicDrift.
const TopicDriftOrder = 6

const defaultTopicDriftThreshold = 0.7

// escalationMarkers are phrases that, appearing with increasing density
// across a conversation's recent turns, signal an attacker walking the
// model toward an unsafe topic one small step at a time rather than
// tripping the injection stage in a single message.
var escalationMarkers = []string{
	"just this once", "one more step", "hypothetically", "what if",
	"let's pretend", "purely theoretical", "for argument's sake",
	"next level", "take it further", "go further", "push the boundary",
}

// TopicDriftDetection scores escalation across the trailing conversation
// window and rejects once the score crosses a configured threshold
// (§4.5). It looks only at the conversation history carried in command
// metadata, not the current message in isolation, since drift is a
// property of a sequence of turns.
type TopicDriftDetection struct {
	threshold float64
	window    int
}

// NewTopicDriftDetection builds the stage from guard configuration.
func NewTopicDriftDetection(cfg config.GuardConfig) *TopicDriftDetection {
	threshold := cfg.TopicDriftThreshold
	if threshold <= 0 {
		threshold = defaultTopicDriftThreshold
	}
	return &TopicDriftDetection{threshold: threshold, window: 5}
}

func (s *TopicDriftDetection) Name() string  { return "topic-drift-detection" }
func (s *TopicDriftDetection) Order() int    { return TopicDriftOrder }
func (s *TopicDriftDetection) Enabled() bool { return true }

func (s *TopicDriftDetection) Check(_ context.Context, cmd guard.Command) guard.Result {
	history := cmd.ConversationHistory()
	turns := append(append([]guard.ConversationTurn{}, history...), guard.ConversationTurn{Role: "user", Content: cmd.Text})

	start := 0
	if len(turns) > s.window {
		start = len(turns) - s.window
	}
	recent := turns[start:]

	var hits int
	for _, turn := range recent {
		if turn.Role != "user" {
			continue
		}
		lower := strings.ToLower(turn.Content)
		for _, marker := range escalationMarkers {
			if strings.Contains(lower, marker) {
				hits++
				break
			}
		}
	}

	userTurns := 0
	for _, turn := range recent {
		if turn.Role == "user" {
			userTurns++
		}
	}
	if userTurns == 0 {
		return guard.Allowed()
	}

	score := float64(hits) / float64(userTurns)
	if score > s.threshold {
		return guard.Rejected("conversation shows escalating topic drift toward a restricted subject", guard.CategoryOffTopic)
	}
	return guard.Allowed()
}
