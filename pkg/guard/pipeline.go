package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Stage is one link in a guard Pipeline (§4.5). ctx carries the request's
// deadline/cancellation through to stages that call out to an LLM or a
// store (classification, dynamic rule evaluation).
type Stage interface {
	Name() string
	Order() int
	Enabled() bool
	Check(ctx context.Context, cmd Command) Result
}

// StageAudit is one record of a single stage's invocation, handed to an
// optional audit sink after every Check call.
type StageAudit struct {
	Stage     string
	Result    Result
	LatencyMs int64
}

// AuditSink receives one StageAudit per stage invocation. Implementations
// must not block the pipeline for long; Record is called synchronously.
type AuditSink interface {
	Record(audit StageAudit)
}

// Pipeline runs an ordered, enabled-filtered chain of Stages over a
// Command, short-circuiting on the first Rejected result (§4.5).
type Pipeline struct {
	stages []Stage
	audit  AuditSink
}

// NewPipeline filters disabled stages and sorts the remainder by Order
// once, at construction — the per-request hot path never re-sorts.
func NewPipeline(stages []Stage, audit AuditSink) *Pipeline {
	enabled := make([]Stage, 0, len(stages))
	for _, s := range stages {
		if s.Enabled() {
			enabled = append(enabled, s)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Order() < enabled[j].Order() })
	return &Pipeline{stages: enabled, audit: audit}
}

// Outcome is the result of running the full pipeline: the final verdict
// plus the (possibly stage-normalized) text and total elapsed time.
type Outcome struct {
	Result    Result
	FinalText string
	TotalMs   int64
}

// Run executes every stage in order. A stage's Allowed hint of the form
// "normalized:<text>" replaces the command text seen by subsequent
// stages. A stage that panics is treated as a Rejected{SYSTEM_ERROR}
// (fail-close) rather than crashing the request.
func (p *Pipeline) Run(ctx context.Context, cmd Command) Outcome {
	start := time.Now()
	current := cmd

	for _, stage := range p.stages {
		result, latencyMs := p.runStage(ctx, stage, current)

		if p.audit != nil {
			p.audit.Record(StageAudit{Stage: stage.Name(), Result: result, LatencyMs: latencyMs})
		}

		if result.Kind == ResultRejected {
			if result.Stage == "" {
				result.Stage = stage.Name()
			}
			return Outcome{Result: result, FinalText: current.Text, TotalMs: time.Since(start).Milliseconds()}
		}

		if text, ok := result.NormalizedText(); ok {
			current = current.WithText(text)
		}
	}

	return Outcome{Result: Allowed(), FinalText: current.Text, TotalMs: time.Since(start).Milliseconds()}
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, cmd Command) (result Result, latencyMs int64) {
	stageStart := time.Now()
	defer func() {
		latencyMs = time.Since(stageStart).Milliseconds()
		if r := recover(); r != nil {
			slog.Error("guard stage panicked", "stage", stage.Name(), "panic", r)
			result = Result{Kind: ResultRejected, Reason: fmt.Sprintf("stage panic: %v", r), Category: CategorySystemError, Stage: stage.Name()}
		}
	}()
	if err := ctx.Err(); err != nil {
		return Result{Kind: ResultRejected, Reason: err.Error(), Category: CategorySystemError}, 0
	}
	result = stage.Check(ctx, cmd)
	return result, latencyMs
}
