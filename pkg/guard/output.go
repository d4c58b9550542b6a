package guard

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// OutputResultKind discriminates an output stage's verdict. Unlike the
// input pipeline, an output stage may also modify content in place
// (e.g. PII masking) without rejecting the response outright.
type OutputResultKind string

const (
	OutputAllowed  OutputResultKind = "allowed"
	OutputModified OutputResultKind = "modified"
	OutputRejected OutputResultKind = "rejected"
)

// OutputResult is what an output-guard stage returns after inspecting
// the (possibly already-modified) response content.
type OutputResult struct {
	Kind     OutputResultKind
	Content  string // set when Kind == OutputModified
	Reason   string
	Category Category
	Stage    string
}

// OutputAllowedResult signals the stage found nothing to change.
func OutputAllowedResult() OutputResult { return OutputResult{Kind: OutputAllowed} }

// OutputModifiedResult signals the stage rewrote the content.
func OutputModifiedResult(content, reason string) OutputResult {
	return OutputResult{Kind: OutputModified, Content: content, Reason: reason}
}

// OutputRejectedResult signals the response must not be delivered at all.
func OutputRejectedResult(reason string, category Category) OutputResult {
	return OutputResult{Kind: OutputRejected, Reason: reason, Category: category}
}

// OutputStage is one link in the output guard pipeline. Each stage sees
// the prior stage's (possibly modified) content.
type OutputStage interface {
	Name() string
	Order() int
	Enabled() bool
	Check(ctx context.Context, content string) OutputResult
}

// OutputPipeline runs an ordered chain of OutputStages over an LLM
// response's collected content, once after generation completes — guard
// stages never run mid-stream (§4.5). The first Rejected wins; a
// Modified result's content is carried into the next stage.
type OutputPipeline struct {
	stages []OutputStage
}

// NewOutputPipeline filters disabled stages and sorts by Order once, at
// construction.
func NewOutputPipeline(stages []OutputStage) *OutputPipeline {
	enabled := make([]OutputStage, 0, len(stages))
	for _, s := range stages {
		if s.Enabled() {
			enabled = append(enabled, s)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Order() < enabled[j].Order() })
	return &OutputPipeline{stages: enabled}
}

// OutputOutcome is the result of running the full output pipeline.
type OutputOutcome struct {
	Rejected     bool
	Reason       string
	Category     Category
	Stage        string
	FinalContent string
	TotalMs      int64
}

// Run executes every output stage in order against content.
func (p *OutputPipeline) Run(ctx context.Context, content string) OutputOutcome {
	start := time.Now()
	current := content

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return OutputOutcome{Rejected: true, Reason: err.Error(), Category: CategorySystemError, Stage: stage.Name(), FinalContent: current, TotalMs: time.Since(start).Milliseconds()}
		}

		result := p.runStage(ctx, stage, current)

		switch result.Kind {
		case OutputRejected:
			return OutputOutcome{
				Rejected:     true,
				Reason:       result.Reason,
				Category:     result.Category,
				Stage:        stage.Name(),
				FinalContent: current,
				TotalMs:      time.Since(start).Milliseconds(),
			}
		case OutputModified:
			current = result.Content
		}
	}

	return OutputOutcome{FinalContent: current, TotalMs: time.Since(start).Milliseconds()}
}

func (p *OutputPipeline) runStage(ctx context.Context, stage OutputStage, content string) (result OutputResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("output guard stage panicked", "stage", stage.Name(), "panic", r)
			result = OutputRejectedResult("stage panic", CategorySystemError)
		}
	}()
	return stage.Check(ctx, content)
}
