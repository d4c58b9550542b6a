// Package writer implements the batching metric writer (§4.3): it drains
// the ring buffer on a schedule, enriches TokenUsageEvents with a cost
// calculation, and persists the batch to the event store, updating the
// shared health monitor either way.
package writer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentcore/guardcore/pkg/health"
	"github.com/agentcore/guardcore/pkg/metricevent"
	"github.com/agentcore/guardcore/pkg/ring"
)

// EventStore persists a batch of metric events, all-or-nothing.
type EventStore interface {
	BatchInsert(ctx context.Context, events []metricevent.MetricEvent) error
}

// CostCalculator computes an estimated USD cost for one LLM call's token
// usage. Satisfied by *cost.Calculator.
type CostCalculator interface {
	Calculate(provider, model string, t time.Time, promptTokens, cachedTokens, completionTokens, reasoningTokens int64) metricevent.Decimal
}

// Writer drains the ring buffer on a timer, enriches, and persists
// batches. start() and stop() are both idempotent (§4.3, §8 invariant 6).
type Writer struct {
	buffer     *ring.Buffer
	store      EventStore
	calculator CostCalculator
	health     *health.Monitor

	batchSize     int
	flushInterval time.Duration

	flushMu sync.Mutex // §5: exactly one flush runs at a time

	started atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Writer over buffer, persisting via store, enriching via
// calculator, and reporting through monitor. batchSize is the max events
// drained per flush; flushInterval is the timer period.
func New(buffer *ring.Buffer, store EventStore, calculator CostCalculator, monitor *health.Monitor, batchSize int, flushInterval time.Duration) *Writer {
	return &Writer{
		buffer:        buffer,
		store:         store,
		calculator:    calculator,
		health:        monitor,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Start schedules the recurring flush. A second call is a no-op — only
// one flusher goroutine is ever scheduled, even under concurrent callers.
func (w *Writer) Start(ctx context.Context) {
	if w.started.Swap(true) {
		return
	}

	w.stopCh = make(chan struct{})
	ticker := time.NewTicker(w.flushInterval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.tickFlush(ctx)
			}
		}
	}()
}

// Stop cancels future flushes, waits for the flush loop to exit, then
// performs exactly one final synchronous flush. A second call is a no-op.
func (w *Writer) Stop(ctx context.Context) {
	if w.stopped.Swap(true) {
		return
	}
	if w.started.Load() {
		close(w.stopCh)
		w.wg.Wait()
	}

	w.flushMu.Lock()
	defer w.flushMu.Unlock()
	w.flush(ctx)
}

// tickFlush runs a scheduled flush, dropping the tick entirely if a flush
// (another tick, or the final stop-flush) is already in progress — it
// will be picked up by the next tick instead of queueing.
func (w *Writer) tickFlush(ctx context.Context) {
	if !w.flushMu.TryLock() {
		return
	}
	defer w.flushMu.Unlock()
	w.flush(ctx)
}

// flush runs one drain/enrich/persist cycle. Callers must hold flushMu.
func (w *Writer) flush(ctx context.Context) {
	events := w.buffer.Drain(w.batchSize)
	if len(events) == 0 {
		return
	}

	enriched := make([]metricevent.MetricEvent, len(events))
	for i, e := range events {
		enriched[i] = w.enrich(e)
	}

	start := time.Now()
	if err := w.store.BatchInsert(ctx, enriched); err != nil {
		w.health.RecordWriteError()
		slog.Error("metric batch insert failed, discarding batch", "count", len(enriched), "error", err)
		return
	}
	w.health.RecordWrite(len(enriched), time.Since(start).Milliseconds())
}

// enrich fills in EstimatedCostUsd on a TokenUsageEvent that arrived with
// a zero cost, leaving every other event variant untouched. A panicking
// calculator leaves the original event unmodified rather than losing the
// whole batch (§4.3 step 3).
func (w *Writer) enrich(event metricevent.MetricEvent) (result metricevent.MetricEvent) {
	result = event
	usage, ok := event.(metricevent.TokenUsageEvent)
	if !ok || !usage.EstimatedCostUsd.IsZero() {
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("cost calculator panicked, keeping original event", "panic", r)
			result = event
		}
	}()

	cost := w.calculator.Calculate(usage.Provider, usage.Model, usage.Timestamp, usage.PromptTokens, 0, usage.CompletionTokens, 0)
	if cost.IsZero() {
		return result
	}
	usage.EstimatedCostUsd = cost
	return usage
}
