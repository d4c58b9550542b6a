// Package health tracks the liveness of the ring-buffer-to-store pipeline:
// how much has been written, how much dropped, how often writes fail, and
// how full the buffer currently runs. It exists so the admin health
// endpoint (§6.2) can answer "is the metrics pipeline keeping up" without
// inspecting the buffer or writer directly.
package health

import (
	"math"
	"sync/atomic"
)

// Snapshot is a consistent point-in-time copy of the monitor's counters.
type Snapshot struct {
	WrittenTotal       int64
	DroppedTotal       int64
	WriteErrorsTotal   int64
	WriteLatencyMs     int64
	BufferUsagePercent float64
}

// Monitor holds atomic counters for the writer and buffer. All methods are
// safe for concurrent use; Snapshot is a best-effort consistent read, not
// a transactional one (individual fields may reflect slightly different
// instants under concurrent updates).
type Monitor struct {
	writtenTotal       atomic.Int64
	droppedTotal       atomic.Int64
	writeErrorsTotal   atomic.Int64
	writeLatencyMs     atomic.Int64
	bufferUsagePercent atomic.Uint64 // math.Float64bits encoding
}

// New creates an empty Monitor.
func New() *Monitor {
	return &Monitor{}
}

// RecordWrite records a successful flush of count events taking latencyMs.
func (m *Monitor) RecordWrite(count int, latencyMs int64) {
	m.writtenTotal.Add(int64(count))
	m.writeLatencyMs.Store(latencyMs)
}

// RecordDrop records count events dropped by the ring buffer for overflow.
func (m *Monitor) RecordDrop(count int) {
	m.droppedTotal.Add(int64(count))
}

// RecordWriteError records one failed flush attempt (the batch is
// discarded by the caller; see pkg/writer).
func (m *Monitor) RecordWriteError() {
	m.writeErrorsTotal.Add(1)
}

// UpdateBufferUsage sets the current buffer usage percentage gauge.
func (m *Monitor) UpdateBufferUsage(pct float64) {
	m.bufferUsagePercent.Store(math.Float64bits(pct))
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Monitor) Snapshot() Snapshot {
	return Snapshot{
		WrittenTotal:       m.writtenTotal.Load(),
		DroppedTotal:       m.droppedTotal.Load(),
		WriteErrorsTotal:   m.writeErrorsTotal.Load(),
		WriteLatencyMs:     m.writeLatencyMs.Load(),
		BufferUsagePercent: math.Float64frombits(m.bufferUsagePercent.Load()),
	}
}
