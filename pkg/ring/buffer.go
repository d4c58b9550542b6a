// Package ring implements the lock-free multi-producer multi-consumer
// metric event queue described in §4.1. Producers on the agent hot path
// never block: a full buffer drops the event and increments a counter
// instead. A single background writer goroutine (or several, coordinated
// by their own mutex — see pkg/writer) drains the buffer on a schedule.
//
// A bounded Go channel would get most of the way there, but channels block
// (or, with a non-blocking select on a full channel, drop without telling
// you who lost the race to claim the last slot) — this buffer needs
// precise sequence-numbered slots so concurrent producers interleave
// correctly and consumers can drain in bulk. Hence a hand-rolled CAS ring
// rather than `chan metricevent.MetricEvent`.
package ring

import (
	"sync/atomic"

	"github.com/agentcore/guardcore/pkg/metricevent"
)

// minCapacity is the floor enforced by New regardless of the requested
// capacity (§3, §8 boundary behavior: requested < 64 rounds up to 64).
const minCapacity = 64

// Buffer is a bounded, lock-free MPMC ring buffer of metric events.
//
// Concurrency protocol (§4.1): three atomic cursors — writeCursor,
// readyCursor, readCursor — all starting at zero.
//
//   - A producer claims slot w by CAS-advancing writeCursor from w to w+1,
//     but only while w-readCursor < capacity. Losing that CAS means another
//     producer claimed the slot first; the producer retries with the new w.
//     Running out of room (the guard condition fails) means the buffer is
//     full: return false, bump dropped.
//   - Having claimed a slot, the producer stores its event there, then
//     spins a CAS loop advancing readyCursor from w to w+1 — spinning
//     (not just setting it) because another producer that claimed a later
//     slot may publish first; readyCursor must not skip ahead of a slot
//     whose event hasn't been written yet.
//   - A consumer reads readyCursor once, then drains
//     [readCursor, min(ready, readCursor+n)) in order, nulling each slot
//     it takes (so the drained event's memory can be reclaimed), then
//     advances readCursor.
type Buffer struct {
	mask     int64
	slots    []slot
	writeCur atomic.Int64
	readyCur atomic.Int64
	readCur  atomic.Int64
	dropped  atomic.Int64
	capacity int
}

type slot struct {
	event atomic.Pointer[metricevent.MetricEvent]
}

// New creates a Buffer whose actual capacity is the largest power of two
// less than or equal to requested, with a floor of 64 (requested 100 →
// actual 64; requested 128 → actual 128; requested < 64 → actual 64).
func New(requestedCapacity int) *Buffer {
	capacity := floorPowerOfTwo(requestedCapacity)
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &Buffer{
		mask:     int64(capacity - 1),
		slots:    make([]slot, capacity),
		capacity: capacity,
	}
}

func floorPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p<<1 <= n {
		p <<= 1
	}
	return p
}

// Capacity returns the fixed buffer capacity (§4.1: "fixed after
// construction").
func (b *Buffer) Capacity() int { return b.capacity }

// Publish attempts to enqueue event. It never blocks: on overflow it
// returns false and increments DroppedCount. On success it returns true
// once the event is visible to consumers.
func (b *Buffer) Publish(event metricevent.MetricEvent) bool {
	for {
		w := b.writeCur.Load()
		r := b.readCur.Load()
		if w-r >= int64(b.capacity) {
			b.dropped.Add(1)
			return false
		}
		if b.writeCur.CompareAndSwap(w, w+1) {
			idx := w & b.mask
			b.slots[idx].event.Store(&event)
			// Publish readiness in issuance order: spin until readyCursor
			// reaches w, then advance it to w+1. This ensures a producer
			// that claimed a later slot never makes its event visible
			// before an earlier slot's producer has finished storing.
			for !b.readyCur.CompareAndSwap(w, w+1) {
				// another producer is still between claim and ready-advance
				// for an earlier slot; spin until it catches up.
			}
			return true
		}
		// Lost the CAS race for this slot; retry with the updated cursor.
	}
}

// Drain removes and returns up to maxBatch events in publication order.
// Returns an empty (non-nil) slice when the buffer has nothing ready.
// Only the writer should call Drain — concurrent Drain calls are safe but
// each event is still only ever returned to one caller, since readCursor
// advances atomically.
func (b *Buffer) Drain(maxBatch int) []metricevent.MetricEvent {
	if maxBatch <= 0 {
		return []metricevent.MetricEvent{}
	}

	for {
		start := b.readCur.Load()
		ready := b.readyCur.Load()
		end := ready
		if end-start > int64(maxBatch) {
			end = start + int64(maxBatch)
		}
		if end <= start {
			return []metricevent.MetricEvent{}
		}

		n := int(end - start)
		batch := make([]metricevent.MetricEvent, 0, n)
		for i := start; i < end; i++ {
			idx := i & b.mask
			ptr := b.slots[idx].event.Swap(nil)
			if ptr != nil {
				batch = append(batch, *ptr)
			}
		}

		if b.readCur.CompareAndSwap(start, end) {
			return batch
		}
		// Another consumer raced us (shouldn't happen with a single
		// writer goroutine per buffer, but stay correct if ever used with
		// multiple drainers): retry from the new readCursor.
	}
}

// Size returns an approximate count of events currently buffered. Callers
// must not treat this as authoritative under concurrent activity (§4.1).
func (b *Buffer) Size() int {
	size := b.readyCur.Load() - b.readCur.Load()
	if size < 0 {
		return 0
	}
	return int(size)
}

// UsagePercent returns a best-effort snapshot of size/capacity*100.
func (b *Buffer) UsagePercent() float64 {
	return float64(b.Size()) / float64(b.capacity) * 100
}

// DroppedCount returns the cumulative number of publishes rejected for
// overflow since construction.
func (b *Buffer) DroppedCount() int64 {
	return b.dropped.Load()
}
