package ring

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/guardcore/pkg/metricevent"
)

func TestNew_CapacityRounding(t *testing.T) {
	assert.Equal(t, 64, New(1).Capacity())
	assert.Equal(t, 64, New(63).Capacity())
	assert.Equal(t, 64, New(64).Capacity())
	assert.Equal(t, 64, New(100).Capacity())
	assert.Equal(t, 128, New(128).Capacity())
}

func agentEvent(runID string) metricevent.MetricEvent {
	return metricevent.AgentExecutionEvent{RunID: runID}
}

func TestBuffer_SaturationAndDrain(t *testing.T) {
	buf := New(64)
	require.Equal(t, 64, buf.Capacity())

	for i := 0; i < 64; i++ {
		ok := buf.Publish(agentEvent(fmt.Sprintf("r-%d", i)))
		require.True(t, ok, "publish %d should succeed", i)
	}

	ok := buf.Publish(agentEvent("r-64"))
	assert.False(t, ok, "65th publish into a full buffer must fail")
	assert.Equal(t, int64(1), buf.DroppedCount())

	drained := buf.Drain(1000)
	require.Len(t, drained, 64)
	for i, e := range drained {
		ae := e.(metricevent.AgentExecutionEvent)
		assert.Equal(t, fmt.Sprintf("r-%d", i), ae.RunID)
	}

	assert.Equal(t, 0, buf.Size())
	assert.Empty(t, buf.Drain(10))
}

func TestBuffer_PartialDrain(t *testing.T) {
	buf := New(64)
	for i := 0; i < 10; i++ {
		require.True(t, buf.Publish(agentEvent(fmt.Sprintf("r-%d", i))))
	}

	first := buf.Drain(4)
	require.Len(t, first, 4)
	for i, e := range first {
		assert.Equal(t, fmt.Sprintf("r-%d", i), e.(metricevent.AgentExecutionEvent).RunID)
	}

	rest := buf.Drain(100)
	require.Len(t, rest, 6)
	for i, e := range rest {
		assert.Equal(t, fmt.Sprintf("r-%d", i+4), e.(metricevent.AgentExecutionEvent).RunID)
	}
}

func TestBuffer_ConcurrentProducersPreserveTotalCount(t *testing.T) {
	buf := New(1024)
	const producers = 16
	const perProducer = 50

	var wg sync.WaitGroup
	published := make([]int64, producers)
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			var count int64
			for i := 0; i < perProducer; i++ {
				if buf.Publish(agentEvent(fmt.Sprintf("p%d-%d", p, i))) {
					count++
				}
			}
			published[p] = count
		}()
	}
	wg.Wait()

	var totalPublished int64
	for _, c := range published {
		totalPublished += c
	}

	drained := buf.Drain(10000)
	assert.Equal(t, totalPublished, int64(len(drained)))
	assert.Equal(t, totalPublished+buf.DroppedCount(), int64(producers*perProducer))
}

func TestBuffer_ConcurrentProducerOrderPerProducer(t *testing.T) {
	buf := New(1024)
	const perProducer = 100

	var wg sync.WaitGroup
	wg.Add(4)
	for p := 0; p < 4; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				buf.Publish(agentEvent(fmt.Sprintf("p%d-%d", p, i)))
			}
		}()
	}
	wg.Wait()

	drained := buf.Drain(10000)
	require.Len(t, drained, 4*perProducer)

	lastIndexSeen := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
	for _, e := range drained {
		runID := e.(metricevent.AgentExecutionEvent).RunID
		var p, i int
		_, err := fmt.Sscanf(runID, "p%d-%d", &p, &i)
		require.NoError(t, err)
		assert.Greater(t, i, lastIndexSeen[p], "producer %d events must drain in issuance order", p)
		lastIndexSeen[p] = i
	}
}

func TestBuffer_UsagePercent(t *testing.T) {
	buf := New(64)
	assert.Equal(t, float64(0), buf.UsagePercent())

	for i := 0; i < 32; i++ {
		require.True(t, buf.Publish(agentEvent(fmt.Sprintf("r-%d", i))))
	}
	assert.Equal(t, float64(50), buf.UsagePercent())
}

func TestBuffer_DrainNonPositiveBatch(t *testing.T) {
	buf := New(64)
	require.True(t, buf.Publish(agentEvent("r-0")))
	assert.Empty(t, buf.Drain(0))
	assert.Empty(t, buf.Drain(-5))
	assert.Equal(t, 1, buf.Size())
}
