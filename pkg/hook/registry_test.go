package hook

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBeforeStart struct {
	name    string
	order   int
	enabled bool
	result  Result
	err     error
	calls   *[]string
}

func (f *fakeBeforeStart) Name() string  { return f.name }
func (f *fakeBeforeStart) Order() int    { return f.order }
func (f *fakeBeforeStart) Enabled() bool { return f.enabled }
func (f *fakeBeforeStart) BeforeAgentStart(_ context.Context, _ *Context) (Result, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	return f.result, f.err
}

func TestRegistry_BeforeAgentStart_RunsInOrderAndShortCircuits(t *testing.T) {
	r := NewRegistry()
	var calls []string

	r.RegisterBeforeAgentStart(&fakeBeforeStart{name: "b", order: 2, enabled: true, result: Continue(), calls: &calls})
	r.RegisterBeforeAgentStart(&fakeBeforeStart{name: "a", order: 1, enabled: true, result: Reject("nope"), calls: &calls})
	r.RegisterBeforeAgentStart(&fakeBeforeStart{name: "c", order: 3, enabled: true, result: Continue(), calls: &calls})

	result, err := r.RunBeforeAgentStart(context.Background(), NewContext("run-1", "user-1", "hi"))
	require.NoError(t, err)
	assert.Equal(t, ResultReject, result.Kind)
	assert.Equal(t, []string{"a"}, calls, "later hooks must not run after a reject")
}

func TestRegistry_BeforeAgentStart_SkipsDisabled(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.RegisterBeforeAgentStart(&fakeBeforeStart{name: "disabled", order: 1, enabled: false, result: Reject("x"), calls: &calls})
	r.RegisterBeforeAgentStart(&fakeBeforeStart{name: "enabled", order: 2, enabled: true, result: Continue(), calls: &calls})

	result, err := r.RunBeforeAgentStart(context.Background(), NewContext("run-1", "user-1", "hi"))
	require.NoError(t, err)
	assert.True(t, result.IsContinue())
	assert.Equal(t, []string{"enabled"}, calls)
}

type fakeAfterComplete struct {
	name        string
	order       int
	failOnError bool
	err         error
	calls       *[]string
	mu          *sync.Mutex
}

func (f *fakeAfterComplete) Name() string      { return f.name }
func (f *fakeAfterComplete) Order() int        { return f.order }
func (f *fakeAfterComplete) Enabled() bool     { return true }
func (f *fakeAfterComplete) FailOnError() bool { return f.failOnError }
func (f *fakeAfterComplete) AfterAgentComplete(_ context.Context, _ *Context, _ AgentResponse) error {
	if f.mu != nil {
		f.mu.Lock()
		defer f.mu.Unlock()
	}
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	return f.err
}

func TestRegistry_AfterAgentComplete_FailOpenByDefault(t *testing.T) {
	r := NewRegistry()
	var calls []string
	var mu sync.Mutex

	r.RegisterAfterAgentComplete(&fakeAfterComplete{name: "broken", order: 1, err: errors.New("boom"), calls: &calls, mu: &mu})
	r.RegisterAfterAgentComplete(&fakeAfterComplete{name: "observer", order: 2, calls: &calls, mu: &mu})

	err := r.RunAfterAgentComplete(context.Background(), NewContext("run-1", "user-1", "hi"), AgentResponse{Success: true})
	require.NoError(t, err, "a fail-open hook's error must not propagate")
	assert.Equal(t, []string{"broken", "observer"}, calls, "later hooks still run after one fails")
}

func TestRegistry_AfterAgentComplete_FailOnErrorPropagates(t *testing.T) {
	r := NewRegistry()
	r.RegisterAfterAgentComplete(&fakeAfterComplete{name: "strict", order: 1, failOnError: true, err: errors.New("boom")})

	err := r.RunAfterAgentComplete(context.Background(), NewContext("run-1", "user-1", "hi"), AgentResponse{Success: true})
	assert.Error(t, err)
}

func TestRegistry_BeforeAgentStart_ContextCancellationPropagates(t *testing.T) {
	r := NewRegistry()
	r.RegisterBeforeAgentStart(&fakeBeforeStart{name: "a", order: 1, enabled: true, result: Continue()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RunBeforeAgentStart(ctx, NewContext("run-1", "user-1", "hi"))
	assert.ErrorIs(t, err, context.Canceled)
}
