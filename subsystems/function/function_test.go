package function_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/corio"
	"github.com/joeycumines/corio/subsystems/function"
)

type collectingSink struct {
	mu   sync.Mutex
	cqes []corio.CQE
	ch   chan struct{}
}

func newCollectingSink(n int) *collectingSink {
	return &collectingSink{ch: make(chan struct{}, n)}
}

func (s *collectingSink) Publish(cqe corio.CQE) {
	s.mu.Lock()
	s.cqes = append(s.cqes, cqe)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *collectingSink) waitN(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		<-s.ch
	}
}

func TestSubsystem_ProcessInvokesThunk(t *testing.T) {
	sink := newCollectingSink(0)
	sub, err := function.New(sink, 10, 1)
	require.NoError(t, err)

	out := sub.Process([]corio.SQE{
		{Payload: corio.Thunk(func() (any, error) { return "ok", nil })},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Result)
	assert.NoError(t, out[0].Err)
}

func TestSubsystem_ProcessPropagatesThunkError(t *testing.T) {
	sink := newCollectingSink(0)
	sub, err := function.New(sink, 10, 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	out := sub.Process([]corio.SQE{
		{Payload: corio.Thunk(func() (any, error) { return nil, boom })},
	})
	require.Len(t, out, 1)
	assert.ErrorIs(t, out[0].Err, boom)
}

func TestSubsystem_ProcessRecoversPanic(t *testing.T) {
	sink := newCollectingSink(0)
	sub, err := function.New(sink, 10, 1)
	require.NoError(t, err)

	out := sub.Process([]corio.SQE{
		{Payload: corio.Thunk(func() (any, error) { panic("nope") })},
	})
	require.Len(t, out, 1)
	require.Error(t, out[0].Err)
	assert.Contains(t, out[0].Err.Error(), "nope")
}

func TestSubsystem_WorkerPoolDeliversCompletions(t *testing.T) {
	sink := newCollectingSink(5)
	sub, err := function.New(sink, 10, 2)
	require.NoError(t, err)
	require.NoError(t, sub.Start())

	var callback = func(any, error) {}
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, sub.Enqueue(corio.SQE{
			Payload:  corio.Thunk(func() (any, error) { return i, nil }),
			Callback: callback,
		}))
	}

	sink.waitN(t, 5)
	require.NoError(t, sub.Shutdown())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.cqes, 5)

	seen := make(map[int]bool)
	for _, cqe := range sink.cqes {
		seen[cqe.Result.(int)] = true
	}
	assert.Len(t, seen, 5)
}

func TestSubsystem_EnqueueRejectsBeyondCapacity(t *testing.T) {
	sink := newCollectingSink(0)
	sub, err := function.New(sink, 1, 1)
	require.NoError(t, err)

	blocker := corio.Thunk(func() (any, error) { select {} })
	require.True(t, sub.Enqueue(corio.SQE{Payload: blocker}))
	assert.False(t, sub.Enqueue(corio.SQE{Payload: blocker}))
}

func TestSubsystem_KindIsFunction(t *testing.T) {
	sink := newCollectingSink(0)
	sub, err := function.New(sink, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, corio.FunctionKind, sub.Kind())
}
