package corio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAIO is a minimal AIO stand-in for scheduler-only unit tests: it
// simply records every dispatched SQE so the test can deliver a
// completion manually, simulating a subsystem's worker.
type fakeAIO struct {
	dispatched []SQE
}

func (f *fakeAIO) Attach(Subsystem) error { return nil }
func (f *fakeAIO) Dispatch(sqe SQE)        { f.dispatched = append(f.dispatched, sqe) }
func (f *fakeAIO) Dequeue(int) []CQE       { return nil }
func (f *fakeAIO) Flush(int64)             {}
func (f *fakeAIO) Start() error            { return nil }
func (f *fakeAIO) Shutdown() error         { return nil }

func mustWait(t *testing.T, f *Future) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return f.Wait(ctx)
}

// TestScheduler_NestedComputation covers spec.md's canonical two-yield
// idiom: a parent spawns a nested computation, observes its promise,
// then explicitly awaits it, and must see its resolved value.
func TestScheduler_NestedComputation(t *testing.T) {
	sched, err := NewScheduler(&fakeAIO{})
	require.NoError(t, err)

	child := Computation(func(yield Yield) (any, error) {
		return 5, nil
	})

	parent := Computation(func(yield Yield) (any, error) {
		p, err := yield(child)
		if err != nil {
			return nil, err
		}
		v, err := yield(p)
		if err != nil {
			return nil, err
		}
		return v, nil
	})

	future, err := sched.Submit(parent)
	require.NoError(t, err)

	sched.RunUntilBlocked(0)

	value, err := mustWait(t, future)
	require.NoError(t, err)
	assert.Equal(t, 5, value)
}

// TestScheduler_FIFOFairness submits two computations that each yield
// once (to the fake AIO) then terminate; both becoming ready on the
// same unblock pass must step in FIFO order.
func TestScheduler_FIFOFairness(t *testing.T) {
	aio := &fakeAIO{}
	sched, err := NewScheduler(aio)
	require.NoError(t, err)

	var order []string

	mk := func(name string) Computation {
		return func(yield Yield) (any, error) {
			p, err := yield("payload-" + name)
			if err != nil {
				return nil, err
			}
			if _, err := yield(p); err != nil {
				return nil, err
			}
			order = append(order, name)
			return name, nil
		}
	}

	f1, err := sched.Submit(mk("first"))
	require.NoError(t, err)
	f2, err := sched.Submit(mk("second"))
	require.NoError(t, err)

	sched.RunUntilBlocked(0)
	require.Len(t, aio.dispatched, 2)

	// Simulate both SQEs completing, in dispatch order, before the next
	// tick: invoke the callbacks directly, as the driver would after
	// draining the AIO completion queue.
	for _, sqe := range aio.dispatched {
		sqe.Callback(nil, nil)
	}

	sched.RunUntilBlocked(1)

	_, _ = mustWait(t, f1)
	_, _ = mustWait(t, f2)
	assert.Equal(t, []string{"first", "second"}, order)
}

// TestScheduler_IOPayloadRoundTrip exercises the stepPayload path end
// to end: yielding a non-Computation, non-Promise value dispatches an
// SQE to the AIO; resolving it (as a real subsystem worker would, via
// the CQE callback) unblocks the waiting computation on the next tick.
func TestScheduler_IOPayloadRoundTrip(t *testing.T) {
	aio := &fakeAIO{}
	sched, err := NewScheduler(aio)
	require.NoError(t, err)

	future, err := sched.Submit(func(yield Yield) (any, error) {
		p, err := yield("echo-me")
		if err != nil {
			return nil, err
		}
		v, err := yield(p)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	require.NoError(t, err)

	sched.RunUntilBlocked(0)
	require.Len(t, aio.dispatched, 1)
	assert.Equal(t, "echo-me", aio.dispatched[0].Payload)

	aio.dispatched[0].Callback("echo-me-reply", nil)
	sched.RunUntilBlocked(1)

	value, err := mustWait(t, future)
	require.NoError(t, err)
	assert.Equal(t, "echo-me-reply", value)
}

// TestScheduler_IOPayloadError checks an error delivered through a CQE
// callback propagates as the Yield's error.
func TestScheduler_IOPayloadError(t *testing.T) {
	aio := &fakeAIO{}
	sched, err := NewScheduler(aio)
	require.NoError(t, err)

	boom := errors.New("subsystem boom")

	future, err := sched.Submit(func(yield Yield) (any, error) {
		p, err := yield("will-fail")
		if err != nil {
			return nil, err
		}
		_, err = yield(p)
		return nil, err
	})
	require.NoError(t, err)

	sched.RunUntilBlocked(0)
	require.Len(t, aio.dispatched, 1)

	aio.dispatched[0].Callback(nil, boom)
	sched.RunUntilBlocked(1)

	_, err = mustWait(t, future)
	assert.ErrorIs(t, err, boom)
}

// TestScheduler_SubmitRejectsOnceShutdown confirms Submit refuses new
// work once Shutdown has run.
func TestScheduler_SubmitRejectsOnceShutdown(t *testing.T) {
	sched, err := NewScheduler(&fakeAIO{})
	require.NoError(t, err)

	require.NoError(t, sched.Shutdown())

	_, err = sched.Submit(func(yield Yield) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrSchedulerShutdown)
}

// TestScheduler_SubmitBackpressure confirms submissions beyond the
// inbox capacity fail the submitter.
func TestScheduler_SubmitBackpressure(t *testing.T) {
	sched, err := NewScheduler(&fakeAIO{}, WithSchedulerInboxSize(1))
	require.NoError(t, err)

	noop := func(yield Yield) (any, error) { return nil, nil }

	_, err = sched.Submit(noop)
	require.NoError(t, err)

	_, err = sched.Submit(noop)
	assert.ErrorIs(t, err, ErrSubmissionQueueFull)
}

// TestScheduler_ShutdownAssertsDrained confirms Shutdown fails loudly
// if called while computations are still in flight.
func TestScheduler_ShutdownAssertsDrained(t *testing.T) {
	aio := &fakeAIO{}
	sched, err := NewScheduler(aio)
	require.NoError(t, err)

	_, err = sched.Submit(func(yield Yield) (any, error) {
		_, err := yield("pending-forever")
		return nil, err
	})
	require.NoError(t, err)

	sched.RunUntilBlocked(0)
	require.Len(t, aio.dispatched, 1)

	err = sched.Shutdown()
	assert.Error(t, err)
}

// TestScheduler_SizeTracksLiveComputations checks Size reflects
// submissions and completions.
func TestScheduler_SizeTracksLiveComputations(t *testing.T) {
	sched, err := NewScheduler(&fakeAIO{})
	require.NoError(t, err)

	assert.Equal(t, 0, sched.Size())

	future, err := sched.Submit(func(yield Yield) (any, error) { return "done", nil })
	require.NoError(t, err)
	assert.Equal(t, 1, sched.Size())

	sched.RunUntilBlocked(0)
	_, _ = mustWait(t, future)
	assert.Equal(t, 0, sched.Size())
}
