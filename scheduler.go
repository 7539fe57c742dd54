package corio

import (
	"container/list"
	"fmt"
	"sync/atomic"
)

type inboxItem struct {
	comp   *internalComputation
	future *Future
}

// Scheduler is the deterministic, single-threaded cooperative driver
// of live Computations. Every method except Submit and Size must only
// ever be called from a single goroutine (the Driver's loop); Submit
// is safe to call from any goroutine, synchronizing solely through the
// buffered inbox channel.
type Scheduler struct {
	aio AIO

	inbox chan inboxItem

	ready *list.List // of *internalComputation

	// awaiting maps a blocker to the single computation currently
	// parked on its completion; awaitOrder preserves insertion order
	// so the unblock pass is deterministic (Go maps are not ordered).
	awaiting   map[*internalComputation]*internalComputation
	awaitOrder []*internalComputation

	pToComp      map[*Promise]*internalComputation
	compToFuture map[*internalComputation]*Future

	promises *promiseAllocator
	logger   Logger
	metrics  *Metrics

	liveCount atomic.Int64
	shutdown  atomic.Bool
}

// NewScheduler builds a Scheduler with an empty ready deque and no
// live computations. Any I/O payload a Computation yields is
// dispatched directly to aio, which must already be started by the
// time the first RunUntilBlocked runs.
func NewScheduler(aio AIO, opts ...SchedulerOption) (*Scheduler, error) {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		return nil, err
	}
	if cfg.inboxSize <= 0 {
		return nil, fmt.Errorf("corio: scheduler inbox size must be positive, got %d", cfg.inboxSize)
	}
	if aio == nil {
		return nil, fmt.Errorf("corio: scheduler requires a non-nil AIO")
	}
	return &Scheduler{
		aio:          aio,
		inbox:        make(chan inboxItem, cfg.inboxSize),
		ready:        list.New(),
		awaiting:     make(map[*internalComputation]*internalComputation),
		pToComp:      make(map[*Promise]*internalComputation),
		compToFuture: make(map[*internalComputation]*Future),
		promises:     newPromiseAllocator(),
		logger:       cfg.logger,
		metrics:      NewMetrics(),
	}, nil
}

// Metrics returns the Scheduler's counters, for logging or tests.
func (s *Scheduler) Metrics() *Metrics { return s.metrics }

// Submit admits c for execution, returning a Future resolved with its
// eventual value or error. Fails with ErrSchedulerShutdown once
// Shutdown has run, or ErrSubmissionQueueFull once the inbox is at
// capacity.
func (s *Scheduler) Submit(c Computation) (*Future, error) {
	if s.shutdown.Load() {
		return nil, ErrSchedulerShutdown
	}
	future := newFuture()
	select {
	case s.inbox <- inboxItem{comp: newInternalComputation(c), future: future}:
		s.liveCount.Add(1)
		s.metrics.SubmissionsAccepted.Add(1)
		return future, nil
	default:
		s.metrics.SubmissionsRejected.Add(1)
		return nil, ErrSubmissionQueueFull
	}
}

// Size reports the number of computations currently live: admitted
// but not yet finished, including those still sitting in the inbox.
func (s *Scheduler) Size() int {
	return int(s.liveCount.Load())
}

// RunUntilBlocked drives the scheduler through exactly one tick: admit
// the inbox, revive anything whose blocker has resolved, then step the
// ready deque to a fixed point.
func (s *Scheduler) RunUntilBlocked(t int64) {
	s.metrics.Ticks.Add(1)

	s.drainInbox()
	s.resolveUnblocks()

	for s.ready.Len() > 0 {
		back := s.ready.Back()
		comp := s.ready.Remove(back).(*internalComputation)
		s.step(comp)
	}
}

func (s *Scheduler) drainInbox() {
	for {
		select {
		case item := <-s.inbox:
			s.compToFuture[item.comp] = item.future
			s.ready.PushFront(item.comp)
		default:
			return
		}
	}
}

func (s *Scheduler) resolveUnblocks() {
	if len(s.awaitOrder) == 0 {
		return
	}
	remaining := s.awaitOrder[:0]
	for _, blocker := range s.awaitOrder {
		waiter, ok := s.awaiting[blocker]
		if !ok {
			continue
		}
		if blocker.Final == nil {
			remaining = append(remaining, blocker)
			continue
		}
		delete(s.awaiting, blocker)
		waiter.next = blocker.Final.Value
		waiter.nextErr = blocker.Final.Err
		s.ready.PushFront(waiter)
	}
	s.awaitOrder = remaining
}

// step resumes comp exactly once and routes whatever it yielded,
// mirroring spec.md's "Step semantics" verbatim: termination publishes
// to the registered Future; a yielded Promise either resolves
// immediately (if its blocker is already final) or parks comp in
// awaiting, and in both cases retires the Promise from pToComp; a
// yielded nested Computation spawns a child, mints a fresh Promise for
// it, and pushes the child before comp so the child runs first; a
// yielded I/O payload mints a fresh Promise for a synthetic child and
// dispatches an SQE whose callback sets that child's final value.
func (s *Scheduler) step(comp *internalComputation) {
	result := comp.resumeStep()

	switch result.kind {
	case stepFinal:
		s.setFinal(comp, result.final)

	case stepPromise:
		p := result.promise
		blocker, ok := s.pToComp[p]
		if !ok {
			panic(fmt.Errorf("corio: step observed an unknown promise"))
		}
		delete(s.pToComp, p)
		if blocker.Final != nil {
			comp.next = blocker.Final.Value
			comp.nextErr = blocker.Final.Err
			s.ready.PushFront(comp)
			return
		}
		s.awaiting[blocker] = comp
		s.awaitOrder = append(s.awaitOrder, blocker)

	case stepNested:
		child := newInternalComputation(result.nested)
		p := s.promises.New()
		child.selfPromise = p
		s.pToComp[p] = child
		s.metrics.ChildrenSpawned.Add(1)
		s.liveCount.Add(1)
		s.logger.Debug().Str("event", "spawn").Uint64("promise", p.id).Log("spawned nested computation")

		s.ready.PushFront(child)
		comp.next = p
		comp.nextErr = nil
		s.ready.PushFront(comp)

	case stepPayload:
		child := newExternalComputation()
		p := s.promises.New()
		child.selfPromise = p
		s.pToComp[p] = child
		s.metrics.ChildrenSpawned.Add(1)
		s.liveCount.Add(1)

		payload := result.payload
		sqe := SQE{
			Payload: payload,
			Callback: func(res any, err error) {
				s.setFinal(child, &finalValue{Value: res, Err: err})
			},
		}
		s.logger.Debug().Str("event", "dispatch").Uint64("promise", p.id).Log("dispatching io payload")
		s.aio.Dispatch(sqe)

		comp.next = p
		comp.nextErr = nil
		s.ready.PushFront(comp)
	}
}

// setFinal records comp's terminal outcome and delivers it to a
// registered Future if any. comp's own promise mapping (if it was a
// spawned child) stays in pToComp until a step observes that promise,
// so a parent that awaits an already-finished child still finds it.
func (s *Scheduler) setFinal(comp *internalComputation, fv *finalValue) {
	comp.Final = fv
	s.metrics.ComputationsFinished.Add(1)

	if future, ok := s.compToFuture[comp]; ok {
		future.resolve(fv.Value, fv.Err)
		delete(s.compToFuture, comp)
	}
	s.liveCount.Add(-1)
}

// Shutdown refuses further submissions and asserts every internal
// structure has drained to empty: the caller (the Driver) must only
// call Shutdown once Size() has reached zero.
func (s *Scheduler) Shutdown() error {
	s.shutdown.Store(true)
	if s.ready.Len() != 0 {
		return fmt.Errorf("corio: scheduler shutdown with %d computations still ready", s.ready.Len())
	}
	if len(s.awaiting) != 0 {
		return fmt.Errorf("corio: scheduler shutdown with %d computations still awaiting", len(s.awaiting))
	}
	if len(s.pToComp) != 0 {
		return fmt.Errorf("corio: scheduler shutdown with %d promises still unresolved", len(s.pToComp))
	}
	if len(s.compToFuture) != 0 {
		return fmt.Errorf("corio: scheduler shutdown with %d futures still undelivered", len(s.compToFuture))
	}
	return nil
}
