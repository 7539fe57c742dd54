// Package function implements corio's distinguished "function"
// Subsystem: it runs a bounded-size worker pool that invokes each
// submitted corio.Thunk and publishes its return value (or error, or
// recovered panic) as the completion.
package function

import (
	"fmt"
	"sync"

	"github.com/joeycumines/corio"
)

// Kind is the routing key every corio.Thunk payload resolves to.
const Kind corio.Kind = corio.FunctionKind

// Subsystem runs submitted Thunks on a fixed pool of worker
// goroutines, one SQE at a time per worker, publishing completions to
// an AIO bus via corio.CompletionSink.
type Subsystem struct {
	sink    corio.CompletionSink
	size    int
	workers int

	sq chan corio.SQE
	wg sync.WaitGroup
}

// New builds a function Subsystem that publishes completions to sink,
// accepting up to size in-flight submissions across workers
// goroutines.
func New(sink corio.CompletionSink, size, workers int) (*Subsystem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("corio/function: size must be positive, got %d", size)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("corio/function: workers must be positive, got %d", workers)
	}
	return &Subsystem{
		sink:    sink,
		size:    size,
		workers: workers,
		sq:      make(chan corio.SQE, size),
	}, nil
}

var _ corio.Subsystem = (*Subsystem)(nil)

func (s *Subsystem) Kind() corio.Kind { return Kind }
func (s *Subsystem) Size() int        { return s.size }

// Start launches the worker pool. It is not idempotent: each call
// launches another set of workers goroutines.
func (s *Subsystem) Start() error {
	s.wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go s.worker()
	}
	return nil
}

// Shutdown closes the submission queue and waits for every worker to
// drain it.
func (s *Subsystem) Shutdown() error {
	close(s.sq)
	s.wg.Wait()
	return nil
}

// Enqueue submits sqe, whose Payload must be a corio.Thunk.
func (s *Subsystem) Enqueue(sqe corio.SQE) bool {
	select {
	case s.sq <- sqe:
		return true
	default:
		return false
	}
}

func (s *Subsystem) Flush(t int64) {}

// Process synchronously invokes each sqe's Thunk, recovering a panic
// as an error, returning one CQE per input in order.
func (s *Subsystem) Process(sqes []corio.SQE) []corio.CQE {
	out := make([]corio.CQE, len(sqes))
	for i, sqe := range sqes {
		out[i] = s.invoke(sqe)
	}
	return out
}

func (s *Subsystem) invoke(sqe corio.SQE) (cqe corio.CQE) {
	thunk, ok := sqe.Payload.(corio.Thunk)
	if !ok {
		err := fmt.Errorf("corio/function: payload %T is not a corio.Thunk", sqe.Payload)
		return corio.CQE{Err: &corio.SubsystemError{Kind: Kind, Cause: err}, Callback: sqe.Callback}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("corio/function: thunk panicked: %v", r)
			cqe = corio.CQE{Err: &corio.SubsystemError{Kind: Kind, Cause: err}, Callback: sqe.Callback}
		}
	}()

	value, err := thunk()
	if err != nil {
		err = &corio.SubsystemError{Kind: Kind, Cause: err}
	}
	return corio.CQE{Result: value, Err: err, Callback: sqe.Callback}
}

func (s *Subsystem) worker() {
	defer s.wg.Done()
	for sqe := range s.sq {
		s.sink.Publish(s.invoke(sqe))
	}
}
