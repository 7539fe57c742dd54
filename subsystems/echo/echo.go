// Package echo implements a minimal Subsystem used mostly for testing
// the scheduler/AIO/driver wiring end to end: it returns whatever
// string it was given, unmodified.
package echo

import (
	"fmt"
	"sync"

	"github.com/joeycumines/corio"
)

// Kind is the routing key Submission and Completion both report.
const Kind corio.Kind = "echo"

// Submission is an echo Subsystem's payload: it implements
// corio.Kinder so the AIO bus routes it to kind "echo".
type Submission struct {
	Data string
}

func (Submission) Kind() corio.Kind { return Kind }

// Completion is what an echo Subsystem delivers back.
type Completion struct {
	Data string
}

func (Completion) Kind() corio.Kind { return Kind }

// Subsystem runs submitted echo.Submissions on a fixed pool of worker
// goroutines, publishing each input's Data back as a Completion.
type Subsystem struct {
	sink    corio.CompletionSink
	size    int
	workers int

	sq chan corio.SQE
	wg sync.WaitGroup
}

// New builds an echo Subsystem publishing completions to sink,
// accepting up to size in-flight submissions across workers
// goroutines.
func New(sink corio.CompletionSink, size, workers int) (*Subsystem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("corio/echo: size must be positive, got %d", size)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("corio/echo: workers must be positive, got %d", workers)
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

func (s *Subsystem) Start() error {
	s.wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go s.worker()
	}
	return nil
}

func (s *Subsystem) Shutdown() error {
	close(s.sq)
	s.wg.Wait()
	return nil
}

func (s *Subsystem) Enqueue(sqe corio.SQE) bool {
	select {
	case s.sq <- sqe:
		return true
	default:
		return false
	}
}

func (s *Subsystem) Flush(t int64) {}

// Process synchronously echoes each sqe's Submission, returning one
// CQE per input in order.
func (s *Subsystem) Process(sqes []corio.SQE) []corio.CQE {
	out := make([]corio.CQE, len(sqes))
	for i, sqe := range sqes {
		out[i] = s.invoke(sqe)
	}
	return out
}

func (s *Subsystem) invoke(sqe corio.SQE) corio.CQE {
	sub, ok := sqe.Payload.(Submission)
	if !ok {
		err := fmt.Errorf("corio/echo: payload %T is not echo.Submission", sqe.Payload)
		return corio.CQE{Err: &corio.SubsystemError{Kind: Kind, Cause: err}, Callback: sqe.Callback}
	}
	return corio.CQE{Result: Completion{Data: sub.Data}, Callback: sqe.Callback}
}

func (s *Subsystem) worker() {
	defer s.wg.Done()
	for sqe := range s.sq {
		s.sink.Publish(s.invoke(sqe))
	}
}
