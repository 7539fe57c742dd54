// Package ratelimit wraps corio's "function" subsystem with a
// sliding-window rate limiter: a Submission names a category
// alongside its corio.Thunk, and the thunk only runs if the category
// has not exceeded any of the limiter's configured rates.
//
// This has no analogue in the original subsystem set; it exists to
// give github.com/joeycumines/go-catrate a home in this module.
package ratelimit

import (
	"fmt"
	"sync"

	"github.com/joeycumines/corio"
	"github.com/joeycumines/go-catrate"
)

// Kind is the routing key a Submission reports.
const Kind corio.Kind = "ratelimited-function"

// ErrRateLimited is the error a Completion carries when a Submission's
// category has exceeded one of the limiter's configured rates; its
// Thunk is never invoked.
var ErrRateLimited = fmt.Errorf("corio/ratelimit: category rate limit exceeded")

// Submission pairs a rate-limiting category with the work to run if
// the category is currently allowed.
type Submission struct {
	Category any
	Thunk    corio.Thunk
}

func (Submission) Kind() corio.Kind { return Kind }

// Subsystem runs submitted work through a *catrate.Limiter before
// dispatching it to a worker pool, identical in shape to
// subsystems/function's.
type Subsystem struct {
	sink    corio.CompletionSink
	limiter *catrate.Limiter
	size    int
	workers int

	sq chan corio.SQE
	wg sync.WaitGroup
}

// New builds a rate-limited function Subsystem. limiter governs which
// categories are currently allowed to run; see catrate.NewLimiter.
func New(sink corio.CompletionSink, limiter *catrate.Limiter, size, workers int) (*Subsystem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("corio/ratelimit: size must be positive, got %d", size)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("corio/ratelimit: workers must be positive, got %d", workers)
	}
	if limiter == nil {
		return nil, fmt.Errorf("corio/ratelimit: limiter must not be nil")
	}
	return &Subsystem{
		sink:    sink,
		limiter: limiter,
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

// Process checks the limiter once per sqe and, for those allowed,
// invokes their Thunk; denied submissions yield ErrRateLimited without
// ever calling the Thunk.
func (s *Subsystem) Process(sqes []corio.SQE) []corio.CQE {
	out := make([]corio.CQE, len(sqes))
	for i, sqe := range sqes {
		out[i] = s.invoke(sqe)
	}
	return out
}

func (s *Subsystem) invoke(sqe corio.SQE) (cqe corio.CQE) {
	sub, ok := sqe.Payload.(Submission)
	if !ok {
		err := fmt.Errorf("corio/ratelimit: payload %T is not ratelimit.Submission", sqe.Payload)
		return corio.CQE{Err: &corio.SubsystemError{Kind: Kind, Cause: err}, Callback: sqe.Callback}
	}

	if _, allowed := s.limiter.Allow(sub.Category); !allowed {
		return corio.CQE{Err: &corio.SubsystemError{Kind: Kind, Cause: ErrRateLimited}, Callback: sqe.Callback}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("corio/ratelimit: thunk panicked: %v", r)
			cqe = corio.CQE{Err: &corio.SubsystemError{Kind: Kind, Cause: err}, Callback: sqe.Callback}
		}
	}()

	value, err := sub.Thunk()
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
