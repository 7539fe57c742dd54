package corio

import "fmt"

// AIO is the bus interface the Scheduler dispatches yielded I/O
// payloads through; implemented by AIOSystem (real) and AIODst
// (deterministic simulation).
type AIO interface {
	Attach(s Subsystem) error
	Dispatch(sqe SQE)
	Dequeue(n int) []CQE
	Flush(t int64)
	Start() error
	Shutdown() error
}

// AIOSystem is the production AIO bus: a bounded multi-producer,
// single-consumer completion queue fed by subsystem worker goroutines,
// fronted by a registry of Subsystems keyed by Kind.
type AIOSystem struct {
	cq chan CQE

	kinds      []Kind
	subsystems map[Kind]Subsystem

	logger Logger
}

var _ AIO = (*AIOSystem)(nil)
var _ CompletionSink = (*AIOSystem)(nil)

// NewAIOSystem builds a production AIO bus. The completion queue's
// capacity defaults to 100 (see WithAIOSize).
func NewAIOSystem(opts ...AIOOption) (*AIOSystem, error) {
	cfg, err := resolveAIOOptions(opts)
	if err != nil {
		return nil, err
	}
	if cfg.size <= 0 {
		return nil, fmt.Errorf("corio: aio size must be positive, got %d", cfg.size)
	}
	return &AIOSystem{
		cq:         make(chan CQE, cfg.size),
		subsystems: make(map[Kind]Subsystem),
		logger:     cfg.logger,
	}, nil
}

// Attach registers subsystem, failing if its Kind is already present
// or its declared Size exceeds the bus's completion queue capacity.
func (a *AIOSystem) Attach(s Subsystem) error {
	if s.Size() > cap(a.cq) {
		return fmt.Errorf("corio: subsystem %q size %d exceeds aio capacity %d", s.Kind(), s.Size(), cap(a.cq))
	}
	if _, exists := a.subsystems[s.Kind()]; exists {
		return fmt.Errorf("corio: subsystem kind %q already attached", s.Kind())
	}
	a.subsystems[s.Kind()] = s
	a.kinds = append(a.kinds, s.Kind())
	return nil
}

// Dispatch routes sqe to the Subsystem selected by its payload's Kind.
// If that Subsystem's Enqueue reports its queue full, Dispatch
// synthesizes a SubmissionRejectedError CQE and invokes sqe.Callback
// immediately, inline on the caller.
//
// An unroutable payload (neither a Thunk nor a Kinder, or a Kinder
// naming an unregistered Kind) is an assertion failure, per
// SPEC_FULL.md §3: Dispatch panics with *InvalidSubmissionError.
func (a *AIOSystem) Dispatch(sqe SQE) {
	kind, err := payloadKind(sqe.Payload)
	if err != nil {
		panic(&InvalidSubmissionError{Payload: sqe.Payload})
	}
	s, ok := a.subsystems[kind]
	if !ok {
		panic(&InvalidSubmissionError{Payload: sqe.Payload})
	}
	a.logger.Debug().Str("kind", string(kind)).Log("dispatching sqe")
	if !s.Enqueue(sqe) {
		sqe.Callback(nil, &SubmissionRejectedError{Kind: kind})
	}
}

// Publish implements CompletionSink: a Subsystem worker calls this to
// hand a completed CQE back to the bus. Blocks if the completion queue
// is full.
func (a *AIOSystem) Publish(cqe CQE) {
	a.cq <- cqe
}

// Dequeue returns up to n CQEs from the completion queue, non-blocking.
func (a *AIOSystem) Dequeue(n int) []CQE {
	out := make([]CQE, 0, n)
	for i := 0; i < n; i++ {
		select {
		case cqe := <-a.cq:
			out = append(out, cqe)
		default:
			return out
		}
	}
	return out
}

// Flush forwards a time tick to every attached Subsystem, in
// attachment order.
func (a *AIOSystem) Flush(t int64) {
	for _, k := range a.kinds {
		a.subsystems[k].Flush(t)
	}
}

// Start starts every attached Subsystem, in attachment order.
func (a *AIOSystem) Start() error {
	for _, k := range a.kinds {
		if err := a.subsystems[k].Start(); err != nil {
			return fmt.Errorf("corio: starting subsystem %q: %w", k, err)
		}
	}
	return nil
}

// Shutdown stops every attached Subsystem (in attachment order), then
// closes the completion queue.
func (a *AIOSystem) Shutdown() error {
	for _, k := range a.kinds {
		if err := a.subsystems[k].Shutdown(); err != nil {
			return fmt.Errorf("corio: shutting down subsystem %q: %w", k, err)
		}
	}
	close(a.cq)
	return nil
}
