package corio

// Subsystem is the implementer-facing contract for a capability that
// processes SQEs of one Kind and emits CQEs.
//
// A Subsystem must, for each SQE it accepts via Enqueue, eventually
// deliver exactly one CQE to its AIO bus carrying the SQE's Callback
// and either the computed output or an error.
type Subsystem interface {
	// Kind is the routing key this Subsystem registers under.
	Kind() Kind

	// Size is the maximum number of in-flight submissions this
	// Subsystem will accept.
	Size() int

	// Start begins any background workers. Called once, before the
	// Subsystem is attached is dispatched to.
	Start() error

	// Shutdown stops background workers and waits for them to drain.
	Shutdown() error

	// Enqueue submits sqe for processing, returning false if the
	// Subsystem's submission queue is full (non-blocking).
	Enqueue(sqe SQE) bool

	// Flush gives the Subsystem an opportunity to perform time-based
	// work; a no-op for subsystems with no notion of time.
	Flush(t int64)

	// Process synchronously transforms sqes into one CQE per input,
	// in order. Used directly by AIODst; the bundled subsystems' worker
	// loops apply the same per-SQE transform one SQE at a time.
	Process(sqes []SQE) []CQE
}

// CompletionSink is the narrow interface a Subsystem's worker uses to
// publish a CQE back to its owning AIO bus.
type CompletionSink interface {
	Publish(cqe CQE)
}
