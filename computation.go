package corio

import "fmt"

// Yield suspends the calling Computation, handing value up to the
// Scheduler as a Yieldable (a nested Computation, a *Promise to await,
// or an I/O payload), and blocks until the Scheduler resumes it. The
// returned error is non-nil exactly when the Scheduler is resuming
// with a failure (an upstream error propagated from a yielded
// Promise); uncaught, it should simply be returned, terminating the
// Computation with that error.
type Yield func(value any) (any, error)

// Computation is a resumable state machine: each call to the Yield it
// is given suspends it until the Scheduler resumes it with a value or
// an error; it terminates by returning its final value or an error.
type Computation func(yield Yield) (any, error)

// finalValue is a Computation's terminal outcome: exactly one of Value
// or Err is meaningful.
type finalValue struct {
	Value any
	Err   error
}

type resumeMsg struct {
	value any
	err   error
}

type yieldMsg struct {
	value  any
	done   bool
	result any
	err    error
}

// internalComputation wraps a user Computation with the bookkeeping
// the Scheduler needs to drive it: the goroutine handoff channels, the
// pending-promise stack, and the two-phase final-value slots described
// in SPEC_FULL.md §3 (innerFinal mirrors the reference
// _InternalComputation's private _final; Final mirrors its public
// final, set only once the Scheduler's Step has actually observed the
// terminal value, possibly several Steps after innerFinal was set).
type internalComputation struct {
	comp Computation

	// resumption input for the next Step.
	next    any
	nextErr error

	// external: only ever written by Scheduler.setFinal.
	Final *finalValue

	// internal bookkeeping mirroring the reference implementation.
	innerFinal *finalValue
	pend       []*Promise

	// selfPromise is set by the Scheduler when this internalComputation
	// was spawned as a child (nested computation or I/O payload): it is
	// the single promise minted for it, retired from pToComp the moment
	// a Scheduler step observes that promise being yielded.
	selfPromise *Promise

	started bool
	in      chan resumeMsg
	out     chan yieldMsg
}

func newInternalComputation(c Computation) *internalComputation {
	return &internalComputation{comp: c}
}

// newExternalComputation builds a synthetic record representing
// external work (a nested I/O payload dispatched to the AIO bus): it
// never runs a goroutine, its Final is instead set directly by a CQE
// callback.
func newExternalComputation() *internalComputation {
	return &internalComputation{}
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("corio: computation panicked: %v", r)
}

func (ic *internalComputation) run() {
	yield := func(v any) (any, error) {
		ic.out <- yieldMsg{value: v}
		msg := <-ic.in
		return msg.value, msg.err
	}

	result, err := func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicToError(r)
			}
		}()
		return ic.comp(yield)
	}()

	ic.out <- yieldMsg{done: true, result: result, err: err}
}

// removeFromPend removes the first occurrence of p from the stack, if
// present, matching the reference's `contextlib.suppress(ValueError):
// pend.remove(yielded)`.
func removeFromPend(pend []*Promise, p *Promise) []*Promise {
	for i, q := range pend {
		if q == p {
			return append(pend[:i], pend[i+1:]...)
		}
	}
	return pend
}

type stepKind int

const (
	stepPromise stepKind = iota
	stepNested
	stepPayload
	stepFinal
)

type stepResult struct {
	kind    stepKind
	promise *Promise
	nested  Computation
	payload any
	final   *finalValue
}

// resumeStep is the Go rendition of the reference
// _InternalComputation.send(): resume the wrapped Computation with
// (ic.next, ic.nextErr), and classify whatever it does next.
func (ic *internalComputation) resumeStep() stepResult {
	if ic.innerFinal != nil {
		if n := len(ic.pend); n > 0 {
			p := ic.pend[n-1]
			ic.pend = ic.pend[:n-1]
			return stepResult{kind: stepPromise, promise: p}
		}
		return stepResult{kind: stepFinal, final: ic.innerFinal}
	}

	// If we are about to hand the Computation a Promise it previously
	// yielded (to let it observe that yield's "value"), remember it:
	// a subsequent re-yield of the SAME promise (the "await" half of
	// the yield-twice idiom) removes it again below, rather than being
	// treated as a brand new request.
	if p, ok := ic.next.(*Promise); ok && ic.nextErr == nil {
		ic.pend = append(ic.pend, p)
	}

	var yielded any
	var done bool
	var result any
	var err error

	if !ic.started {
		ic.started = true
		ic.in = make(chan resumeMsg)
		ic.out = make(chan yieldMsg)
		go ic.run()
	} else {
		ic.in <- resumeMsg{value: ic.next, err: ic.nextErr}
	}
	msg := <-ic.out
	yielded, done, result, err = msg.value, msg.done, msg.result, msg.err

	if done {
		fv := &finalValue{Value: result, Err: err}
		ic.innerFinal = fv
		if n := len(ic.pend); n > 0 {
			p := ic.pend[n-1]
			ic.pend = ic.pend[:n-1]
			return stepResult{kind: stepPromise, promise: p}
		}
		return stepResult{kind: stepFinal, final: fv}
	}

	if p, ok := yielded.(*Promise); ok {
		ic.pend = removeFromPend(ic.pend, p)
		return stepResult{kind: stepPromise, promise: p}
	}
	if nested, ok := yielded.(Computation); ok {
		return stepResult{kind: stepNested, nested: nested}
	}
	return stepResult{kind: stepPayload, payload: yielded}
}
