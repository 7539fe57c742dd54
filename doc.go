// Package corio implements a small asynchronous-I/O runtime built
// around a cooperative scheduler of user-defined Computations. A
// Computation is a resumable state machine that yields I/O requests,
// awaits their completion, and may spawn and await child Computations.
// The runtime multiplexes many such Computations over a set of
// pluggable I/O Subsystems (function execution, echo, rate-limited
// function execution) accessed through a uniform submission/completion
// queue (SQE/CQE) abstraction.
//
// # Architecture
//
// Two tightly coupled pieces form the core:
//
//   - The [Scheduler]: a deterministic, single-threaded cooperative
//     executor that drives Computations through their yield points,
//     manages parent/child await relationships via Promise handles,
//     and routes yielded I/O requests to the AIO bus.
//   - The AIO bus ([AIOSystem] for production, [AIODst] for
//     deterministic simulation): dispatches SQEs to registered
//     Subsystems by [Kind] and aggregates their CQEs into a shared
//     completion queue.
//
// A [Driver] ties the two together: it drains completions, ticks the
// scheduler, and flushes the AIO bus, on a fixed cadence.
//
// # Computations without generators
//
// Go has no generator/coroutine language feature, so a Computation is
// expressed as a plain function taking a [Yield] callback:
//
//	func bar(n int) Computation {
//	    return func(yield Yield) (any, error) {
//	        p, err := yield(Thunk(func() (any, error) { return "hello, world!", nil }))
//	        if err != nil {
//	            return nil, err
//	        }
//	        if _, err := yield(p); err != nil {
//	            return nil, err
//	        }
//	        return n, nil
//	    }
//	}
//
// Internally each Computation runs on its own goroutine, handing
// control back to the Scheduler at every yield point over a pair of
// unbuffered channels; exactly one of the two goroutines runs at a
// time, so this is cooperative, not concurrent, execution.
//
// # Thread safety
//
// [Scheduler.Submit] is safe to call from any goroutine. Every other
// Scheduler method, and the delivery of a Computation's terminal value
// to its [Future], happens only on the goroutine driving the
// [Driver]'s loop.
//
// # Error types
//
// See the five error kinds documented alongside [SubmissionRejectedError],
// [SubsystemError], [ErrSimulatedFailureBeforeProcessing],
// [ErrSimulatedFailureAfterProcessing], and [InvalidSubmissionError].
package corio
