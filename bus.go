package corio

// Callback receives the result (or error) a submission eventually
// produces. It is carried by both the originating SQE and the CQE
// that answers it.
type Callback func(result any, err error)

// SQE (submission queue entry) is an immutable request: a payload and
// the callback to invoke with its eventual result.
type SQE struct {
	Payload  any
	Callback Callback
}

// CQE (completion queue entry) is an immutable answer to a previously
// dispatched SQE: either a result value or an error, and the
// originating SQE's callback.
type CQE struct {
	Result   any
	Err      error
	Callback Callback
}
