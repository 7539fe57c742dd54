package corio

// Kind is the routing key a submission payload or a Subsystem is
// keyed by: a payload is delivered to the Subsystem registered under
// the same Kind.
type Kind string

// FunctionKind is the distinguished Kind routed to the function
// Subsystem: any Thunk payload is delivered here regardless of what
// Kind() it would otherwise report.
const FunctionKind Kind = "function"

// Thunk is a deferred, zero-argument call. Submitting a Thunk payload
// routes it to FunctionKind; the function subsystem invokes it and
// delivers its return value (or error) as the completion.
type Thunk func() (any, error)

// Kinder is implemented by non-Thunk submission payloads to declare
// the Subsystem Kind that should process them.
type Kinder interface {
	Kind() Kind
}

// payloadKind resolves the Kind a submission payload routes to, or
// ErrInvalidSubmission if the payload is neither a Thunk nor a Kinder.
func payloadKind(payload any) (Kind, error) {
	switch v := payload.(type) {
	case Thunk:
		return FunctionKind, nil
	case Kinder:
		return v.Kind(), nil
	default:
		return "", ErrInvalidSubmission
	}
}
