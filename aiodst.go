package corio

import (
	"fmt"
	"math/rand"
)

// AIODst is a deterministic simulation variant of the AIO bus, for
// testing. Dispatch does not synchronously submit anywhere: SQEs
// accumulate in a pending list, shuffled in by a seeded PRNG, and are
// only routed to their Subsystem's Process on the next Flush, which
// also samples pre/post-processing fault injection.
type AIODst struct {
	rng *rand.Rand
	p   float64

	kinds      []Kind
	subsystems map[Kind]Subsystem

	pending []SQE
	ready   []CQE

	logger  Logger
	metrics *Metrics
}

var _ AIO = (*AIODst)(nil)

// NewAIODst builds a deterministic simulation AIO bus seeded by r,
// injecting a fault (uniformly pre- or post-processing) for each SQE
// independently with probability p (0 <= p <= 1).
func NewAIODst(r *rand.Rand, p float64, opts ...AIOOption) (*AIODst, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("corio: fault probability must be in [0,1], got %f", p)
	}
	cfg, err := resolveAIOOptions(opts)
	if err != nil {
		return nil, err
	}
	metrics := cfg.metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &AIODst{
		rng:        r,
		p:          p,
		subsystems: make(map[Kind]Subsystem),
		logger:     cfg.logger,
		metrics:    metrics,
	}, nil
}

// Metrics returns the counters this AIODst is reporting through,
// including FaultsInjected — shared with a Scheduler/Driver if built
// via WithAIOMetrics, private otherwise.
func (a *AIODst) Metrics() *Metrics { return a.metrics }

// Attach registers subsystem, failing if its Kind is already present.
func (a *AIODst) Attach(s Subsystem) error {
	if _, exists := a.subsystems[s.Kind()]; exists {
		return fmt.Errorf("corio: subsystem kind %q already attached", s.Kind())
	}
	a.subsystems[s.Kind()] = s
	a.kinds = append(a.kinds, s.Kind())
	return nil
}

// Dispatch inserts sqe at a random position in the pending list. No
// dispatch happens until Flush.
//
// A payload that is neither a Thunk nor a Kinder panics here with
// *InvalidSubmissionError, matching AIOSystem.Dispatch and
// SPEC_FULL.md §3; a Kinder naming an unregistered Kind is accepted
// here and panics with *InvalidSubmissionError in Flush instead.
func (a *AIODst) Dispatch(sqe SQE) {
	if _, err := payloadKind(sqe.Payload); err != nil {
		panic(&InvalidSubmissionError{Payload: sqe.Payload})
	}
	pos := a.rng.Intn(len(a.pending) + 1)
	a.pending = append(a.pending, SQE{})
	copy(a.pending[pos+1:], a.pending[pos:])
	a.pending[pos] = sqe
}

type dstFault int

const (
	faultNone dstFault = iota
	faultPre
	faultPost
)

// Flush partitions the pending SQEs by Kind (in first-seen order),
// samples a fault for each per the configured probability, gives
// pre-faulted SQEs an error CQE without processing them, batches the
// survivors into one Process call per Kind, and overrides post-faulted
// results with an error. Each Kind's CQEs are then appended to the
// ready list in the pending list's order, one Kind after another.
func (a *AIODst) Flush(t int64) {
	if len(a.pending) == 0 {
		for _, k := range a.kinds {
			a.subsystems[k].Flush(t)
		}
		return
	}

	var kindOrder []Kind
	buckets := make(map[Kind][]int) // indices into a.pending
	for i, sqe := range a.pending {
		kind, err := payloadKind(sqe.Payload)
		if err != nil {
			panic(&InvalidSubmissionError{Payload: sqe.Payload})
		}
		if _, ok := buckets[kind]; !ok {
			kindOrder = append(kindOrder, kind)
		}
		buckets[kind] = append(buckets[kind], i)
	}

	for _, kind := range kindOrder {
		indices := buckets[kind]
		faults := make([]dstFault, len(indices))
		out := make([]CQE, len(indices))
		var toProcess []SQE
		var toProcessIdx []int
		for j, idx := range indices {
			sqe := a.pending[idx]
			if a.rng.Float64() < a.p {
				if a.rng.Intn(2) == 0 {
					faults[j] = faultPre
				} else {
					faults[j] = faultPost
				}
				a.metrics.FaultsInjected.Add(1)
			}
			if faults[j] == faultPre {
				out[j] = CQE{
					Err:      ErrSimulatedFailureBeforeProcessing,
					Callback: sqe.Callback,
				}
				continue
			}
			toProcess = append(toProcess, sqe)
			toProcessIdx = append(toProcessIdx, j)
		}

		s, ok := a.subsystems[kind]
		if !ok {
			panic(&InvalidSubmissionError{Payload: nil})
		}
		results := s.Process(toProcess)
		for k, cqe := range results {
			j := toProcessIdx[k]
			if faults[j] == faultPost {
				out[j] = CQE{
					Err:      ErrSimulatedFailureAfterProcessing,
					Callback: cqe.Callback,
				}
				continue
			}
			out[j] = cqe
		}
		a.ready = append(a.ready, out...)
	}

	a.pending = a.pending[:0]

	for _, k := range a.kinds {
		a.subsystems[k].Flush(t)
	}
}

// Dequeue returns up to n CQEs from the ready list, in the order Flush
// produced them.
func (a *AIODst) Dequeue(n int) []CQE {
	if n > len(a.ready) {
		n = len(a.ready)
	}
	out := a.ready[:n]
	a.ready = a.ready[n:]
	return out
}

// Start starts every attached Subsystem, in attachment order.
func (a *AIODst) Start() error {
	for _, k := range a.kinds {
		if err := a.subsystems[k].Start(); err != nil {
			return fmt.Errorf("corio: starting subsystem %q: %w", k, err)
		}
	}
	return nil
}

// Shutdown stops every attached Subsystem, in attachment order.
func (a *AIODst) Shutdown() error {
	for _, k := range a.kinds {
		if err := a.subsystems[k].Shutdown(); err != nil {
			return fmt.Errorf("corio: shutting down subsystem %q: %w", k, err)
		}
	}
	return nil
}
