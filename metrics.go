package corio

import "sync/atomic"

// Metrics is a set of free-running counters instrumenting the
// Scheduler, AIO bus, and Driver, in the teacher's WithMetrics
// convention: a plain struct of atomics, safe to read concurrently
// with the goroutines that increment it, with no further
// synchronization.
type Metrics struct {
	Ticks                atomic.Int64
	SubmissionsAccepted  atomic.Int64
	SubmissionsRejected  atomic.Int64
	ChildrenSpawned      atomic.Int64
	ComputationsFinished atomic.Int64
	CQEsDelivered        atomic.Int64
	FaultsInjected       atomic.Int64
}

// NewMetrics returns a fresh, zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// MetricsSnapshot is a point-in-time copy of a Metrics' counters.
type MetricsSnapshot struct {
	Ticks                int64
	SubmissionsAccepted  int64
	SubmissionsRejected  int64
	ChildrenSpawned      int64
	ComputationsFinished int64
	CQEsDelivered        int64
	FaultsInjected       int64
}

// Snapshot reads every counter once, returning a consistent-enough
// (not atomic-as-a-whole) view for logging or tests.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Ticks:                m.Ticks.Load(),
		SubmissionsAccepted:  m.SubmissionsAccepted.Load(),
		SubmissionsRejected:  m.SubmissionsRejected.Load(),
		ChildrenSpawned:      m.ChildrenSpawned.Load(),
		ComputationsFinished: m.ComputationsFinished.Load(),
		CQEsDelivered:        m.CQEsDelivered.Load(),
		FaultsInjected:       m.FaultsInjected.Load(),
	}
}
