package corio

import (
	"context"
	"fmt"
	"time"
)

// Driver is the top-level orchestrator: it owns the wall-clock loop
// that alternates between draining AIO completions, ticking the
// Scheduler, and flushing AIO, in the teacher's Start/Shutdown
// goroutine-lifecycle idiom.
type Driver struct {
	sched *Scheduler
	aio   AIO

	dequeueSize int
	tickFreq    time.Duration
	logger      Logger
	metrics     *Metrics

	now func() int64

	stop    chan struct{}
	stopped chan struct{}
}

// NewDriver builds a Driver over sched and aio. Neither is started by
// NewDriver itself; Start does that.
func NewDriver(sched *Scheduler, aio AIO, opts ...DriverOption) (*Driver, error) {
	cfg, err := resolveDriverOptions(opts)
	if err != nil {
		return nil, err
	}
	if cfg.dequeueSize <= 0 {
		return nil, fmt.Errorf("corio: driver dequeue size must be positive, got %d", cfg.dequeueSize)
	}
	return &Driver{
		sched:       sched,
		aio:         aio,
		dequeueSize: cfg.dequeueSize,
		tickFreq:    cfg.tickFreq,
		logger:      cfg.logger,
		metrics:     sched.Metrics(),
		now:         func() int64 { return time.Now().UnixMilli() },
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}, nil
}

// Start starts the AIO bus, then launches the orchestrator loop on a
// new goroutine.
func (d *Driver) Start() error {
	if err := d.aio.Start(); err != nil {
		return fmt.Errorf("corio: driver start: %w", err)
	}
	go d.loop()
	return nil
}

// loop is the orchestrator thread: read time, drain completions,
// invoke callbacks inline, tick the scheduler, flush the AIO, then
// sleep for tickFreq or until stopped.
func (d *Driver) loop() {
	defer close(d.stopped)

	ticker := time.NewTicker(d.tickFreq)
	defer ticker.Stop()

	for {
		t := d.now()

		for _, cqe := range d.aio.Dequeue(d.dequeueSize) {
			d.metrics.CQEsDelivered.Add(1)
			cqe.Callback(cqe.Result, cqe.Err)
		}

		d.sched.RunUntilBlocked(t)
		d.aio.Flush(t)

		select {
		case <-d.stop:
			if d.sched.Size() == 0 {
				return
			}
		case <-ticker.C:
		}
	}
}

// Shutdown signals the loop to stop, waits (bounded by ctx) for it to
// observe the scheduler fully drained, then shuts down the AIO bus and
// the scheduler, in that order.
func (d *Driver) Shutdown(ctx context.Context) error {
	close(d.stop)

	select {
	case <-d.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := d.aio.Shutdown(); err != nil {
		return fmt.Errorf("corio: driver shutdown: %w", err)
	}
	if err := d.sched.Shutdown(); err != nil {
		return fmt.Errorf("corio: driver shutdown: %w", err)
	}
	return nil
}
