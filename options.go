package corio

import "time"

// --- Scheduler options ---

type schedulerOptions struct {
	inboxSize int
	logger    Logger
}

// SchedulerOption configures a Scheduler instance.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions) error
}

// schedulerOptionImpl implements SchedulerOption.
type schedulerOptionImpl struct {
	applySchedulerFunc func(*schedulerOptions) error
}

func (o *schedulerOptionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applySchedulerFunc(opts)
}

// WithSchedulerInboxSize bounds the number of submitted-but-not-yet-admitted
// computations. Defaults to 100.
func WithSchedulerInboxSize(n int) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.inboxSize = n
		return nil
	}}
}

// WithSchedulerLogger overrides the Scheduler's structured logger.
func WithSchedulerLogger(l Logger) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.logger = l
		return nil
	}}
}

// resolveSchedulerOptions applies SchedulerOption instances to schedulerOptions.
func resolveSchedulerOptions(opts []SchedulerOption) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		inboxSize: 100,
		logger:    NoOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// --- AIOSystem options ---

type aioOptions struct {
	size    int
	logger  Logger
	metrics *Metrics
}

// AIOOption configures an AIOSystem instance.
type AIOOption interface {
	applyAIO(*aioOptions) error
}

type aioOptionImpl struct {
	applyAIOFunc func(*aioOptions) error
}

func (o *aioOptionImpl) applyAIO(opts *aioOptions) error { return o.applyAIOFunc(opts) }

// WithAIOSize bounds the shared completion queue's capacity. Defaults to 100.
func WithAIOSize(n int) AIOOption {
	return &aioOptionImpl{func(opts *aioOptions) error {
		opts.size = n
		return nil
	}}
}

// WithAIOLogger overrides the AIO bus's structured logger.
func WithAIOLogger(l Logger) AIOOption {
	return &aioOptionImpl{func(opts *aioOptions) error {
		opts.logger = l
		return nil
	}}
}

// WithAIOMetrics shares m with the AIO bus, so its counters (currently
// only AIODst's FaultsInjected) land in the same Metrics a Scheduler or
// Driver is already reporting through, per sched.Metrics()'s sharing
// convention. Defaults to a private Metrics instance if never set.
func WithAIOMetrics(m *Metrics) AIOOption {
	return &aioOptionImpl{func(opts *aioOptions) error {
		opts.metrics = m
		return nil
	}}
}

func resolveAIOOptions(opts []AIOOption) (*aioOptions, error) {
	cfg := &aioOptions{
		size:   100,
		logger: NoOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyAIO(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// --- Driver options ---

type driverOptions struct {
	dequeueSize int
	tickFreq    time.Duration
	logger      Logger
}

// DriverOption configures a Driver instance.
type DriverOption interface {
	applyDriver(*driverOptions) error
}

type driverOptionImpl struct {
	applyDriverFunc func(*driverOptions) error
}

func (o *driverOptionImpl) applyDriver(opts *driverOptions) error { return o.applyDriverFunc(opts) }

// WithDriverDequeueSize bounds how many CQEs are drained per loop iteration.
// Defaults to 64.
func WithDriverDequeueSize(n int) DriverOption {
	return &driverOptionImpl{func(opts *driverOptions) error {
		opts.dequeueSize = n
		return nil
	}}
}

// WithDriverTickFreq sets the loop's idle sleep interval. Defaults to 10ms.
func WithDriverTickFreq(d time.Duration) DriverOption {
	return &driverOptionImpl{func(opts *driverOptions) error {
		opts.tickFreq = d
		return nil
	}}
}

// WithDriverLogger overrides the Driver's structured logger.
func WithDriverLogger(l Logger) DriverOption {
	return &driverOptionImpl{func(opts *driverOptions) error {
		opts.logger = l
		return nil
	}}
}

func resolveDriverOptions(opts []DriverOption) (*driverOptions, error) {
	cfg := &driverOptions{
		dequeueSize: 64,
		tickFreq:    10 * time.Millisecond,
		logger:      NoOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDriver(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
