package corio

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the ambient structured-logging seam used by the Scheduler,
// AIO bus, and Driver. It is satisfied by *logiface.Logger[*stumpy.Event]
// (see NewJSONLogger) as well as by NoOpLogger.
type Logger interface {
	Debug() *logiface.Builder[*stumpy.Event]
	Info() *logiface.Builder[*stumpy.Event]
	Err() *logiface.Builder[*stumpy.Event]
}

// stumpyLogger adapts a *logiface.Logger[*stumpy.Event] to Logger.
type stumpyLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

func (s stumpyLogger) Debug() *logiface.Builder[*stumpy.Event] { return s.l.Debug() }
func (s stumpyLogger) Info() *logiface.Builder[*stumpy.Event]  { return s.l.Info() }
func (s stumpyLogger) Err() *logiface.Builder[*stumpy.Event]   { return s.l.Err() }

// NewJSONLogger builds a Logger backed by stumpy's JSON writer, in the
// idiom documented by logiface-stumpy's example tests:
//
//	logger := corio.NewJSONLogger()
//	logger.Info().Str("kind", string(kind)).Log("dispatched sqe")
func NewJSONLogger(opts ...stumpy.Option) Logger {
	return stumpyLogger{l: stumpy.L.New(stumpy.L.WithStumpy(opts...))}
}

// NoOpLogger discards every event; it is the default for every
// component's logger option.
type NoOpLogger struct{}

func (NoOpLogger) Debug() *logiface.Builder[*stumpy.Event] { return nil }
func (NoOpLogger) Info() *logiface.Builder[*stumpy.Event]  { return nil }
func (NoOpLogger) Err() *logiface.Builder[*stumpy.Event]   { return nil }
