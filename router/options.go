package router

import (
	"time"

	"go.uber.org/zap"
)

// Diagnostic is a non-fatal framing anomaly surfaced to the caller's
// diagnostics hook, annotated with which stream raised it.
type Diagnostic struct {
	Kind     string
	WorkerID int // -1 for the inlet
	LineNo   uint64
}

// Options configures a Router. Use the With* constructors rather than
// constructing this directly; the zero value is never valid on its own
// since it would leave the buffer sizes at zero.
type Options struct {
	InletSize    int
	OutletSize   int
	PollTimeout  time.Duration
	Diagnostics  func(Diagnostic)
	Logger       *zap.SugaredLogger
}

var defaultOptions = Options{
	InletSize:   262144,
	OutletSize:  262144,
	PollTimeout: 50 * time.Millisecond,
	Diagnostics: func(Diagnostic) {},
}

// Option mutates an Options value.
type Option func(*Options)

// WithInletSize overrides the inlet ring buffer capacity (Q_INLET).
func WithInletSize(n int) Option {
	return func(o *Options) { o.InletSize = n }
}

// WithOutletSize overrides the outlet ring buffer capacity (Q_OUTLET).
func WithOutletSize(n int) Option {
	return func(o *Options) { o.OutletSize = n }
}

// WithPollTimeout overrides the bounded wait used when nothing is
// watchable but workers are still running.
func WithPollTimeout(d time.Duration) Option {
	return func(o *Options) { o.PollTimeout = d }
}

// WithDiagnostics registers a callback invoked for every non-fatal
// framing diagnostic (UnalignedFastq today).
func WithDiagnostics(f func(Diagnostic)) Option {
	return func(o *Options) {
		if f != nil {
			o.Diagnostics = f
		}
	}
}

// WithLogger attaches a logger the router uses for its own fatal-error
// reporting before returning.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *Options) { o.Logger = log }
}
