package framepace

import "time"

// Option configures a Pacer or Loop during creation.
//
// Example:
//
//	// Default: 3 frames in flight, unbounded slot waits.
//	pacer, err := framepace.NewPacer(engine)
//
//	// Double-buffered with a 2 second hang detector:
//	pacer, err := framepace.NewPacer(engine,
//	    framepace.WithFramesInFlight(2),
//	    framepace.WithWaitTimeout(2*time.Second))
type Option func(*options)

// options holds optional configuration shared by Pacer and Loop.
type options struct {
	framesInFlight int
	waitTimeout    time.Duration
	maxFrames      uint64
}

// defaultOptions returns the default configuration: triple buffering and
// unbounded waits, matching the usual swap-chain depth.
func defaultOptions() options {
	return options{
		framesInFlight: 3,
		waitTimeout:    NoTimeout,
	}
}

// WithFramesInFlight sets the number of pipelined frame-in-flight slots N.
// The producer may run up to N frames ahead of the consumer. n must be >= 1.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		o.framesInFlight = n
	}
}

// WithWaitTimeout bounds every slot-reuse wait issued by the pacer. A wait
// exceeding the bound fails with ErrWaitTimeout so a stalled consumer is
// detected instead of hanging the producer forever. Default is NoTimeout.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.waitTimeout = d
	}
}

// WithMaxFrames limits how many frames a Loop runs before returning.
// Zero (the default) means run until the context is done.
func WithMaxFrames(n uint64) Option {
	return func(o *options) {
		o.maxFrames = n
	}
}
