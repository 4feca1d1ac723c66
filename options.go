package sampler

import "time"

// defaultMaxFrames is the default per-sample frame-capture depth, matching
// real JFR's default stack depth (jdk.jfr.internal.settings, 64 frames).
const defaultMaxFrames = 64

// defaultMaxChunkSize bounds the first-enrollment queue-sizing formula's
// upper clamp (§4.6); it stands in for the spec's "max output buffer
// chunk size" — the unit the consumer's batch is sized to comfortably fit
// within. 12MiB matches real JFR's default max chunk size. Paired with
// defaultMaxFrames, this keeps computeQueueCapacity's upper bound
// (maxChunkSize/2/wordSize/maxFrames = 12,288) comfortably above its lower
// bound (80) for the zero-config case; see computeQueueCapacity's doc
// comment for why that ordering matters.
const defaultMaxChunkSize = 12 * (1 << 20)

// controllerOptions holds configuration resolved from a slice of Option.
type controllerOptions struct {
	maxFrames       int
	maxChunkSize    int
	logger          Logger
	diagnosticRates map[time.Duration]int
}

// Option configures a Controller.
type Option interface {
	applyController(*controllerOptions)
}

type optionFunc func(*controllerOptions)

func (f optionFunc) applyController(opts *controllerOptions) {
	f(opts)
}

// WithMaxFrames sets the per-sample frame-capture depth. Must be called
// before the first SetPeriod(ms>0); it has no effect afterward, since the
// pool's frame buffer is sized at first enrollment.
func WithMaxFrames(n int) Option {
	return optionFunc(func(opts *controllerOptions) {
		if n > 0 {
			opts.maxFrames = n
		}
	})
}

// WithMaxChunkSize overrides the upper bound used by the first-enrollment
// queue-sizing formula (§4.6).
func WithMaxChunkSize(bytes int) Option {
	return optionFunc(func(opts *controllerOptions) {
		if bytes > 0 {
			opts.maxChunkSize = bytes
		}
	})
}

// WithLogger sets the structured logger used for controller and
// diagnostic messages. Defaults to a zerolog-backed Logger at LevelInfo.
func WithLogger(logger Logger) Option {
	return optionFunc(func(opts *controllerOptions) {
		opts.logger = logger
	})
}

// WithDiagnosticRates overrides the rate limits applied to repeated
// per-thread diagnostic warnings (timer-create failures, clock-unavailable
// warnings). See diagnostics.go.
func WithDiagnosticRates(rates map[time.Duration]int) Option {
	return optionFunc(func(opts *controllerOptions) {
		opts.diagnosticRates = rates
	})
}

// resolveOptions applies opts over the package defaults.
func resolveOptions(opts []Option) controllerOptions {
	cfg := controllerOptions{
		maxFrames:    defaultMaxFrames,
		maxChunkSize: defaultMaxChunkSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyController(&cfg)
	}
	return cfg
}
